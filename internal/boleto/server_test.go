package boleto

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/boleto-reader/internal/extraction"
	"github.com/zombor/boleto-reader/internal/fields"
)

// multipartUpload builds a multipart body with a single "file" field
func multipartUpload(filename string, content []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(content)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		extractor   *mockExtractor
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		service = NewServiceWithDeps(db, extractor, storage, &mockIDGenerator{id: "id-1"}, &mockTimeSource{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)})
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		extractor = newMockExtractor()
		auth = BasicAuth{}
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
			ghttpServer = nil
		}
	})

	upload := func(filename string, content []byte) *http.Response {
		body, contentType := multipartUpload(filename, content)
		req, err := http.NewRequest(http.MethodPost, ghttpServer.URL()+"/api/documents", body)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", contentType)
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	errorBody := func(resp *http.Response) string {
		var payload map[string]string
		Expect(json.NewDecoder(resp.Body).Decode(&payload)).To(Succeed())
		return payload["error"]
	}

	Describe("handleIndex", func() {
		It("should serve the upload page", func() {
			resp, err := http.Get(ghttpServer.URL() + "/")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("Leitor de Boletos"))
		})

		It("should reject other methods", func() {
			resp, err := http.Post(ghttpServer.URL()+"/", "text/plain", nil)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
		})
	})

	Describe("handleUploadDocument", func() {
		When("a PDF is uploaded", func() {
			It("should return the extracted fields", func() {
				resp := upload("boleto.pdf", []byte("%PDF-1.4\n%fake\n"))
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var doc Document
				Expect(json.NewDecoder(resp.Body).Decode(&doc)).To(Succeed())
				Expect(doc.ID).To(Equal("id-1"))
				Expect(doc.ContentType).To(Equal("application/pdf"))
				Expect(doc.Fields.Amount).To(Equal("R$ 1.234,56"))
				Expect(doc.Fields.Map()).To(HaveLen(4))
			})
		})

		When("the upload name has the wrong extension", func() {
			It("should use the sniffed type", func() {
				resp := upload("boleto.bin", []byte("%PDF-1.4\n%fake\n"))
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				Expect(storage.files).To(HaveKey("id-1_boleto.pdf"))
			})
		})

		When("a PDF is uploaded under an image name", func() {
			It("should store and read it as a PDF", func() {
				resp := upload("scan.png", []byte("%PDF-1.4\n%fake\n"))
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				Expect(storage.files).To(HaveKey("id-1_scan.pdf"))
				Expect(extractor.paths).To(Equal([]string{"/storage/id-1_scan.pdf"}))
			})
		})

		When("the content is not a PDF or image", func() {
			It("should return unsupported media type", func() {
				resp := upload("notes.pdf", []byte("just some text"))
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnsupportedMediaType))
				Expect(errorBody(resp)).To(ContainSubstring("Formato não suportado"))
				Expect(extractor.paths).To(BeEmpty())
			})
		})

		When("the ocr engine is unavailable", func() {
			BeforeEach(func() {
				extractor.err = fmt.Errorf("ocr image: %w", extraction.ErrEngineUnavailable)
			})

			It("should return service unavailable without saving", func() {
				resp := upload("boleto.pdf", []byte("%PDF-1.4\n"))
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
				Expect(errorBody(resp)).To(ContainSubstring("ocr engine unavailable"))
				Expect(db.docs).To(BeEmpty())
			})
		})

		When("the file is corrupt", func() {
			BeforeEach(func() {
				extractor.err = &extraction.IOError{Path: "x.pdf", Op: "opening pdf", Err: errors.New("broken xref")}
			})

			It("should return unprocessable entity", func() {
				resp := upload("boleto.pdf", []byte("%PDF-1.4\n"))
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
			})
		})

		When("no file is sent", func() {
			It("should return bad request", func() {
				body := &bytes.Buffer{}
				writer := multipart.NewWriter(body)
				Expect(writer.WriteField("other", "x")).To(Succeed())
				Expect(writer.Close()).To(Succeed())
				resp, err := http.Post(ghttpServer.URL()+"/api/documents", writer.FormDataContentType(), body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleListDocuments", func() {
		BeforeEach(func() {
			db.docs["id1"] = &Document{ID: "id1", Fields: fields.Record{Customer: "A"}}
			db.docs["id2"] = &Document{ID: "id2", Fields: fields.Record{Customer: "B"}}
		})

		It("should return all documents as JSON", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/documents")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
			var docs []*Document
			Expect(json.NewDecoder(resp.Body).Decode(&docs)).To(Succeed())
			Expect(docs).To(HaveLen(2))
		})
	})

	Describe("handleGetDocument", func() {
		BeforeEach(func() {
			db.docs["id1"] = &Document{ID: "id1", Text: "Cliente: A"}
		})

		It("should return the document", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/documents/id1")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should return not found for unknown IDs", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/documents/nope")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("handleGetDocumentFile", func() {
		BeforeEach(func() {
			db.docs["id1"] = &Document{ID: "id1", Filename: "id1_a.pdf", ContentType: "application/pdf"}
			storage.files["id1_a.pdf"] = []byte("%PDF-1.4")
		})

		It("should return the stored bytes", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/documents/id1/file")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/pdf"))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(Equal([]byte("%PDF-1.4")))
		})
	})

	Describe("handleDeleteDocument", func() {
		BeforeEach(func() {
			db.docs["id1"] = &Document{ID: "id1", Filename: "id1_a.pdf"}
			storage.files["id1_a.pdf"] = []byte("x")
		})

		It("should return no content", func() {
			req, err := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/documents/id1", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.docs).To(BeEmpty())
		})

		It("should return not found for unknown IDs", func() {
			req, err := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/documents/nope", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("handleExport", func() {
		It("should return a spreadsheet", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/export.xlsx")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("boletos.xlsx"))
		})

		It("should return an error when listing fails", func() {
			db.listErr = errors.New("boom")
			resp, err := http.Get(ghttpServer.URL() + "/api/export.xlsx")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
			setupServer()
		})

		It("should reject requests without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/documents")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("should accept valid credentials", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/documents", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:secret")))
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should reject a wrong password", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/documents", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("admin", "wrong")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})
})

var _ = DescribeTable("matchExtension",
	func(name, ext, expected string) {
		Expect(matchExtension(name, ext)).To(Equal(expected))
	},
	Entry("extension already agrees", "boleto.pdf", ".pdf", "boleto.pdf"),
	Entry("upper case extension agrees", "BOLETO.PDF", ".pdf", "BOLETO.PDF"),
	Entry("jpeg spelling is kept", "foto.jpeg", ".jpg", "foto.jpeg"),
	Entry("pdf named as png", "scan.png", ".pdf", "scan.pdf"),
	Entry("png named as jpg", "foto.jpg", ".png", "foto.png"),
	Entry("no extension", "boleto", ".pdf", "boleto.pdf"),
)
