package extraction

import (
	"image"

	"github.com/gen2brain/go-fitz"
)

// pdfDocument is the subset of *fitz.Document used by the extractor
type pdfDocument interface {
	NumPage() int
	Text(pageNumber int) (string, error)
	ImageDPI(pageNumber int, dpi float64) (*image.RGBA, error)
	Close() error
}

func openFitz(path string) (pdfDocument, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}
