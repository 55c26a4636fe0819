package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Extractor produces the raw text of a PDF or image document
type Extractor struct {
	cfg     Config
	engine  Engine
	openPDF func(path string) (pdfDocument, error)
	logger  *slog.Logger
}

// New creates an Extractor. The engine is used for images and for PDF pages
// without an embedded text layer.
func New(cfg Config, engine Engine, logger *slog.Logger) (*Extractor, error) {
	if engine == nil {
		return nil, fmt.Errorf("ocr engine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extraction config: %w", err)
	}
	return &Extractor{
		cfg:     cfg,
		engine:  engine,
		openPDF: openFitz,
		logger:  logger,
	}, nil
}

// Config returns the effective configuration
func (e *Extractor) Config() Config {
	return e.cfg
}

// Extract picks a strategy by file extension and returns the trimmed text
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	kind, err := KindOf(path)
	if err != nil {
		e.logger.Warn("unsupported document", "path", path, "error", err)
		return "", err
	}

	start := time.Now()
	e.logger.Debug("starting extraction", "path", path, "kind", kind)

	var text string
	switch kind {
	case KindPDF:
		text, err = e.extractPDF(ctx, path)
	case KindImage:
		text, err = e.extractImage(ctx, path)
	}
	if err != nil {
		e.logger.Error("extraction failed", "path", path, "kind", kind, "error", err)
		return "", err
	}

	e.logger.Debug("extraction finished",
		"path", path,
		"kind", kind,
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (string, error) {
	doc, err := e.openPDF(path)
	if err != nil {
		return "", &IOError{Path: path, Op: "opening pdf", Err: err}
	}
	defer doc.Close()

	var b strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		txt, err := e.pageText(ctx, doc, path, i)
		if err != nil {
			return "", err
		}
		b.WriteString(txt)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

// pageText returns the embedded text of page i, or its OCR text when the
// page has no text layer.
func (e *Extractor) pageText(ctx context.Context, doc pdfDocument, path string, i int) (string, error) {
	txt, err := doc.Text(i)
	if err != nil {
		return "", &IOError{Path: path, Op: fmt.Sprintf("reading page %d of", i+1), Err: err}
	}
	if strings.TrimSpace(txt) != "" {
		return txt, nil
	}

	e.logger.Debug("page has no text layer, running ocr", "path", path, "page", i+1, "dpi", e.cfg.DPI)
	img, err := doc.ImageDPI(i, float64(e.cfg.DPI))
	if err != nil {
		return "", &IOError{Path: path, Op: fmt.Sprintf("rendering page %d of", i+1), Err: err}
	}
	txt, err = e.engine.Recognize(ctx, img, e.cfg.ocrOptions())
	if err != nil {
		return "", fmt.Errorf("ocr page %d: %w", i+1, err)
	}
	return txt, nil
}

func (e *Extractor) extractImage(ctx context.Context, path string) (string, error) {
	img, err := loadImage(path)
	if err != nil {
		return "", &IOError{Path: path, Op: "decoding image", Err: err}
	}
	txt, err := e.engine.Recognize(ctx, Preprocess(img, uint8(e.cfg.Threshold)), e.cfg.ocrOptions())
	if err != nil {
		return "", fmt.Errorf("ocr image: %w", err)
	}
	return strings.TrimSpace(txt), nil
}
