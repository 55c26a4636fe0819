package extraction

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat matches any *UnsupportedFormatError
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEngineUnavailable means the OCR engine is missing or misconfigured.
	// It is never reported as empty text.
	ErrEngineUnavailable = errors.New("ocr engine unavailable")
)

// UnsupportedFormatError is returned before any I/O when a path's extension
// is not one of .pdf, .png, .jpg or .jpeg.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return "unsupported format: file has no extension (use PDF, PNG or JPG)"
	}
	return fmt.Sprintf("unsupported format %q (use PDF, PNG or JPG)", e.Ext)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// IOError wraps a failure to read or decode a document
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrEngineUnavailable, fmt.Sprintf(format, args...))
}
