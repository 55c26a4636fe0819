package extraction

import (
	"path/filepath"
	"strings"
)

// Kind is the document type derived from a file extension
type Kind int

const (
	KindPDF Kind = iota + 1
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

var kinds = map[string]Kind{
	".pdf":  KindPDF,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
}

// KindOf maps a path to its document kind, case-insensitively
func KindOf(path string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(path))
	k, ok := kinds[ext]
	if !ok {
		return 0, &UnsupportedFormatError{Ext: ext}
	}
	return k, nil
}

// Supported reports whether path has an extension the extractor accepts
func Supported(path string) bool {
	_, err := KindOf(path)
	return err == nil
}
