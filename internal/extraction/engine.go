package extraction

import (
	"context"
	"image"
)

// OCROptions are passed to every Recognize call
type OCROptions struct {
	Language string
	PSM      int
}

// Engine turns a rasterized image into text.
// It returns "" with a nil error when nothing was recognized and wraps
// ErrEngineUnavailable when it cannot run at all.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, opts OCROptions) (string, error)
	// Close releases any resources held by the engine
	Close() error
}
