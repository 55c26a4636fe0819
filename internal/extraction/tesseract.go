package extraction

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// stderr fragments tesseract prints when a language model cannot be loaded
var missingModel = []string{
	"Failed loading language",
	"Error opening data file",
	"couldn't load any languages",
}

// Tesseract runs the tesseract binary on a temporary PNG
type Tesseract struct {
	bin         string
	tessdataDir string
	runner      Runner
}

// NewTesseract creates a Tesseract engine from the binary settings in cfg
func NewTesseract(cfg Config, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.WithDefaults()
	return NewTesseractWithRunner(cfg.Tesseract, cfg.TessdataDir, execRunner{logger: logger})
}

// NewTesseractWithRunner creates a Tesseract engine with a custom Runner for testing
func NewTesseractWithRunner(bin, tessdataDir string, r Runner) *Tesseract {
	if bin == "" {
		bin = DefaultTesseract
	}
	return &Tesseract{bin: bin, tessdataDir: tessdataDir, runner: r}
}

// Recognize writes img to a temporary PNG and runs
// tesseract <file> stdout -l <lang> --psm <n>
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, opts OCROptions) (string, error) {
	f, err := os.CreateTemp("", "boleto-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("creating temp image: %w", err)
	}
	defer os.Remove(f.Name())

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing temp image: %w", err)
	}

	args := []string{f.Name(), "stdout", "-l", opts.Language}
	// 0 leaves tesseract on its own default mode
	if opts.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(opts.PSM))
	}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}

	out, errb, err := t.runner.Run(ctx, t.bin, args...)
	if err := classify(t.bin, opts.Language, errb, err); err != nil {
		return "", err
	}
	return string(out), nil
}

// Close is a no-op; every call owns its own process
func (t *Tesseract) Close() error {
	return nil
}

func classify(bin, lang string, stderr []byte, err error) error {
	if err != nil && (errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)) {
		return unavailable("%s not installed: %v", bin, err)
	}
	msg := string(stderr)
	for _, m := range missingModel {
		if strings.Contains(msg, m) {
			return unavailable("language model %q not installed: %s", lang, strings.TrimSpace(truncate(msg, 512)))
		}
	}
	if err != nil {
		return fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(truncate(msg, 512)))
	}
	return nil
}
