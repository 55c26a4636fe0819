package extraction

import "fmt"

const (
	DefaultLanguage  = "por+eng"
	DefaultPSM       = 11 // sparse text
	DefaultDPI       = 300
	DefaultThreshold = 140
	DefaultTesseract = "tesseract"
)

// Config holds the extraction policy. Zero values are replaced by defaults.
type Config struct {
	Language  string // OCR model, e.g. "por+eng"
	PSM       int    // tesseract page segmentation mode, 1-13; 0 selects DefaultPSM
	DPI       int    // rasterization resolution for PDF pages without text
	Threshold int    // binarization cutoff: below is black, at or above is white

	Tesseract   string // binary name or absolute path
	TessdataDir string
}

// WithDefaults returns a copy of c with empty fields set to their defaults
func (c Config) WithDefaults() Config {
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.PSM == 0 {
		c.PSM = DefaultPSM
	}
	if c.DPI == 0 {
		c.DPI = DefaultDPI
	}
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Tesseract == "" {
		c.Tesseract = DefaultTesseract
	}
	return c
}

// Validate checks that the policy values are usable
func (c Config) Validate() error {
	if c.Language == "" {
		return fmt.Errorf("ocr language is required")
	}
	// mode 0 only detects orientation and script, it never yields text
	if c.PSM < 1 || c.PSM > 13 {
		return fmt.Errorf("page segmentation mode must be between 1 and 13, got %d", c.PSM)
	}
	if c.DPI <= 0 || c.DPI > 1200 {
		return fmt.Errorf("dpi must be between 1 and 1200, got %d", c.DPI)
	}
	if c.Threshold < 1 || c.Threshold > 255 {
		return fmt.Errorf("threshold must be between 1 and 255, got %d", c.Threshold)
	}
	return nil
}

func (c Config) ocrOptions() OCROptions {
	return OCROptions{Language: c.Language, PSM: c.PSM}
}
