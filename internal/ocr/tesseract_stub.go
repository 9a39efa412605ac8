//go:build !tesseract

package ocr

import "context"

// Tesseract is unavailable; build with -tags tesseract to link the library.
type Tesseract struct{}

// NewTesseract reports ErrNoBackend.
func NewTesseract() (*Tesseract, error) { return nil, ErrNoBackend }

func (t *Tesseract) Recognize(context.Context, []byte, string) (*Result, error) {
	return nil, ErrNoBackend
}
