//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract runs the local Tesseract library through gosseract. Words come
// from its hOCR output.
type Tesseract struct{}

// NewTesseract returns the local engine.
func NewTesseract() (*Tesseract, error) { return &Tesseract{}, nil }

// Recognize implements Recognizer. The call cannot be interrupted; on
// cancellation the result is dropped and ctx.Err returned.
func (t *Tesseract) Recognize(ctx context.Context, image []byte, lang string) (*Result, error) {
	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := t.recognize(image, lang)
		done <- outcome{res, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		return o.res, o.err
	}
}

func (t *Tesseract) recognize(image []byte, lang string) (*Result, error) {
	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if lang == "" {
		lang = "swe"
	}
	if err := client.SetLanguage(strings.Split(lang, "+")...); err != nil {
		return nil, fmt.Errorf("set tesseract language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("set tesseract image: %w", err)
	}
	out, err := client.HOCRText()
	if err != nil {
		return nil, fmt.Errorf("tesseract ocr: %w", err)
	}
	return ParseHOCR([]byte(out))
}
