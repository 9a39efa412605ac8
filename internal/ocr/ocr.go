// Package ocr adapts OCR engines to one result shape: the page text and the
// positioned words.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MeKo-Tech/intygscan/internal/layout"
)

// Result is the raw output of one OCR run. Words are an unordered bag in
// image pixel space with a top-left origin.
type Result struct {
	Text   string        `json:"text"`
	Words  []layout.Word `json:"words,omitempty"`
	Width  int           `json:"width,omitempty"`
	Height int           `json:"height,omitempty"`
}

// Size returns the image size, or nil when the engine did not report it.
func (r *Result) Size() *layout.Size {
	if r == nil || r.Width <= 0 || r.Height <= 0 {
		return nil
	}
	return &layout.Size{Width: float64(r.Width), Height: float64(r.Height)}
}

// Recognizer runs OCR on an encoded image. lang uses Tesseract style codes
// ("swe", "swe+eng").
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, lang string) (*Result, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, image []byte, lang string) (*Result, error)

func (f RecognizerFunc) Recognize(ctx context.Context, image []byte, lang string) (*Result, error) {
	return f(ctx, image, lang)
}

var (
	// ErrNoBackend is returned for an engine that is not compiled in.
	ErrNoBackend = errors.New("ocr engine not available in this build")
	// ErrMissingAPIKey means the OCR.space key is not configured.
	ErrMissingAPIKey = errors.New("ocr.space api key is not configured")
)

// APIError is a failure reported by a remote OCR service.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

// Engine names accepted by New.
const (
	EngineOCRSpace  = "ocrspace"
	EngineTesseract = "tesseract"
	EngineDocAI     = "docai"
)

// Config selects and configures an engine.
type Config struct {
	Engine   string
	Language string
	Timeout  time.Duration

	APIKey   string
	Endpoint string

	DocAI DocAIConfig
}

// DefaultConfig returns the OCR.space engine with Swedish text.
func DefaultConfig() Config {
	return Config{
		Engine:   EngineOCRSpace,
		Language: "swe",
		Timeout:  25 * time.Second,
		Endpoint: DefaultOCRSpaceEndpoint,
		DocAI:    DocAIConfig{Location: "eu"},
	}
}

// New builds the recognizer named by cfg.Engine.
func New(cfg Config) (Recognizer, error) {
	var (
		rec Recognizer
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", EngineOCRSpace:
		rec, err = NewOCRSpace(cfg.APIKey, cfg.Endpoint)
	case EngineTesseract:
		rec, err = NewTesseract()
	case EngineDocAI:
		rec, err = NewDocAI(cfg.DocAI)
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}
