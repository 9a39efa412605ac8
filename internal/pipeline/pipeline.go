// Package pipeline runs one certificate scan end to end: image cleanup, OCR,
// normalization, classification, field extraction and the checks that decide
// whether the candidate record may be saved.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/ocr"
	"github.com/MeKo-Tech/intygscan/internal/overlap"
)

// Reference page size of the printed templates, in pixels.
const (
	ReferenceWidth  = 1057
	ReferenceHeight = 1496
)

// Config holds configuration for the scan pipeline.
type Config struct {
	Language string
	// OCRTimeout bounds one recognizer call.
	OCRTimeout time.Duration
	Preprocess ocr.PreprocessOptions
	// ExpectedRegime, when set, flags certificates of the other regime.
	ExpectedRegime intyg.Regime
	// AspectTolerance is the allowed distance between the image aspect
	// ratio and the template's before an advisory issue is raised.
	AspectTolerance float64
	// CheckOverlap enables the timeline check when a source is configured.
	CheckOverlap   bool
	MaxUploadBytes int64

	Parallel ParallelConfig
}

// DefaultConfig returns Swedish OCR with a 25 second timeout and the
// default image cleanup.
func DefaultConfig() Config {
	return Config{
		Language:        "swe",
		OCRTimeout:      25 * time.Second,
		Preprocess:      ocr.DefaultPreprocessOptions(),
		AspectTolerance: 0.15,
		CheckOverlap:    true,
		MaxUploadBytes:  ocr.DefaultMaxUploadBytes,
		Parallel:        DefaultParallelConfig(),
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg        Config
	recognizer ocr.Recognizer
	source     overlap.Source
	logger     *slog.Logger
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithRecognizer sets the OCR engine.
func (b *Builder) WithRecognizer(r ocr.Recognizer) *Builder {
	b.recognizer = r
	return b
}

// WithLanguage sets the OCR language hint.
func (b *Builder) WithLanguage(lang string) *Builder {
	if lang != "" {
		b.cfg.Language = lang
	}
	return b
}

// WithOCRTimeout sets the recognizer deadline. Non-positive values are ignored.
func (b *Builder) WithOCRTimeout(d time.Duration) *Builder {
	if d > 0 {
		b.cfg.OCRTimeout = d
	}
	return b
}

// WithPreprocess sets the image cleanup options.
func (b *Builder) WithPreprocess(opts ocr.PreprocessOptions) *Builder {
	b.cfg.Preprocess = opts
	return b
}

// WithExpectedRegime sets the regime the caller is working in.
func (b *Builder) WithExpectedRegime(r intyg.Regime) *Builder {
	b.cfg.ExpectedRegime = r
	return b
}

// WithAspectTolerance sets the aspect ratio tolerance.
func (b *Builder) WithAspectTolerance(tol float64) *Builder {
	if tol > 0 {
		b.cfg.AspectTolerance = tol
	}
	return b
}

// WithOverlapSource enables the timeline check against src.
func (b *Builder) WithOverlapSource(src overlap.Source) *Builder {
	b.source = src
	return b
}

// WithParallelWorkers sets the number of workers used by ProcessParallel.
func (b *Builder) WithParallelWorkers(workers int) *Builder {
	if workers > 0 {
		b.cfg.Parallel.MaxWorkers = workers
	}
	return b
}

// WithProgressCallback sets the progress reporter for ProcessParallel.
func (b *Builder) WithProgressCallback(cb ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = cb
	return b
}

// WithLogger sets the logger. The default logger is used otherwise.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Config returns the current configuration.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks the configuration.
func (b *Builder) Validate() error {
	if b.cfg.OCRTimeout <= 0 {
		return errors.New("ocr timeout must be > 0")
	}
	if b.cfg.AspectTolerance < 0 {
		return errors.New("aspect tolerance must be >= 0")
	}
	switch b.cfg.ExpectedRegime {
	case intyg.RegimeUnknown, intyg.Regime2015, intyg.Regime2021:
	default:
		return fmt.Errorf("unknown expected regime %q", b.cfg.ExpectedRegime)
	}
	if b.cfg.Preprocess.MaxWidth < 0 {
		return errors.New("preprocess max width must be >= 0")
	}
	return nil
}

// Pipeline processes scans. It holds no per-scan state and is safe for
// concurrent use.
type Pipeline struct {
	cfg        Config
	recognizer ocr.Recognizer
	source     overlap.Source
	logger     *slog.Logger
}

// Build validates the configuration and creates the pipeline. A pipeline
// without a recognizer can still process saved scans.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	if b.cfg.Parallel.MaxWorkers <= 0 {
		b.cfg.Parallel.MaxWorkers = runtime.NumCPU()
	}
	return &Pipeline{cfg: b.cfg, recognizer: b.recognizer, source: b.source, logger: logger}, nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config { return p.cfg }

// Overrides adjusts a pipeline for a single request. Nil fields keep the
// pipeline's setting.
type Overrides struct {
	Language       string
	ExpectedRegime *intyg.Regime
	CheckOverlap   *bool
}

// With returns a copy of p with o applied. p itself is not changed.
func (p *Pipeline) With(o Overrides) *Pipeline {
	cp := *p
	if o.Language != "" {
		cp.cfg.Language = o.Language
	}
	if o.ExpectedRegime != nil {
		cp.cfg.ExpectedRegime = *o.ExpectedRegime
	}
	if o.CheckOverlap != nil {
		cp.cfg.CheckOverlap = *o.CheckOverlap
	}
	return &cp
}

// Close releases nothing today; it exists so callers can defer it.
func (p *Pipeline) Close() error { return nil }

// Info describes the pipeline for /health and `config show`.
func (p *Pipeline) Info() map[string]any {
	info := map[string]any{
		"language":         p.cfg.Language,
		"ocr_timeout":      p.cfg.OCRTimeout.String(),
		"preprocess":       p.cfg.Preprocess.Enabled,
		"aspect_tolerance": p.cfg.AspectTolerance,
		"check_overlap":    p.cfg.CheckOverlap && p.source != nil,
		"workers":          p.cfg.Parallel.MaxWorkers,
		"recognizer":       p.recognizer != nil,
	}
	if p.cfg.ExpectedRegime != intyg.RegimeUnknown {
		info["expected_regime"] = string(p.cfg.ExpectedRegime)
	}
	return info
}
