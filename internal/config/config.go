package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/ocr"
	"github.com/MeKo-Tech/intygscan/internal/pipeline"
)

// DefaultStorePath is the activity database used when none is configured.
const DefaultStorePath = "intygscan.db"

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	ocrDefaults := ocr.DefaultConfig()
	pipeDefaults := pipeline.DefaultConfig()
	return Config{
		LogLevel: "info",
		OCR: OCRConfig{
			Engine:     ocrDefaults.Engine,
			Language:   ocrDefaults.Language,
			TimeoutSec: int(ocrDefaults.Timeout / time.Second),
			Endpoint:   ocrDefaults.Endpoint,
			DocAI:      ocrDefaults.DocAI,
			Preprocess: ocr.DefaultPreprocessOptions(),
		},
		Pipeline: PipelineConfig{
			AspectTolerance: pipeDefaults.AspectTolerance,
			CheckOverlap:    pipeDefaults.CheckOverlap,
		},
		Store: StoreConfig{Path: DefaultStorePath},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     int(ocr.DefaultMaxUploadBytes >> 20),
			TimeoutSec:      60,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 10,
			},
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"text", "json", "csv"}
	validEngines   = []string{ocr.EngineOCRSpace, ocr.EngineTesseract, ocr.EngineDocAI}
)

// Validate validates the configuration and returns the first problem found.
// Missing credentials are not checked here; the engine reports them when it
// is built.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if engine := strings.ToLower(c.OCR.Engine); engine != "" && !slices.Contains(validEngines, engine) {
		return fmt.Errorf("invalid ocr engine: %s (must be one of: %s)", c.OCR.Engine, strings.Join(validEngines, ", "))
	}
	if c.OCR.TimeoutSec <= 0 {
		return fmt.Errorf("invalid ocr timeout: %d (must be positive)", c.OCR.TimeoutSec)
	}
	if c.OCR.Preprocess.MaxWidth < 0 {
		return fmt.Errorf("invalid preprocess max width: %d (must not be negative)", c.OCR.Preprocess.MaxWidth)
	}
	if q := c.OCR.Preprocess.JPEGQuality; q < 0 || q > 100 {
		return fmt.Errorf("invalid preprocess jpeg quality: %d (must be between 0 and 100)", q)
	}
	if _, err := intyg.ParseRegime(c.Pipeline.ExpectedRegime); err != nil {
		return fmt.Errorf("invalid pipeline.expected_regime: %w", err)
	}
	if c.Pipeline.AspectTolerance < 0 {
		return fmt.Errorf("invalid aspect tolerance: %.2f (must not be negative)", c.Pipeline.AspectTolerance)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("invalid rate limit: %d requests per minute (must be positive)", c.Server.RateLimit.RequestsPerMinute)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	return nil
}

// ToOCRConfig converts to ocr.Config.
func (c *Config) ToOCRConfig() ocr.Config {
	cfg := ocr.DefaultConfig()
	if c.OCR.Engine != "" {
		cfg.Engine = strings.ToLower(c.OCR.Engine)
	}
	if c.OCR.Language != "" {
		cfg.Language = c.OCR.Language
	}
	if c.OCR.TimeoutSec > 0 {
		cfg.Timeout = time.Duration(c.OCR.TimeoutSec) * time.Second
	}
	cfg.APIKey = c.OCR.APIKey
	if c.OCR.Endpoint != "" {
		cfg.Endpoint = c.OCR.Endpoint
	}
	cfg.DocAI = c.OCR.DocAI
	if cfg.DocAI.Location == "" {
		cfg.DocAI.Location = "eu"
	}
	return cfg
}

// ToPipelineConfig converts to pipeline.Config. The expected regime is
// assumed to have passed Validate; an unknown value is dropped.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	ocrCfg := c.ToOCRConfig()
	cfg.Language = ocrCfg.Language
	cfg.OCRTimeout = ocrCfg.Timeout
	cfg.Preprocess = c.OCR.Preprocess
	if regime, err := intyg.ParseRegime(c.Pipeline.ExpectedRegime); err == nil {
		cfg.ExpectedRegime = regime
	}
	cfg.AspectTolerance = c.Pipeline.AspectTolerance
	cfg.CheckOverlap = c.Pipeline.CheckOverlap
	if c.Server.MaxUploadMB > 0 {
		cfg.MaxUploadBytes = int64(c.Server.MaxUploadMB) << 20
	}
	if c.Batch.Workers > 0 {
		cfg.Parallel.MaxWorkers = c.Batch.Workers
	}
	return cfg
}
