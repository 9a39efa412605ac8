package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/ocr"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ocr.EngineOCRSpace, cfg.OCR.Engine)
	assert.Equal(t, "swe", cfg.OCR.Language)
	assert.Equal(t, 25, cfg.OCR.TimeoutSec)
	assert.Equal(t, ocr.DefaultOCRSpaceEndpoint, cfg.OCR.Endpoint)
	assert.True(t, cfg.OCR.Preprocess.Enabled)
	assert.Equal(t, 2200, cfg.OCR.Preprocess.MaxWidth)
	assert.InDelta(t, 0.15, cfg.Pipeline.AspectTolerance, 1e-9)
	assert.True(t, cfg.Pipeline.CheckOverlap)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.MaxUploadMB)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 10, cfg.Server.RateLimit.RequestsPerMinute)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, "text", cfg.Output.Format)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"output format", func(c *Config) { c.Output.Format = "xml" }, "invalid output format"},
		{"empty output format", func(c *Config) { c.Output.Format = "" }, ""},
		{"engine", func(c *Config) { c.OCR.Engine = "abbyy" }, "invalid ocr engine"},
		{"engine case", func(c *Config) { c.OCR.Engine = "DocAI" }, ""},
		{"ocr timeout", func(c *Config) { c.OCR.TimeoutSec = 0 }, "invalid ocr timeout"},
		{"max width", func(c *Config) { c.OCR.Preprocess.MaxWidth = -1 }, "invalid preprocess max width"},
		{"jpeg quality", func(c *Config) { c.OCR.Preprocess.JPEGQuality = 101 }, "invalid preprocess jpeg quality"},
		{"regime", func(c *Config) { c.Pipeline.ExpectedRegime = "2019" }, "expected_regime"},
		{"regime 2021", func(c *Config) { c.Pipeline.ExpectedRegime = "HSLF-FS 2021:8" }, ""},
		{"aspect tolerance", func(c *Config) { c.Pipeline.AspectTolerance = -0.1 }, "invalid aspect tolerance"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"upload", func(c *Config) { c.Server.MaxUploadMB = 0 }, "invalid max upload size"},
		{"server timeout", func(c *Config) { c.Server.TimeoutSec = -1 }, "invalid timeout"},
		{"rate limit", func(c *Config) { c.Server.RateLimit.RequestsPerMinute = 0 }, "invalid rate limit"},
		{"rate limit disabled", func(c *Config) {
			c.Server.RateLimit.Enabled = false
			c.Server.RateLimit.RequestsPerMinute = 0
		}, ""},
		{"workers", func(c *Config) { c.Batch.Workers = 0 }, "invalid batch workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToOCRConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OCR.Engine = "DocAI"
	cfg.OCR.Language = "eng"
	cfg.OCR.TimeoutSec = 40
	cfg.OCR.APIKey = "secret"
	cfg.OCR.Endpoint = ""
	cfg.OCR.DocAI = ocr.DocAIConfig{ProjectID: "p", ProcessorID: "proc"}

	got := cfg.ToOCRConfig()
	assert.Equal(t, ocr.EngineDocAI, got.Engine)
	assert.Equal(t, "eng", got.Language)
	assert.Equal(t, 40*time.Second, got.Timeout)
	assert.Equal(t, "secret", got.APIKey)
	assert.Equal(t, ocr.DefaultOCRSpaceEndpoint, got.Endpoint, "empty endpoint keeps the default")
	assert.Equal(t, "eu", got.DocAI.Location)
	assert.Equal(t, "proc", got.DocAI.ProcessorID)
}

func TestToPipelineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OCR.Language = "eng"
	cfg.OCR.TimeoutSec = 5
	cfg.OCR.Preprocess.Enabled = false
	cfg.Pipeline.ExpectedRegime = "SOSFS 2015:8"
	cfg.Pipeline.AspectTolerance = 0.3
	cfg.Pipeline.CheckOverlap = false
	cfg.Server.MaxUploadMB = 2
	cfg.Batch.Workers = 3

	got := cfg.ToPipelineConfig()
	assert.Equal(t, "eng", got.Language)
	assert.Equal(t, 5*time.Second, got.OCRTimeout)
	assert.False(t, got.Preprocess.Enabled)
	assert.Equal(t, intyg.Regime2015, got.ExpectedRegime)
	assert.InDelta(t, 0.3, got.AspectTolerance, 1e-9)
	assert.False(t, got.CheckOverlap)
	assert.Equal(t, int64(2<<20), got.MaxUploadBytes)
	assert.Equal(t, 3, got.Parallel.MaxWorkers)
}

func TestToPipelineConfigDropsUnknownRegime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.ExpectedRegime = "nonsense"

	assert.Equal(t, intyg.RegimeUnknown, cfg.ToPipelineConfig().ExpectedRegime)
}
