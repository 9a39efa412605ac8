//nolint:lll
package config

import "github.com/MeKo-Tech/intygscan/internal/ocr"

// Config is the complete configuration of intygscan. It is loaded from a
// configuration file, INTYGSCAN_* environment variables and command-line
// flags, in increasing order of precedence.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	OCR      OCRConfig      `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store" json:"store"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
	Batch    BatchConfig    `mapstructure:"batch" yaml:"batch" json:"batch"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output" json:"output"`
}

// OCRConfig selects the OCR engine.
type OCRConfig struct {
	Engine     string                `mapstructure:"engine" yaml:"engine" json:"engine"`
	Language   string                `mapstructure:"language" yaml:"language" json:"language"`
	TimeoutSec int                   `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	APIKey     string                `mapstructure:"api_key" yaml:"api_key" json:"-"`
	Endpoint   string                `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	DocAI      ocr.DocAIConfig       `mapstructure:"docai" yaml:"docai" json:"docai"`
	Preprocess ocr.PreprocessOptions `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`
}

// PipelineConfig holds the checks applied after extraction.
type PipelineConfig struct {
	ExpectedRegime  string  `mapstructure:"expected_regime" yaml:"expected_regime" json:"expected_regime"`
	AspectTolerance float64 `mapstructure:"aspect_tolerance" yaml:"aspect_tolerance" json:"aspect_tolerance"`
	CheckOverlap    bool    `mapstructure:"check_overlap" yaml:"check_overlap" json:"check_overlap"`
}

// StoreConfig locates the activity database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}
