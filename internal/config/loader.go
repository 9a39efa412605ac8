package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "intygscan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "INTYGSCAN"

	// DotEnvFile is read before the environment is consulted.
	DotEnvFile = ".env"
)

// Variables honored without the INTYGSCAN_ prefix, as the OCR vendors
// document them.
const (
	EnvOCRSpaceAPIKey     = "OCR_SPACE_API_KEY"
	EnvGoogleCredentials  = "GOOGLE_APPLICATION_CREDENTIALS"
	envGoogleCloudProject = "GOOGLE_CLOUD_PROJECT"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v      *viper.Viper
	dotEnv []string
}

// NewLoader creates a loader on the global viper instance so that flags
// bound by the root command take part.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper(), dotEnv: []string{DotEnvFile}}
}

// NewLoaderWithViper creates a loader on v.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v, dotEnv: []string{DotEnvFile}}
}

// WithDotEnv replaces the .env files read before loading. Missing files are
// skipped.
func (l *Loader) WithDotEnv(files ...string) *Loader {
	l.dotEnv = files
	return l
}

// Load reads the configuration from the search paths and validates it.
func (l *Loader) Load() (*Config, error) {
	return l.load("", true)
}

// LoadWithoutValidation is Load without the Validate call.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.load("", false)
}

// LoadWithFile loads configuration from a specific file path. An empty path
// searches the standard locations.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	return l.load(configFile, true)
}

// LoadWithFileWithoutValidation is LoadWithFile without the Validate call.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	return l.load(configFile, false)
}

func (l *Loader) load(configFile string, validate bool) (*Config, error) {
	if err := l.loadDotEnv(); err != nil {
		return nil, err
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if validate {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return &config, nil
}

// loadDotEnv never overrides variables that are already set.
func (l *Loader) loadDotEnv() error {
	for _, f := range l.dotEnv {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("error reading %s: %w", f, err)
		}
	}
	return nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) any {
	return l.v.Get(key)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]any {
	return l.v.AllSettings()
}

func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// The prefixed name wins over the vendor name.
	_ = l.v.BindEnv("ocr.api_key", EnvPrefix+"_OCR_API_KEY", EnvOCRSpaceAPIKey)
	_ = l.v.BindEnv("ocr.docai.credentials_file", EnvPrefix+"_OCR_DOCAI_CREDENTIALS_FILE", EnvGoogleCredentials)
	_ = l.v.BindEnv("ocr.docai.project_id", EnvPrefix+"_OCR_DOCAI_PROJECT_ID", envGoogleCloudProject)
}

func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("ocr.engine", d.OCR.Engine)
	l.v.SetDefault("ocr.language", d.OCR.Language)
	l.v.SetDefault("ocr.timeout_sec", d.OCR.TimeoutSec)
	l.v.SetDefault("ocr.api_key", d.OCR.APIKey)
	l.v.SetDefault("ocr.endpoint", d.OCR.Endpoint)
	l.v.SetDefault("ocr.docai.project_id", d.OCR.DocAI.ProjectID)
	l.v.SetDefault("ocr.docai.location", d.OCR.DocAI.Location)
	l.v.SetDefault("ocr.docai.processor_id", d.OCR.DocAI.ProcessorID)
	l.v.SetDefault("ocr.docai.credentials_file", d.OCR.DocAI.CredentialsFile)
	l.v.SetDefault("ocr.preprocess.enabled", d.OCR.Preprocess.Enabled)
	l.v.SetDefault("ocr.preprocess.max_width", d.OCR.Preprocess.MaxWidth)
	l.v.SetDefault("ocr.preprocess.contrast", d.OCR.Preprocess.Contrast)
	l.v.SetDefault("ocr.preprocess.jpeg_quality", d.OCR.Preprocess.JPEGQuality)
	l.v.SetDefault("ocr.preprocess.auto_rotate", d.OCR.Preprocess.AutoRotate)

	l.v.SetDefault("pipeline.expected_regime", d.Pipeline.ExpectedRegime)
	l.v.SetDefault("pipeline.aspect_tolerance", d.Pipeline.AspectTolerance)
	l.v.SetDefault("pipeline.check_overlap", d.Pipeline.CheckOverlap)

	l.v.SetDefault("store.path", d.Store.Path)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	l.v.SetDefault("server.rate_limit.enabled", d.Server.RateLimit.Enabled)
	l.v.SetDefault("server.rate_limit.requests_per_minute", d.Server.RateLimit.RequestsPerMinute)

	l.v.SetDefault("batch.workers", d.Batch.Workers)
	l.v.SetDefault("batch.include", []string{})
	l.v.SetDefault("batch.exclude", []string{})
	l.v.SetDefault("batch.recursive", d.Batch.Recursive)
	l.v.SetDefault("batch.continue_on_error", d.Batch.ContinueOnError)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.file", d.Output.File)
}

// GenerateDefaultConfigFile writes the defaults as YAML.
func GenerateDefaultConfigFile(filename string) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	v := viper.New()
	l := NewLoaderWithViper(v)
	l.setDefaults()
	return v.WriteConfigAs(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are
// searched, in order.
func GetConfigSearchPaths() []string {
	paths := []string{"."}
	home, homeErr := os.UserHomeDir()
	if homeErr == nil {
		paths = append(paths, home)
	}
	if configDir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && configDir != "" {
		paths = append(paths, filepath.Join(configDir, ConfigFileName))
	} else if homeErr == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigFileName))
	}
	return append(paths, filepath.Join("/etc", ConfigFileName))
}
