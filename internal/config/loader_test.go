package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	return NewLoaderWithViper(viper.New()).WithDotEnv()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// unsetEnv removes key for the duration of the test and restores it after.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	require.NotNil(t, l)
	assert.Same(t, viper.GetViper(), l.GetViper())
}

func TestLoadWithNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := newTestLoader(t).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Port, cfg.Server.Port)
	assert.Equal(t, "swe", cfg.OCR.Language)
}

func TestLoadFromSearchPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, "intygscan.yaml", `
log_level: debug
ocr:
  engine: tesseract
  preprocess:
    max_width: 1600
pipeline:
  expected_regime: "2021"
batch:
  include: ["*.png", "*.json"]
`)

	l := newTestLoader(t)
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "tesseract", cfg.OCR.Engine)
	assert.Equal(t, 1600, cfg.OCR.Preprocess.MaxWidth)
	assert.True(t, cfg.OCR.Preprocess.Enabled, "unset keys keep their defaults")
	assert.Equal(t, "2021", cfg.Pipeline.ExpectedRegime)
	assert.Equal(t, []string{"*.png", "*.json"}, cfg.Batch.Include)
	assert.True(t, strings.HasSuffix(l.GetConfigFileUsed(), "intygscan.yaml"))
}

func TestLoadWithFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", "server:\n  port: 9090\nstore:\n  path: /tmp/a.db\n")

	cfg, err := newTestLoader(t).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/a.db", cfg.Store.Path)
}

func TestLoadWithFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := newTestLoader(t).LoadWithFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	bad := writeFile(t, dir, "bad.yaml", "server: [port\n")
	_, err = newTestLoader(t).LoadWithFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadValidation(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.yaml", "log_level: loud\n")

	_, err := newTestLoader(t).LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")

	cfg, err := newTestLoader(t).LoadWithFileWithoutValidation(path)
	require.NoError(t, err)
	assert.Equal(t, "loud", cfg.LogLevel)
}

func TestEnvironmentVariableOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.yaml", "server:\n  port: 9090\n")
	t.Setenv("INTYGSCAN_SERVER_PORT", "7070")
	t.Setenv("INTYGSCAN_OCR_PREPROCESS_MAX_WIDTH", "1800")
	t.Setenv("INTYGSCAN_PIPELINE_CHECK_OVERLAP", "false")

	cfg, err := newTestLoader(t).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 1800, cfg.OCR.Preprocess.MaxWidth)
	assert.False(t, cfg.Pipeline.CheckOverlap)
}

func TestVendorEnvironmentVariables(t *testing.T) {
	unsetEnv(t, "INTYGSCAN_OCR_API_KEY")
	t.Setenv(EnvOCRSpaceAPIKey, "vendor-key")
	t.Setenv(EnvGoogleCredentials, "/secrets/sa.json")

	cfg, err := newTestLoader(t).LoadWithoutValidation()
	require.NoError(t, err)
	assert.Equal(t, "vendor-key", cfg.OCR.APIKey)
	assert.Equal(t, "/secrets/sa.json", cfg.OCR.DocAI.CredentialsFile)

	t.Setenv("INTYGSCAN_OCR_API_KEY", "prefixed-key")
	cfg, err = newTestLoader(t).LoadWithoutValidation()
	require.NoError(t, err)
	assert.Equal(t, "prefixed-key", cfg.OCR.APIKey)
}

func TestDotEnv(t *testing.T) {
	unsetEnv(t, "INTYGSCAN_OCR_API_KEY")
	unsetEnv(t, EnvOCRSpaceAPIKey)
	envFile := writeFile(t, t.TempDir(), ".env", EnvOCRSpaceAPIKey+"=from-dotenv\n")

	l := NewLoaderWithViper(viper.New()).WithDotEnv(envFile, filepath.Join(t.TempDir(), "absent.env"))
	cfg, err := l.LoadWithoutValidation()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.OCR.APIKey)
}

func TestDotEnvDoesNotOverride(t *testing.T) {
	unsetEnv(t, "INTYGSCAN_OCR_API_KEY")
	t.Setenv(EnvOCRSpaceAPIKey, "from-env")
	envFile := writeFile(t, t.TempDir(), ".env", EnvOCRSpaceAPIKey+"=from-dotenv\n")

	cfg, err := NewLoaderWithViper(viper.New()).WithDotEnv(envFile).LoadWithoutValidation()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.OCR.APIKey)
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intygscan.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	cfg, err := newTestLoader(t).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server, cfg.Server)
	assert.Equal(t, DefaultConfig().OCR.Preprocess, cfg.OCR.Preprocess)
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()

	require.NotEmpty(t, paths)
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, filepath.Join("/xdg", "intygscan"))
	assert.Equal(t, filepath.Join("/etc", "intygscan"), paths[len(paths)-1])
}
