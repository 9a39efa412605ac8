package support

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/intygscan/internal/testutil"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastOutput   string
	LastStdout   string
	LastError    error
	LastExitCode int
	LastDuration time.Duration

	// Test environment
	WorkingDir string
	TempDir    string
	StorePath  string
	EnvVars    []string

	// In-process API server
	HTTPTestServer *HTTPTestServerWrapper

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a scenario context with its own temp directory and
// activity store.
func NewTestContext() (*TestContext, error) {
	root, err := testutil.GetProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}
	tempDir, err := os.MkdirTemp("", "intygscan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	ctx := &TestContext{
		WorkingDir: root,
		TempDir:    tempDir,
		StorePath:  filepath.Join(tempDir, "activities.db"),
	}
	// Keep vendor credentials from the developer's shell out of the runs.
	ctx.AddEnvVar("INTYGSCAN_STORE_PATH", ctx.StorePath)
	ctx.AddEnvVar("OCR_SPACE_API_KEY", "")
	ctx.AddEnvVar("INTYGSCAN_OCR_API_KEY", "")
	ctx.AddEnvVar("INTYGSCAN_LOG_LEVEL", "error")
	return ctx, nil
}

// Cleanup stops the server and removes the temp directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	if testCtx.HTTPTestServer != nil {
		if err := testCtx.stopTestHTTPServer(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop server: %w", err))
		}
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// TempPath returns name inside the scenario's temp directory.
func (testCtx *TestContext) TempPath(name string) string {
	return filepath.Join(testCtx.TempDir, name)
}

// substitute expands {temp_dir} and {store} in step arguments.
func (testCtx *TestContext) substitute(s string) string {
	s = strings.ReplaceAll(s, "{temp_dir}", testCtx.TempDir)
	return strings.ReplaceAll(s, "{store}", testCtx.StorePath)
}
