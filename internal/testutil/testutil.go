// Package testutil holds certificate fixtures and file helpers shared by
// package tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/intygscan/internal/ocr"
)

// GetProjectRoot returns the project root directory by finding go.mod.
func GetProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("failed to get caller information")
	}
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("could not find go.mod file starting from %s", filepath.Dir(filename))
}

// WriteFile writes data to dir/name, creating parent directories, and
// returns the path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// TextRecognizer answers every image with text.
func TextRecognizer(text string) ocr.Recognizer {
	return ocr.RecognizerFunc(func(context.Context, []byte, string) (*ocr.Result, error) {
		return &ocr.Result{Text: text}, nil
	})
}

// FailingRecognizer answers every image with err.
func FailingRecognizer(err error) ocr.Recognizer {
	return ocr.RecognizerFunc(func(context.Context, []byte, string) (*ocr.Result, error) {
		return nil, err
	})
}
