package cmd

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/intygscan/internal/config"
	"github.com/MeKo-Tech/intygscan/internal/ocr"
	"github.com/MeKo-Tech/intygscan/internal/testutil"
)

type batchJSON struct {
	Files []struct {
		File  string `json:"file"`
		Error string `json:"error"`
	} `json:"files"`
	Stats struct {
		Total        int `json:"total"`
		Processed    int `json:"processed"`
		Failed       int `json:"failed"`
		Unrecognized int `json:"unrecognized"`
	} `json:"stats"`
}

func TestBatchCommandScans(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFixtures(t, dir)

	out, _, err := newCLI(t).run("batch", dir, "--format", "json", "--workers", "2", "--quiet")
	require.NoError(t, err)

	var got batchJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Files, 2)
	assert.Equal(t, 2, got.Stats.Total)
	assert.Equal(t, 2, got.Stats.Processed)
	assert.Equal(t, 1, got.Stats.Unrecognized)
	assert.Zero(t, got.Stats.Failed)
}

func TestBatchCommandImageWithoutEngine(t *testing.T) {
	orig := newRecognizer
	newRecognizer = func(ocr.Config) (ocr.Recognizer, error) { return nil, errors.New("no engine") }
	t.Cleanup(func() { newRecognizer = orig })

	dir := t.TempDir()
	testutil.WriteFixtures(t, dir)
	testutil.WriteFile(t, dir, "photo.png", testutil.PagePNG(t, 106, 150))

	c := newCLI(t)
	_, _, err := c.run("batch", dir, "--quiet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 files failed")

	out, _, err := c.run("batch", dir, "--quiet", "--continue-on-error", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "photo.png")
}

func TestBatchCommandWithEngine(t *testing.T) {
	fakeEngine(t, testutil.Clinical2015)
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.png", testutil.CertificatePNG(t, "Bilaga 4"))
	testutil.WriteFile(t, dir, "nested/b.png", testutil.CertificatePNG(t, "Bilaga 4"))

	c := newCLI(t)
	out, _, err := c.run("batch", dir, "--format", "json", "--quiet", "--check-overlap=false")
	require.NoError(t, err)
	var got batchJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Stats.Total, "nested files need --recursive")

	out, _, err = c.run("batch", dir, "--format", "json", "--quiet", "--recursive", "--check-overlap=false")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.Stats.Processed)
}

func TestBatchCommandStatsAndOutputFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFixtures(t, dir)
	file := filepath.Join(t.TempDir(), "intyg.csv")

	_, stderr, err := newCLI(t).run("batch", dir, "--format", "csv", "--output", file, "--stats")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Total files: 2")
	assert.True(t, testutil.FileExists(file))
}

func TestBatchCommandNoArgs(t *testing.T) {
	_, _, err := newCLI(t).run("batch")
	assert.Error(t, err)
}

func TestConfigToBatchConfig(t *testing.T) {
	resetFlags(rootCmd)
	cfg := config.DefaultConfig()
	cfg.Batch.Workers = 3
	cfg.Batch.Recursive = true
	cfg.Batch.Include = []string{"*.json"}

	bc := configToBatchConfig(&cfg, batchCmd)
	assert.Equal(t, 3, bc.Workers)
	assert.True(t, bc.Recursive)
	assert.Equal(t, []string{"*.json"}, bc.IncludePatterns)
	assert.Equal(t, "text", bc.Format)

	require.NoError(t, batchCmd.Flags().Set("workers", "8"))
	require.NoError(t, batchCmd.Flags().Set("recursive", "false"))
	t.Cleanup(func() { resetFlags(rootCmd) })

	bc = configToBatchConfig(&cfg, batchCmd)
	assert.Equal(t, 8, bc.Workers)
	assert.False(t, bc.Recursive)
}
