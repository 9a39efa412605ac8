package testutil

import (
	"bytes"
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/intygscan/internal/ocr"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	assert.True(t, FileExists(filepath.Join(root, "go.mod")))
}

func TestWriteFixtures(t *testing.T) {
	dir := t.TempDir()
	paths := WriteFixtures(t, dir)
	require.Len(t, paths, len(Fixtures()))

	for i, p := range paths {
		scan, err := ocr.LoadScanFile(p)
		require.NoError(t, err)
		assert.Equal(t, Fixtures()[i].Text, scan.Text)
	}
}

func TestRenderPage(t *testing.T) {
	cfg := DefaultPageConfig()
	cfg.Lines = []string{"Bilaga 4", "Efternamn"}
	img := RenderPage(cfg)
	assert.Equal(t, PageWidth, img.Bounds().Dx())
	assert.Equal(t, PageHeight, img.Bounds().Dy())

	cfg.Rotation = 90
	rotated := RenderPage(cfg)
	assert.Equal(t, PageHeight, rotated.Bounds().Dx())
	assert.Equal(t, PageWidth, rotated.Bounds().Dy())
}

func TestCertificatePNG(t *testing.T) {
	data := CertificatePNG(t, Clinical2015)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, PageWidth, cfg.Width)
	assert.Equal(t, "image/png", ocr.ContentType(data))
}
