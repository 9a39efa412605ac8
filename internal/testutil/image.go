package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// A4 pixel sizes at low resolution, portrait.
const (
	PageWidth  = 212
	PageHeight = 300
)

// PageConfig describes a synthetic certificate page.
type PageConfig struct {
	Width      int
	Height     int
	Lines      []string
	Background color.Color
	Foreground color.Color
	Rotation   float64 // degrees, counter-clockwise
}

// DefaultPageConfig returns a blank portrait page.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Width:      PageWidth,
		Height:     PageHeight,
		Background: color.White,
		Foreground: color.Black,
	}
}

// RenderPage draws the configured lines top to bottom with a fixed font.
func RenderPage(cfg PageConfig) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Src: &image.Uniform{cfg.Foreground}, Face: face}
	lineHeight := face.Metrics().Height.Ceil()
	for i, line := range cfg.Lines {
		y := (i + 1) * lineHeight
		if y > cfg.Height {
			break
		}
		drawer.Dot = fixed.P(4, y)
		drawer.DrawString(line)
	}

	if cfg.Rotation != 0 {
		return imaging.Rotate(img, cfg.Rotation, cfg.Background)
	}
	return img
}

// EncodePNG encodes img.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// CertificatePNG renders text on a portrait page and encodes it as PNG.
func CertificatePNG(t *testing.T, text string) []byte {
	t.Helper()
	cfg := DefaultPageConfig()
	cfg.Lines = strings.Split(text, "\n")
	return EncodePNG(t, RenderPage(cfg))
}

// PagePNG returns a light grey page of w x h.
func PagePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetGray(x, y, color.Gray{Y: uint8(200 + (x+y)%50)}) //nolint:gosec // G115: value < 250
		}
	}
	return EncodePNG(t, img)
}
