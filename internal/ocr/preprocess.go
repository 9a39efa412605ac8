package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/MeKo-Tech/intygscan/internal/orientation"
)

// SupportedImageExtensions lists the file extensions accepted for scanning.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp", ".tif", ".tiff", ".gif"}

// SupportedContentTypes lists the sniffed content types accepted for scanning.
var SupportedContentTypes = []string{"image/jpeg", "image/png", "image/webp", "image/bmp", "image/tiff", "image/gif"}

// DefaultMaxUploadBytes is the largest image accepted for OCR.
const DefaultMaxUploadBytes = 10 << 20

var (
	ErrImageTooLarge    = errors.New("image is too large")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// ImageError wraps a failure in one image operation.
type ImageError struct {
	Operation string
	Err       error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image %s: %v", e.Operation, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// ImageMetadata describes a decoded image.
type ImageMetadata struct {
	Format      string  `json:"format"`
	SizeBytes   int     `json:"size_bytes"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	// Rotated is the angle the page was turned back by, when auto-rotate
	// found it sideways.
	Rotated int `json:"rotated,omitempty"`
}

// IsSupportedImage reports whether path has a supported image extension.
func IsSupportedImage(path string) bool {
	return slices.Contains(SupportedImageExtensions, strings.ToLower(filepath.Ext(path)))
}

// ContentType sniffs the image type of data. TIFF is recognized by its byte
// order mark, which the standard sniffer does not know.
func ContentType(data []byte) string {
	if bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*")) {
		return "image/tiff"
	}
	ct, _, _ := strings.Cut(http.DetectContentType(data), ";")
	return ct
}

// ValidateUpload checks size and type of an uploaded image and returns its
// content type. maxBytes <= 0 uses DefaultMaxUploadBytes.
func ValidateUpload(data []byte, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, len(data), maxBytes)
	}
	ct := ContentType(data)
	if !slices.Contains(SupportedContentTypes, ct) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, ct)
	}
	return ct, nil
}

// DecodeImage decodes data and describes it.
func DecodeImage(data []byte) (image.Image, ImageMetadata, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ImageMetadata{}, &ImageError{Operation: "decode", Err: err}
	}
	b := img.Bounds()
	meta := ImageMetadata{Format: format, SizeBytes: len(data), Width: b.Dx(), Height: b.Dy()}
	if b.Dy() > 0 {
		meta.AspectRatio = float64(b.Dx()) / float64(b.Dy())
	}
	return img, meta, nil
}

// LoadImageFile reads an image file with a supported extension.
func LoadImageFile(path string) ([]byte, error) {
	if !IsSupportedImage(path) {
		return nil, &ImageError{Operation: "load", Err: fmt.Errorf("%w: %s", ErrUnsupportedImage, filepath.Ext(path))}
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: reading a user-provided image path is expected
	if err != nil {
		return nil, &ImageError{Operation: "load", Err: err}
	}
	return data, nil
}

// PreprocessOptions tunes the cleanup applied before OCR.
type PreprocessOptions struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	// MaxWidth downscales wider images. Zero keeps the width.
	MaxWidth int `mapstructure:"max_width" yaml:"max_width" json:"max_width"`
	// Contrast is a percentage in (-100, 100) passed to imaging.AdjustContrast.
	Contrast    float64 `mapstructure:"contrast" yaml:"contrast" json:"contrast"`
	JPEGQuality int     `mapstructure:"jpeg_quality" yaml:"jpeg_quality" json:"jpeg_quality"`
	// AutoRotate turns landscape photos of a portrait form upright when
	// their text runs vertically.
	AutoRotate bool `mapstructure:"auto_rotate" yaml:"auto_rotate" json:"auto_rotate"`
}

// DefaultPreprocessOptions returns the grayscale, contrast and downscale
// settings used for phone photos of certificates.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{Enabled: true, MaxWidth: 2200, Contrast: 30, JPEGQuality: 90}
}

// Preprocess converts an image to grayscale, raises contrast, downscales it
// to MaxWidth and re-encodes it as JPEG. The metadata describes the output.
// With Enabled false the input is returned unchanged.
func Preprocess(data []byte, opts PreprocessOptions) ([]byte, ImageMetadata, error) {
	img, meta, err := DecodeImage(data)
	if err != nil {
		return nil, ImageMetadata{}, err
	}
	if !opts.Enabled {
		return data, meta, nil
	}

	rotated := 0
	if opts.AutoRotate {
		res, err := orientation.NewClassifier(orientation.DefaultConfig()).Predict(img)
		if err != nil {
			return nil, ImageMetadata{}, &ImageError{Operation: "orient", Err: err}
		}
		if res.Angle != 0 {
			img = orientation.Upright(img, res.Angle)
			rotated = res.Angle
		}
	}

	out := imaging.Grayscale(img)
	if opts.Contrast != 0 {
		out = imaging.AdjustContrast(out, opts.Contrast)
	}
	if opts.MaxWidth > 0 && out.Bounds().Dx() > opts.MaxWidth {
		out = imaging.Resize(out, opts.MaxWidth, 0, imaging.Lanczos)
	}

	quality := opts.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, ImageMetadata{}, &ImageError{Operation: "encode", Err: err}
	}
	b := out.Bounds()
	return buf.Bytes(), ImageMetadata{
		Format:      "jpeg",
		SizeBytes:   buf.Len(),
		Width:       b.Dx(),
		Height:      b.Dy(),
		AspectRatio: float64(b.Dx()) / float64(b.Dy()),
		Rotated:     rotated,
	}, nil
}
