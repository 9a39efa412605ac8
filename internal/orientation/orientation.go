// Package orientation tells whether a photo of a portrait certificate was
// taken sideways, judging from the direction of its text lines.
package orientation

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Config controls detection.
type Config struct {
	// SquareThreshold is the long/short side ratio up to which a page is
	// taken as upright without looking at it.
	SquareThreshold float64 `mapstructure:"square_threshold" yaml:"square_threshold" json:"square_threshold"`
	// ConfidenceThreshold is the least confidence for a rotation to be
	// reported.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold" json:"confidence_threshold"`
}

// DefaultConfig provides sensible defaults.
func DefaultConfig() Config {
	return Config{SquareThreshold: 1.2, ConfidenceThreshold: 0.05}
}

// Result is the detected rotation in degrees counter-clockwise from upright.
// The heuristic cannot tell 90 from 270, so Angle is 0 or 90.
type Result struct {
	Angle      int     `json:"angle"`
	Confidence float64 `json:"confidence"`
}

// Classifier detects sideways pages.
type Classifier struct {
	cfg Config
}

// NewClassifier returns a classifier. Zero fields take the defaults.
func NewClassifier(cfg Config) *Classifier {
	d := DefaultConfig()
	if cfg.SquareThreshold <= 0 {
		cfg.SquareThreshold = d.SquareThreshold
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = d.ConfidenceThreshold
	}
	return &Classifier{cfg: cfg}
}

// Predict returns the page orientation. Portrait and near-square pages are
// upright; landscape pages are checked for vertical text lines.
func (c *Classifier) Predict(img image.Image) (Result, error) {
	if img == nil {
		return Result{}, errors.New("nil image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Result{}, errors.New("empty image")
	}
	if float64(b.Dx())/float64(b.Dy()) <= c.cfg.SquareThreshold {
		return Result{Angle: 0, Confidence: 1}, nil
	}

	ang, conf := heuristicOrientation(img)
	if conf < c.cfg.ConfidenceThreshold {
		return Result{Angle: 0, Confidence: conf}, nil
	}
	return Result{Angle: ang, Confidence: conf}, nil
}

// Upright undoes a rotation of angle degrees.
func Upright(img image.Image, angle int) image.Image {
	switch ((angle % 360) + 360) % 360 {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	}
	return img
}

// heuristicOrientation compares binarized transitions along rows and
// columns of a thumbnail. Horizontal text crosses more strokes per row.
func heuristicOrientation(img image.Image) (int, float64) {
	thumb := imaging.Resize(img, 128, 128, imaging.Lanczos)
	b := thumb.Bounds()
	if b.Dx() < 2 || b.Dy() < 2 {
		return 0, 0
	}

	mean := meanLuminance(thumb)
	rows := countTransitions(thumb, mean, false)
	cols := countTransitions(thumb, mean, true)
	return determineOrientation(rows, cols, img.Bounds())
}

func meanLuminance(img image.Image) float64 {
	b := img.Bounds()
	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum += luminance(img.At(x, y))
		}
	}
	return sum / float64(b.Dx()*b.Dy())
}

// countTransitions counts dark/light changes along every row, or along
// every column when vertical is set.
func countTransitions(img image.Image, threshold float64, vertical bool) float64 {
	b := img.Bounds()
	outer, inner := b.Dy(), b.Dx()
	if vertical {
		outer, inner = inner, outer
	}
	var transitions float64
	for i := range outer {
		prev := false
		for j := range inner {
			x, y := b.Min.X+j, b.Min.Y+i
			if vertical {
				x, y = b.Min.X+i, b.Min.Y+j
			}
			dark := luminance(img.At(x, y)) < threshold
			if j > 0 && dark != prev {
				transitions++
			}
			prev = dark
		}
	}
	return transitions
}

func luminance(c color.Color) float64 {
	r, g, bb, _ := c.RGBA()
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bb>>8)
}

// determineOrientation turns the transition counts into an angle. The
// landscape shape of the original adds to the confidence of 90.
func determineOrientation(rows, cols float64, bounds image.Rectangle) (int, float64) {
	total := rows + cols
	if total == 0 {
		return 0, 0
	}
	if cols > rows {
		conf := (cols - rows) / total
		if float64(bounds.Dx()) > 1.2*float64(bounds.Dy()) {
			conf = math.Min(1, conf+0.15)
		}
		return 90, conf
	}
	return 0, (rows - cols) / total
}
