// Package layout rebuilds reading-order text from an unordered bag of OCR word
// boxes, either for a whole page or for the named zones of a template.
package layout

import (
	"math"
	"sort"
	"strings"
)

const (
	// zoneMargin grows every zone so words that barely escape it still count.
	zoneMargin = 2.0
	// lineTolerance is the largest vertical distance between the top of a
	// word and the top of the first word of its line.
	lineTolerance = 10.0
	// inferPadding is applied to the word extent when the image size is unknown.
	inferPadding = 1.1
	// edgeEpsilon absorbs rounding when words are mapped into reference
	// space, so edges that meet exactly stay apart at every scale.
	edgeEpsilon = 1e-6
)

// Word is one recognized word in image pixel space, top-left origin.
type Word struct {
	Text       string  `json:"text"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence,omitempty"`
}

// box returns the word rectangle with min/max ordered corners.
func (w Word) box() (x0, y0, x1, y1 float64) {
	return math.Min(w.X1, w.X2), math.Min(w.Y1, w.Y2), math.Max(w.X1, w.X2), math.Max(w.Y1, w.Y2)
}

// Size is an image size in pixels.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool { return s.Width > 0 && s.Height > 0 }

// Zone is a rectangle in a template's reference pixel space.
type Zone struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

func (z Zone) expand(mx, my float64) Zone {
	return Zone{X: z.X - mx, Y: z.Y - my, W: z.W + 2*mx, H: z.H + 2*my}
}

// intersects uses a positive-area overlap test. Edges that only touch do
// not count.
func (z Zone) intersects(w Word) bool {
	x0, y0, x1, y1 := w.box()
	ix0 := math.Max(z.X, x0)
	iy0 := math.Max(z.Y, y0)
	ix1 := math.Min(z.X+z.W, x1)
	iy1 := math.Min(z.Y+z.H, y1)
	return ix1-ix0 > edgeEpsilon && iy1-iy0 > edgeEpsilon
}

// unscale maps a word from image space into reference space.
func (w Word) unscale(sx, sy float64) Word {
	return Word{Text: w.Text, X1: w.X1 / sx, Y1: w.Y1 / sy, X2: w.X2 / sx, Y2: w.Y2 / sy, Confidence: w.Confidence}
}

// ExtractZoneText returns the text inside zone, one OCR line per text line.
// Words and zone share the same pixel space.
func ExtractZoneText(words []Word, zone Zone) string {
	return extractZone(words, zone)
}

// extractZone selects and orders words that are already in the zone's
// pixel space.
func extractZone(words []Word, zone Zone) string {
	if len(words) == 0 {
		return ""
	}
	area := zone.expand(zoneMargin, zoneMargin)

	selected := make([]Word, 0, 16)
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		if area.intersects(w) {
			selected = append(selected, w)
		}
	}
	return joinLines(groupLines(selected, lineTolerance))
}

// ReconstructLines orders every word on the page into lines.
func ReconstructLines(words []Word) string {
	kept := make([]Word, 0, len(words))
	for _, w := range words {
		if strings.TrimSpace(w.Text) != "" {
			kept = append(kept, w)
		}
	}
	return joinLines(groupLines(kept, lineTolerance))
}

// groupLines sorts words top to bottom and starts a new line whenever a word
// sits more than tol below the first word of the current line. Each line is
// then sorted left to right.
func groupLines(words []Word, tol float64) [][]Word {
	if len(words) == 0 {
		return nil
	}
	sorted := make([]Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		_, yi, _, _ := sorted[i].box()
		_, yj, _, _ := sorted[j].box()
		if yi == yj {
			xi, _, _, _ := sorted[i].box()
			xj, _, _, _ := sorted[j].box()
			return xi < xj
		}
		return yi < yj
	})

	var lines [][]Word
	var current []Word
	var currentY float64
	for _, w := range sorted {
		_, y, _, _ := w.box()
		if len(current) > 0 && math.Abs(y-currentY) > tol+edgeEpsilon {
			lines = append(lines, current)
			current = nil
		}
		if len(current) == 0 {
			currentY = y
		}
		current = append(current, w)
	}
	lines = append(lines, current)

	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			xi, _, _, _ := line[i].box()
			xj, _, _, _ := line[j].box()
			return xi < xj
		})
	}
	return lines
}

func joinLines(lines [][]Word) string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		parts := make([]string, 0, len(line))
		for _, w := range line {
			parts = append(parts, strings.TrimSpace(w.Text))
		}
		out = append(out, strings.Join(parts, " "))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// InferSize estimates the image size from the word extent. It reports false
// when no word has a positive extent.
func InferSize(words []Word) (Size, bool) {
	var maxX, maxY float64
	for _, w := range words {
		_, _, x1, y1 := w.box()
		maxX = math.Max(maxX, x1)
		maxY = math.Max(maxY, y1)
	}
	if maxX <= 0 || maxY <= 0 {
		return Size{}, false
	}
	return Size{Width: math.Ceil(maxX * inferPadding), Height: math.Ceil(maxY * inferPadding)}, true
}

// ReconstructZoneText extracts every zone of a set authored at reference.
// The actual image size is taken from actual when it is valid and inferred
// from the words otherwise. Every zone name is present in the result; with no
// words all values are empty.
func ReconstructZoneText(words []Word, zones map[string]Zone, reference Size, actual *Size) map[string]string {
	out := make(map[string]string, len(zones))
	for name := range zones {
		out[name] = ""
	}
	if len(words) == 0 {
		return out
	}

	sx, sy := 1.0, 1.0
	size, ok := Size{}, false
	if actual != nil && actual.Valid() {
		size, ok = *actual, true
	} else {
		size, ok = InferSize(words)
	}
	if ok && reference.Valid() {
		sx = size.Width / reference.Width
		sy = size.Height / reference.Height
	}

	// Zones are matched in reference space; the words are mapped once.
	ref := make([]Word, len(words))
	for i, w := range words {
		ref[i] = w.unscale(sx, sy)
	}
	for name, z := range zones {
		out[name] = extractZone(ref, z)
	}
	return out
}
