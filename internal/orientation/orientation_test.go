package orientation

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var pageLines = []string{
	"Bilaga 4", "SOSFS 2015:8", "Efternamn", "Andersson", "Fornamn", "Anna",
	"Personnummer", "850101-1234", "Klinisk tjanstgoring", "Psykos",
	"Period 280113 - 280415", "Ort och datum", "Uppsala 280420",
	"Intygsutfardare", "Karin Berg", "Specialistkompetens i psykiatri",
}

func blankPage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

// textPage draws portrait A4 proportions with a line of text every 13px.
func textPage() image.Image {
	img := blankPage(212, 300)
	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: basicfont.Face7x13}
	for i, line := range pageLines {
		d.Dot = fixed.P(4, (i+1)*17)
		d.DrawString(line)
	}
	return img
}

func TestPredictPortraitIsUpright(t *testing.T) {
	res, err := NewClassifier(Config{}).Predict(textPage())
	require.NoError(t, err)
	assert.Equal(t, Result{Angle: 0, Confidence: 1}, res)
}

func TestPredictSidewaysPage(t *testing.T) {
	sideways := imaging.Rotate90(textPage())
	require.Greater(t, sideways.Bounds().Dx(), sideways.Bounds().Dy())

	res, err := NewClassifier(Config{}).Predict(sideways)
	require.NoError(t, err)
	assert.Contains(t, []int{0, 90}, res.Angle)
	assert.True(t, res.Confidence >= 0 && res.Confidence <= 1, "confidence out of range: %f", res.Confidence)
}

func TestPredictBlankLandscape(t *testing.T) {
	res, err := NewClassifier(Config{}).Predict(blankPage(300, 212))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Angle)
	assert.Zero(t, res.Confidence)
}

func TestPredictErrors(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	_, err := c.Predict(nil)
	require.Error(t, err)
	_, err = c.Predict(image.NewGray(image.Rect(0, 0, 0, 0)))
	require.Error(t, err)
}

func TestDetermineOrientation(t *testing.T) {
	landscape := image.Rect(0, 0, 300, 200)
	portrait := image.Rect(0, 0, 200, 300)

	ang, conf := determineOrientation(0, 0, landscape)
	assert.Equal(t, 0, ang)
	assert.Zero(t, conf)

	ang, conf = determineOrientation(100, 300, portrait)
	assert.Equal(t, 90, ang)
	assert.InDelta(t, 0.5, conf, 1e-9)

	_, boosted := determineOrientation(100, 300, landscape)
	assert.InDelta(t, 0.65, boosted, 1e-9)

	ang, conf = determineOrientation(300, 100, landscape)
	assert.Equal(t, 0, ang)
	assert.InDelta(t, 0.5, conf, 1e-9)
}

func TestUpright(t *testing.T) {
	page := textPage()
	sideways := imaging.Rotate90(page)

	back := Upright(sideways, 90)
	assert.Equal(t, page.Bounds().Size(), back.Bounds().Size())
	assert.Equal(t, sideways.Bounds().Size(), Upright(sideways, 0).Bounds().Size())
	assert.Equal(t, page.Bounds().Size(), Upright(page, 180).Bounds().Size())
	assert.Equal(t, sideways.Bounds().Size(), Upright(page, -90).Bounds().Size())
}

func TestNewClassifierDefaults(t *testing.T) {
	c := NewClassifier(Config{})
	assert.Equal(t, DefaultConfig(), c.cfg)

	c = NewClassifier(Config{SquareThreshold: 2, ConfidenceThreshold: 0.5})
	assert.InDelta(t, 2.0, c.cfg.SquareThreshold, 1e-9)
}
