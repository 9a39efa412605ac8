package cmd

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/intygscan/internal/ocr"
	"github.com/MeKo-Tech/intygscan/internal/testutil"
)

func writeClinical(t *testing.T) string {
	t.Helper()
	return testutil.WriteScanFile(t, t.TempDir(), "clinical.json", ocr.Result{Text: testutil.Clinical2015})
}

func TestParseCommandText(t *testing.T) {
	out, _, err := newCLI(t).run("parse", writeClinical(t))
	require.NoError(t, err)
	assert.Contains(t, out, "2015-B4-KLIN")
	assert.Contains(t, out, "Anna Andersson")
	assert.Contains(t, out, "2028-01-13 - 2028-04-15")
}

func TestParseCommandJSON(t *testing.T) {
	out, _, err := newCLI(t).run("parse", writeClinical(t), "--format", "json")
	require.NoError(t, err)

	var got struct {
		Record struct {
			Kind         string `json:"kind"`
			Personnummer string `json:"personnummer"`
		} `json:"record"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "2015-B4-KLIN", got.Record.Kind)
	assert.Equal(t, "850101-1234", got.Record.Personnummer)
}

func TestParseCommandCSVToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out.csv")
	out, stderr, err := newCLI(t).run("parse", writeClinical(t), "--format", "csv", "--output", file)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "Results written to")
	require.True(t, testutil.FileExists(file))
}

func TestParseCommandStdin(t *testing.T) {
	c := newCLI(t)
	c.stdin = testutil.Clinical2015
	out, _, err := c.run("parse", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Psykos")
}

func TestParseCommandRegimeMismatchBlocksSave(t *testing.T) {
	out, _, err := newCLI(t).run("parse", writeClinical(t), "--expected-regime", "2021", "--save")
	require.ErrorIs(t, err, errBlocked)
	assert.Contains(t, out, "regime_mismatch")
}

func TestParseCommandErrors(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("parse", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, _, err = c.run("parse", writeClinical(t), "--expected-regime", "1999")
	assert.Error(t, err)

	_, _, err = c.run("parse", writeClinical(t), "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")

	_, _, err = c.run("parse")
	assert.Error(t, err)
}

func TestClassifyCommand(t *testing.T) {
	c := newCLI(t)
	out, _, err := c.run("classify", writeClinical(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Kind:    2015-B4-KLIN")
	assert.Contains(t, out, "Regime:  2015")

	c.stdin = testutil.Receipt
	out, _, err = c.run("classify", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "(unrecognized)")
}

func TestClassifyCommandJSON(t *testing.T) {
	out, _, err := newCLI(t).run("classify", writeClinical(t), "--format", "json", "--expected-regime", "2021")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "2015-B4-KLIN", got["kind"])
	assert.Equal(t, true, got["regimeMismatch"])
}

func TestZonesCommandNeedsWords(t *testing.T) {
	_, _, err := newCLI(t).run("zones", writeClinical(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no word positions")
}

func TestScanCommand(t *testing.T) {
	fakeEngine(t, testutil.Clinical2015)
	img := testutil.WriteFile(t, t.TempDir(), "intyg.png", testutil.CertificatePNG(t, "Bilaga 4"))

	out, _, err := newCLI(t).run("scan", img, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "2015-B4-KLIN"`)
}

func TestScanCommandRejectsNonImage(t *testing.T) {
	fakeEngine(t, testutil.Clinical2015)
	_, _, err := newCLI(t).run("scan", writeClinical(t))
	assert.Error(t, err)
}

func TestScanCommandEmptyText(t *testing.T) {
	fakeEngine(t, "   ")
	img := testutil.WriteFile(t, t.TempDir(), "blank.png", testutil.PagePNG(t, 106, 150))

	_, stderr, err := newCLI(t).run("scan", img)
	require.Error(t, err)
	assert.True(t, strings.Contains(stderr, "empty_text"), stderr)
}
