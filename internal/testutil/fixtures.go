package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/intygscan/internal/ocr"
)

// Clinical2015 is the OCR text of a 2015 clinical service certificate
// (Bilaga 4) for Anna Andersson at Psykos, 2028-01-13 to 2028-04-15.
const Clinical2015 = `Bilaga 4
SOSFS 2015:8
Efternamn
Andersson
Förnamn
Anna
Personnummer
850101-1234
Specialitet som ansökan avser
Psykiatri
Delmål som intyget avser
c3, a1
Tjänstgöringsställe och period (ååmmdd - ååmmdd) för den kliniska tjänstgöringen
Psykos 280113 280415
Beskrivning av den kliniska tjänstgöringen
Handläggning av patienter med psykos.
Specialitet
Psykiatri
Tjänsteställe
Sahlgrenska
Ort och datum
Göteborg 2028-04-20
Namnförtydligande
Karin Berg`

// Receipt is text no certificate kind matches.
const Receipt = "Kvitto\nKaffe 35 kr\nTotalt 35 kr"

// CertificateFixture is a named OCR text with the kind it classifies as.
type CertificateFixture struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Fixtures returns the shared certificate fixtures.
func Fixtures() []CertificateFixture {
	return []CertificateFixture{
		{Name: "clinical-2015", Kind: "2015-B4-KLIN", Text: Clinical2015},
		{Name: "receipt", Kind: "", Text: Receipt},
	}
}

// ScanJSON encodes text as a saved scan.
func ScanJSON(t *testing.T, scan ocr.Result) []byte {
	t.Helper()
	b, err := json.Marshal(scan)
	require.NoError(t, err)
	return b
}

// WriteScanFile saves scan as dir/name in the .json scan format and returns
// the path.
func WriteScanFile(t *testing.T, dir, name string, scan ocr.Result) string {
	t.Helper()
	return WriteFile(t, dir, name, ScanJSON(t, scan))
}

// WriteFixtures saves every fixture as <name>.json under dir.
func WriteFixtures(t *testing.T, dir string) []string {
	t.Helper()
	var paths []string
	for _, f := range Fixtures() {
		paths = append(paths, WriteScanFile(t, dir, f.Name+".json", ocr.Result{Text: f.Text}))
	}
	return paths
}
