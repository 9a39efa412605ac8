package pipeline

import (
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
)

func sampleResult() *Result {
	return &Result{
		Record: intyg.Record{
			Kind:            intyg.Kind2015B4Klin,
			FullName:        "Anna Andersson",
			FirstName:       "Anna",
			LastName:        "Andersson",
			Personnummer:    "850101-1234",
			DelmalCodes:     []string{"a1", "c3"},
			Clinic:          "Psykos",
			Period:          &intyg.Period{StartISO: "2028-01-13", EndISO: "2028-04-15"},
			CertificateDate: "2028-04-20",
			Description:     "Rad ett\nRad två",
			Signer:          &intyg.Signer{Role: intyg.RoleSupervisor, Name: "Karin Berg", Site: "Sahlgrenska"},
		},
		Labels: intyg.LabelsFor(intyg.Kind2015B4Klin),
		Issues: []Issue{{Code: IssueOverlap, Message: "overlaps", BlocksSave: true}},
	}
}

func TestToCSV(t *testing.T) {
	out, err := ToCSV([]JobResult{
		{Name: "a.jpg", Result: sampleResult()},
		{Name: "b.jpg", Err: errors.New("ocr failed")},
	})
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, CSVHeader, rows[0])
	assert.Equal(t, []string{
		"a.jpg", "2015-B4-KLIN", "Andersson", "Anna", "850101-1234", "Psykos",
		"", "2028-01-13", "2028-04-15", "2028-04-20", "Karin Berg", "overlap", "",
	}, rows[1])
	assert.Equal(t, "b.jpg", rows[2][0])
	assert.Equal(t, "ocr failed", rows[2][len(CSVHeader)-1])
}

func TestToPlainText(t *testing.T) {
	out, err := ToPlainText(sampleResult())
	require.NoError(t, err)

	assert.Contains(t, out, "2015-B4-KLIN")
	assert.Contains(t, out, "Anna Andersson")
	assert.Contains(t, out, "Tjänstgöringsställe:")
	assert.Contains(t, out, "2028-01-13 - 2028-04-15")
	assert.Contains(t, out, "Karin Berg, HANDLEDARE, Sahlgrenska")
	assert.Contains(t, out, "! overlap (blocks save): overlaps")
	assert.NotContains(t, out, "Course")

	_, err = ToPlainText(nil)
	assert.Error(t, err)
}

func TestToJSON(t *testing.T) {
	out, err := ToJSON(sampleResult())
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "2015-B4-KLIN"`)
	assert.Contains(t, out, `"blocksSave": true`)
}
