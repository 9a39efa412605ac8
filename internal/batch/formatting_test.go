package batch

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/pipeline"
)

func sampleResult() *Result {
	rec := intyg.Record{
		Kind:      intyg.Kind2015B4Klin,
		FirstName: "Anna",
		LastName:  "Andersson",
		FullName:  "Anna Andersson",
		Clinic:    "Psykos",
		Period:    &intyg.Period{StartISO: "2028-01-13", EndISO: "2028-04-15"},
	}
	return &Result{
		Results: []pipeline.JobResult{
			{Name: "a.json", Result: &pipeline.Result{Record: rec}, Duration: 3 * time.Millisecond},
			{Name: "b.png", Err: pipeline.ErrOCRTimeout},
		},
		Paths:       []string{"a.json", "b.png"},
		Skipped:     []SkippedFile{{Path: "c.json", Error: "bad scan"}},
		WorkerCount: 2,
	}
}

func TestFormatJSON(t *testing.T) {
	out, err := sampleResult().FormatResults("json")
	require.NoError(t, err)

	var decoded struct {
		Files []struct {
			File    string          `json:"file"`
			Error   string          `json:"error"`
			Issue   *pipeline.Issue `json:"issue"`
			CanSave bool            `json:"canSave"`
			Result  *struct {
				Record intyg.Record `json:"record"`
			} `json:"result"`
		} `json:"files"`
		Skipped []SkippedFile          `json:"skipped"`
		Stats   pipeline.ParallelStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Files, 2)
	assert.Equal(t, "a.json", decoded.Files[0].File)
	assert.True(t, decoded.Files[0].CanSave)
	require.NotNil(t, decoded.Files[0].Result)
	assert.Equal(t, intyg.Kind2015B4Klin, decoded.Files[0].Result.Record.Kind)

	require.NotNil(t, decoded.Files[1].Issue)
	assert.Equal(t, pipeline.IssueOCRTimeout, decoded.Files[1].Issue.Code)
	assert.Equal(t, []SkippedFile{{Path: "c.json", Error: "bad scan"}}, decoded.Skipped)
	assert.Equal(t, 1, decoded.Stats.Failed)
}

func TestFormatCSV(t *testing.T) {
	out, err := sampleResult().FormatResults("CSV")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "a.json,2015-B4-KLIN,Andersson,Anna"))
	assert.True(t, strings.HasPrefix(lines[2], "b.png,"))
	assert.True(t, strings.HasSuffix(lines[3], "bad scan"))
}

func TestFormatText(t *testing.T) {
	out, err := sampleResult().FormatResults("")
	require.NoError(t, err)
	assert.Contains(t, out, "== a.json\n")
	assert.Contains(t, out, "Anna Andersson")
	assert.Contains(t, out, "error: "+pipeline.ErrOCRTimeout.Error())
	assert.Contains(t, out, "skipped: bad scan")
}

func TestFormatUnknown(t *testing.T) {
	_, err := sampleResult().FormatResults("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}
