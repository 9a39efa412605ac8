package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/intygscan/internal/pipeline"
)

type fileResult struct {
	File       string           `json:"file"`
	Result     *pipeline.Result `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
	Issue      *pipeline.Issue  `json:"issue,omitempty"`
	CanSave    bool             `json:"canSave"`
	DurationMs int64            `json:"duration_ms"`
}

type batchOutput struct {
	Files   []fileResult           `json:"files"`
	Skipped []SkippedFile          `json:"skipped,omitempty"`
	Stats   pipeline.ParallelStats `json:"stats"`
}

func formatBatchResults(r *Result, format string) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		return formatJSON(r)
	case "csv":
		return formatCSV(r)
	case "", "text":
		return formatText(r)
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

func formatJSON(r *Result) (string, error) {
	out := batchOutput{
		Files:   make([]fileResult, 0, len(r.Results)),
		Skipped: r.Skipped,
		Stats:   r.Stats(),
	}
	for _, jr := range r.Results {
		fr := fileResult{File: jr.Name, Result: jr.Result, DurationMs: jr.Duration.Milliseconds()}
		if jr.Err != nil {
			fr.Error = jr.Err.Error()
			if is, ok := pipeline.IssueForError(jr.Err); ok {
				fr.Issue = &is
			}
		}
		if jr.Result != nil {
			fr.CanSave = jr.Result.CanSave()
		}
		out.Files = append(out.Files, fr)
	}
	b, err := json.MarshalIndent(out, "", "  ")
	return string(b), err
}

// formatCSV writes one row per file. Skipped inputs appear as error rows.
func formatCSV(r *Result) (string, error) {
	rows := make([]pipeline.JobResult, 0, len(r.Results)+len(r.Skipped))
	rows = append(rows, r.Results...)
	for _, s := range r.Skipped {
		rows = append(rows, pipeline.JobResult{Name: s.Path, Err: errors.New(s.Error)})
	}
	return pipeline.ToCSV(rows)
}

func formatText(r *Result) (string, error) {
	var b strings.Builder
	for i, jr := range r.Results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "== %s\n", jr.Name)
		if jr.Err != nil {
			fmt.Fprintf(&b, "error: %v\n", jr.Err)
			continue
		}
		text, err := pipeline.ToPlainText(jr.Result)
		if err != nil {
			return "", fmt.Errorf("%s: %w", jr.Name, err)
		}
		b.WriteString(text)
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(&b, "\n== %s\nskipped: %s\n", s.Path, s.Error)
	}
	return b.String(), nil
}
