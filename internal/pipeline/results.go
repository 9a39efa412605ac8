package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
)

// ToJSON serializes a result to pretty JSON.
func ToJSON(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CSVHeader is the column list written by ToCSV.
var CSVHeader = []string{
	"file", "kind", "last_name", "first_name", "personnummer", "clinic_or_subject",
	"title", "start", "end", "certificate_date", "signer", "issues", "error",
}

// ToCSV writes one summary row per job.
func ToCSV(results []JobResult) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return "", err
	}
	for _, jr := range results {
		row := make([]string, len(CSVHeader))
		row[0] = jr.Name
		if jr.Err != nil {
			row[len(row)-1] = jr.Err.Error()
		}
		if res := jr.Result; res != nil {
			rec := res.Record
			row[1] = rec.Kind.String()
			row[2] = rec.LastName
			row[3] = rec.FirstName
			row[4] = rec.Personnummer
			row[5] = firstNonEmpty(rec.Clinic, rec.Subject, rec.CourseTitle)
			row[6] = rec.Title
			if rec.Period != nil {
				row[7], row[8] = rec.Period.StartISO, rec.Period.EndISO
			}
			row[9] = rec.CertificateDate
			if rec.Signer != nil {
				row[10] = rec.Signer.Name
			}
			row[11] = issueCodes(res.Issues)
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

// ToPlainText renders the record for a terminal, one field per line. Empty
// fields are left out.
func ToPlainText(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	rec := res.Record
	labels := res.Labels
	var b strings.Builder
	field := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			fmt.Fprintf(&b, "%-28s %s\n", label+":", strings.ReplaceAll(value, "\n", "\n"+strings.Repeat(" ", 29)))
		}
	}

	kind := rec.Kind.String()
	if kind == "" {
		kind = "(unrecognized)"
	}
	field("Kind", kind)
	field("Form", labels.Title)
	field("Name", rec.FullName)
	field("Personnummer", rec.Personnummer)
	field("Specialty", rec.Specialty)
	field("Delmål", strings.Join(rec.DelmalCodes, ", "))
	field(labels.ClinicLabel, firstNonEmpty(rec.Clinic, rec.Subject))
	field("Course", rec.CourseTitle)
	field("Course (catalog)", rec.Title)
	field("Course leader", rec.CourseLeader)
	if p := rec.Period; p != nil {
		field("Period", p.StartISO+" - "+p.EndISO)
	}
	field("Certificate date", rec.CertificateDate)
	field(labels.DescriptionLabel, rec.Description)
	if s := rec.Signer; s != nil {
		field("Signed by", signerLine(s))
	}
	for _, is := range res.Issues {
		marker := "note"
		if is.BlocksSave {
			marker = "blocks save"
		}
		fmt.Fprintf(&b, "! %s (%s): %s\n", is.Code, marker, is.Message)
	}
	return b.String(), nil
}

func signerLine(s *intyg.Signer) string {
	parts := []string{}
	for _, v := range []string{s.Name, s.Role, s.Speciality, s.Site} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

func issueCodes(issues []Issue) string {
	codes := make([]string, 0, len(issues))
	for _, is := range issues {
		codes = append(codes, is.Code)
	}
	return strings.Join(codes, ";")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
