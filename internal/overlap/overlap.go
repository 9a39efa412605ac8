// Package overlap checks a new certificate period against the activities
// already on the applicant's timeline.
package overlap

import (
	"context"
	"fmt"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
)

// Activity is a course or placement already recorded. Dates are ISO
// calendar dates; either end may be missing.
type Activity struct {
	ID              string `json:"id"`
	Label           string `json:"label"`
	StartISO        string `json:"startISO,omitempty"`
	EndISO          string `json:"endISO,omitempty"`
	CertificateDate string `json:"certificateDate,omitempty"`
	// Visible activities are shown on the timeline. Hidden ones are never
	// reported.
	Visible bool `json:"visible"`
}

// Span returns the activity interval. A missing end takes the other end,
// and with no period at all the certificate date stands for both.
func (a Activity) Span() (start, end string) {
	start = firstOf(a.StartISO, a.EndISO, a.CertificateDate)
	end = firstOf(a.EndISO, a.StartISO, a.CertificateDate)
	return start, end
}

// String is the label shown to the user, "<label> (<start> - <end>)".
func (a Activity) String() string {
	start, end := a.Span()
	return fmt.Sprintf("%s (%s - %s)", a.Label, start, end)
}

// Report is the outcome of Check.
type Report struct {
	HasOverlap       bool     `json:"hasOverlap"`
	OverlappingItems []string `json:"overlappingItems"`
}

// Source lists the activities a candidate is checked against.
type Source interface {
	ListActivities(ctx context.Context) ([]Activity, error)
}

// Check reports every visible activity whose closed interval intersects the
// candidate. A candidate without any date uses certificateDate as a single
// day; with nothing to compare the report is empty.
func Check(candidate intyg.Period, certificateDate string, existing []Activity) Report {
	rep := Report{OverlappingItems: []string{}}
	start := firstOf(candidate.StartISO, candidate.EndISO, certificateDate)
	end := firstOf(candidate.EndISO, candidate.StartISO, certificateDate)
	if start == "" || end == "" {
		return rep
	}
	for _, a := range existing {
		if !a.Visible {
			continue
		}
		as, ae := a.Span()
		if as == "" || ae == "" {
			continue
		}
		if Intersects(start, end, as, ae) {
			rep.OverlappingItems = append(rep.OverlappingItems, a.String())
		}
	}
	rep.HasOverlap = len(rep.OverlappingItems) > 0
	return rep
}

// CheckSource is Check over the activities of src.
func CheckSource(ctx context.Context, src Source, candidate intyg.Period, certificateDate string) (Report, error) {
	acts, err := src.ListActivities(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list activities: %w", err)
	}
	return Check(candidate, certificateDate, acts), nil
}

// Intersects reports whether the closed intervals [s1, e1] and [s2, e2]
// share a day. ISO dates compare correctly as strings.
func Intersects(s1, e1, s2, e2 string) bool {
	return s1 <= e2 && s2 <= e1
}

// CourseLabel is the timeline label of a course.
func CourseLabel(title string) string {
	if title == "" {
		return "Kurs"
	}
	return title
}

// PlacementLabel is the timeline label of a placement, "<type>: <clinic>".
func PlacementLabel(kind, clinic string) string {
	if kind == "" {
		kind = "Placering"
	}
	if clinic == "" {
		return kind
	}
	return kind + ": " + clinic
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
