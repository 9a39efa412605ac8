package parser

import (
	"strings"

	"github.com/MeKo-Tech/intygscan/internal/dates"
	"github.com/MeKo-Tech/intygscan/internal/fields"
	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/textnorm"
)

// Finalize applies the post-processing shared by every kind. text is the
// normalized page the record was read from. After Finalize a kind without
// date fields carries no period and a period never has only one end.
func Finalize(r *intyg.Record, text string) {
	if r.Clinic != "" {
		clinic, p := fields.ClinicAndPeriod(r.Clinic)
		r.Clinic = clinic
		fillPeriod(r, p)
	}

	if r.CourseTitle != "" {
		title, p := fields.SplitPlaceAndPeriod(fields.TidyOneLine(r.CourseTitle))
		if title != "" {
			r.CourseTitle = title
		}
		fillPeriod(r, p)
	}
	if isCourse(r.Kind) && r.CourseTitle != "" {
		if c, ok := MatchCourse(r.CourseTitle); ok {
			r.Title = c
		} else {
			r.Title = OtherCourse
		}
	}

	if r.Kind.HasDates() && r.Period.Empty() {
		if res := dates.Extract(text); res.Found() {
			r.Period = &intyg.Period{StartISO: res.StartISO, EndISO: res.EndISO}
		}
	}
	if !r.Period.Empty() {
		p := r.Period.Mirrored()
		r.Period = &p
	}

	if r.Clinic == "" && r.Subject != "" && subjectIsClinic(r.Kind) {
		r.Clinic = r.Subject
	}

	switch {
	case len(r.DelmalCodes) == 0:
	case r.Kind.Regime() == intyg.Regime2021:
		r.DelmalCodes = fields.NormalizeDelmal2021(r.DelmalCodes)
	case r.Kind.Regime() == intyg.Regime2015:
		r.DelmalCodes = fields.NormalizeDelmal2015(r.DelmalCodes)
	}
	if len(r.DelmalCodes) == 0 {
		r.DelmalCodes = nil
	}

	r.Description = textnorm.EnforceBulletBreaks(r.Description)
	if r.FullName == "" {
		r.FullName = strings.TrimSpace(r.FirstName + " " + r.LastName)
	}

	if s := r.Signer; s != nil {
		if s.Role == intyg.RoleCourseLeader && s.Name == "" {
			s.Name = r.CourseLeader
		}
		if r.CertificateDate == "" && s.PlaceDateRaw != "" {
			r.CertificateDate = dates.Extract(s.PlaceDateRaw).StartISO
		}
		if *s == (intyg.Signer{}) {
			r.Signer = nil
		}
	}

	// Last: nothing above may bring a period back.
	if !r.Kind.HasDates() {
		r.Period = nil
	}
}

func fillPeriod(r *intyg.Record, p intyg.Period) {
	if p.StartISO == "" && p.EndISO == "" {
		return
	}
	if r.Period == nil {
		r.Period = &intyg.Period{}
	}
	if r.Period.StartISO == "" {
		r.Period.StartISO = p.StartISO
	}
	if r.Period.EndISO == "" {
		r.Period.EndISO = p.EndISO
	}
}

func isCourse(k intyg.Kind) bool {
	return k == intyg.Kind2015B5Kurs || k == intyg.Kind2021B10Kurs
}

// subjectIsClinic reports whether the review form shows the subject in the
// clinic field.
func subjectIsClinic(k intyg.Kind) bool {
	switch k {
	case intyg.Kind2015B6Utv, intyg.Kind2015B7Skriftligt, intyg.Kind2021B11Utv, intyg.Kind2021B12STa3:
		return true
	}
	return false
}
