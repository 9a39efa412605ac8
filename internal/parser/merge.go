package parser

import (
	"slices"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
)

// fill copies every field of src into dst that dst does not have yet.
func fill(dst *intyg.Record, src intyg.Record) {
	str := func(d *string, s string) {
		if *d == "" {
			*d = s
		}
	}
	str(&dst.FirstName, src.FirstName)
	str(&dst.LastName, src.LastName)
	str(&dst.FullName, src.FullName)
	str(&dst.Personnummer, src.Personnummer)
	str(&dst.Specialty, src.Specialty)
	str(&dst.Subject, src.Subject)
	str(&dst.Clinic, src.Clinic)
	str(&dst.CertificateDate, src.CertificateDate)
	str(&dst.Description, src.Description)
	str(&dst.CourseTitle, src.CourseTitle)
	str(&dst.Title, src.Title)
	str(&dst.CourseLeader, src.CourseLeader)
	if len(dst.DelmalCodes) == 0 && len(src.DelmalCodes) > 0 {
		dst.DelmalCodes = slices.Clone(src.DelmalCodes)
	}
	if dst.Period.Empty() && !src.Period.Empty() {
		p := *src.Period
		dst.Period = &p
	}

	switch {
	case src.Signer == nil:
	case dst.Signer == nil:
		s := *src.Signer
		dst.Signer = &s
	default:
		d, s := dst.Signer, src.Signer
		str(&d.Name, s.Name)
		str(&d.Speciality, s.Speciality)
		str(&d.Site, s.Site)
		str(&d.PersonalNumber, s.PersonalNumber)
		str(&d.PlaceDateRaw, s.PlaceDateRaw)
		str(&d.Role, s.Role)
	}
}

// isEmpty reports whether r carries nothing beyond its kind.
func isEmpty(r intyg.Record) bool {
	return r.FirstName == "" && r.LastName == "" && r.FullName == "" &&
		r.Personnummer == "" && r.Specialty == "" && len(r.DelmalCodes) == 0 &&
		r.Subject == "" && r.Clinic == "" && r.Period.Empty() &&
		r.CertificateDate == "" && r.Description == "" &&
		r.CourseTitle == "" && r.Title == "" && r.CourseLeader == "" &&
		(r.Signer == nil || *r.Signer == intyg.Signer{})
}

// missing counts the main fields a strategy left empty. Parse stops asking
// further strategies once nothing is missing.
func missing(r intyg.Record) int {
	n := 0
	for _, v := range []string{r.FirstName, r.LastName, r.Personnummer, r.Description} {
		if v == "" {
			n++
		}
	}
	if r.Clinic == "" && r.Subject == "" && r.CourseTitle == "" {
		n++
	}
	return n
}
