package parser

import (
	"strings"

	"github.com/MeKo-Tech/intygscan/internal/dates"
	"github.com/MeKo-Tech/intygscan/internal/fields"
	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/layout"
)

// parseZones builds a record from the fixed field rectangles of the kind's
// template. It declines when the kind has no zone set or no words were
// supplied.
func parseZones(f form, words []layout.Word, size *layout.Size) (intyg.Record, bool) {
	if len(words) == 0 {
		return intyg.Record{}, false
	}
	zs, ok := layout.ZoneSetFor(f.kind)
	if !ok {
		return intyg.Record{}, false
	}
	z := zs.Extract(words, size)
	one := func(name string) string { return fields.TidyOneLine(z[name]) }

	r := intyg.Record{
		Kind:         f.kind,
		FirstName:    fields.CleanFieldValue(z["applicantFirstName"]),
		LastName:     fields.CleanFieldValue(z["applicantLastName"]),
		Personnummer: fields.Personnummer(z["personnummer"]),
		Specialty:    one("specialty"),
		DelmalCodes:  fields.DelmalCodes(z["delmal"]),
		Description:  strings.TrimSpace(z["description"]),
		CourseLeader: one("courseLeader"),
	}
	if r.Personnummer == "" {
		r.Personnummer = strings.Join(strings.Fields(z["personnummer"]), "")
	}

	switch {
	case z["clinicAndPeriod"] != "":
		r.Clinic = z["clinicAndPeriod"]
	case z["clinic"] != "":
		r.Clinic = one("clinic")
	}
	if p := dates.Extract(z["period"]); p.Found() {
		r.Period = &intyg.Period{StartISO: p.StartISO, EndISO: p.EndISO}
	}
	if course := firstNonEmpty(z["courseSubjectAndPeriod"], z["courseSubject"]); course != "" {
		r.CourseTitle = fields.TidyOneLine(course)
	}
	if v := one("subject"); v != "" {
		r.Subject = v
	}

	s := intyg.Signer{
		Name:           fields.TidyName(z["supervisorNamePrinted"]),
		Speciality:     one("supervisorSpecialty"),
		Site:           one("supervisorSite"),
		PersonalNumber: fields.Personnummer(z["supervisorPersonnummer"]),
		PlaceDateRaw:   one("supervisorPlaceAndDate"),
	}
	role := zoneRole(z)
	if s != (intyg.Signer{}) || role != "" {
		s.Role = intyg.RoleSupervisor
		if role != "" {
			s.Role = role
		}
		r.Signer = &s
	}
	if isEmpty(r) {
		return intyg.Record{}, false
	}
	return r, true
}

// zoneRole reads the two certifier checkboxes of course templates.
func zoneRole(z map[string]string) string {
	leader := markRe.MatchString(z["certifierIsCourseLeader"])
	supervisor := markRe.MatchString(z["certifierIsSupervisor"])
	switch {
	case leader && !supervisor:
		return intyg.RoleCourseLeader
	case supervisor && !leader:
		return intyg.RoleSupervisor
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
