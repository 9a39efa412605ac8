package parser

import (
	"regexp"
	"strings"

	"github.com/MeKo-Tech/intygscan/internal/fields"
	"github.com/MeKo-Tech/intygscan/internal/intyg"
)

var (
	namePrintedRe  = regexp.MustCompile(`^namnfortydligande`)
	namePrefixRe   = regexp.MustCompile(`(?i)^namnf[öo]rtydligande\s*:?\s*`)
	speciality     = regexp.MustCompile(`^specialitet:?$`)
	siteRe         = regexp.MustCompile(`^(tjanstestalle|tjanststalle|tianstestalle):?$`)
	placeDateRe    = regexp.MustCompile(`^ort (och|o) datum:?$`)
	pageNumberRe   = regexp.MustCompile(`^\d+\s*\(?\d*\)?$`)
	footerCutRe    = regexp.MustCompile(`(?i)\s+(SOSFS|HSLF|Bilaga)\b.*$`)
	courseLeaderRe = regexp.MustCompile(`^kursledare:?$`)

	// markRe matches a tick drawn or typed before a role word.
	markRe       = regexp.MustCompile(`[☒✓✗☑✔✘]|(^|\s)[xX](\s|$)`)
	supervisorRe = regexp.MustCompile(`(?i)handledare`)
	leaderRe     = regexp.MustCompile(`(?i)kursledare`)
)

// nameLookahead is how many lines below "Namnförtydligande" are searched for
// the printed name.
const nameLookahead = 3

// parseSigner reads the certifying person from the signature area. It
// returns nil when nothing was found.
func parseSigner(p page, f form) *intyg.Signer {
	s := intyg.Signer{
		Name:         signerName(p),
		Speciality:   fields.TidyOneLine(p.valueAfter(speciality)),
		Site:         cutFooter(p.valueAfter(siteRe)),
		PlaceDateRaw: fields.TidyOneLine(p.valueAfter(placeDateRe)),
	}
	var role string
	if f.checkbox {
		role = checkedRole(p.lines)
	}
	if s == (intyg.Signer{}) && role == "" {
		return nil
	}
	s.Role = intyg.RoleSupervisor
	if role != "" {
		s.Role = role
	}
	return &s
}

func signerName(p page) string {
	i := p.find(namePrintedRe)
	if i < 0 {
		return ""
	}
	if n := fields.TidyName(namePrefixRe.ReplaceAllString(p.lines[i], "")); n != "" {
		return n
	}
	for j := i + 1; j < len(p.lines) && j <= i+nameLookahead; j++ {
		f := p.folded[j]
		if p.isLabel(j) || pageNumberRe.MatchString(f) || (strings.Contains(f, "namn") && strings.Contains(f, "handledare")) {
			continue
		}
		if n := fields.TidyName(p.lines[j]); n != "" {
			return n
		}
	}
	return ""
}

func cutFooter(s string) string {
	return strings.TrimSpace(footerCutRe.ReplaceAllString(fields.TidyOneLine(s), ""))
}

// checkedRole decides who certified a course: the role whose line carries a
// tick mark while the other one does not. Lines naming both roles say
// nothing.
func checkedRole(lines []string) string {
	var supervisor, leader bool
	for _, l := range lines {
		hasSup, hasLead := supervisorRe.MatchString(l), leaderRe.MatchString(l)
		if hasSup == hasLead || !markRe.MatchString(l) {
			continue
		}
		if hasSup {
			supervisor = true
		} else {
			leader = true
		}
	}
	switch {
	case supervisor && !leader:
		return intyg.RoleSupervisor
	case leader && !supervisor:
		return intyg.RoleCourseLeader
	}
	return ""
}

// courseLeader returns the name under the course section's "Kursledare"
// heading.
func courseLeader(p page) string {
	v := p.valueAfter(courseLeaderRe)
	if v == "" || markRe.MatchString(v) {
		return ""
	}
	return fields.TidyOneLine(v)
}
