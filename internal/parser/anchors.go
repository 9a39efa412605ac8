package parser

import (
	"regexp"

	"github.com/MeKo-Tech/intygscan/internal/fields"
	"github.com/MeKo-Tech/intygscan/internal/intyg"
)

var (
	descAnchors = map[intyg.Kind]*regexp.Regexp{
		intyg.Kind2015B3Ausk:        regexp.MustCompile(`(?i)Beskrivning av auskultationen`),
		intyg.Kind2021B8Ausk:        regexp.MustCompile(`(?i)Beskrivning av auskultationen`),
		intyg.Kind2015B4Klin:        regexp.MustCompile(`(?i)Beskrivning av den kliniska tjänstgöringen`),
		intyg.Kind2021B9Klin:        regexp.MustCompile(`(?i)Beskrivning av den kliniska tjänstgöringen`),
		intyg.Kind2015B5Kurs:        regexp.MustCompile(`(?i)Beskrivning av kursen`),
		intyg.Kind2021B10Kurs:       regexp.MustCompile(`(?i)Beskrivning av kursen`),
		intyg.Kind2015B6Utv:         regexp.MustCompile(`(?i)Beskrivning av kvalitets`),
		intyg.Kind2021B11Utv:        regexp.MustCompile(`(?i)Beskrivning av ST-läkarens deltagande`),
		intyg.Kind2015B7Skriftligt:  regexp.MustCompile(`(?i)Beskrivning av det självständiga`),
		intyg.Kind2021B12STa3:       regexp.MustCompile(`(?i)Utbildningsaktiviteter som sökanden genomfört`),
		intyg.Kind2021B13Tredjeland: regexp.MustCompile(`(?i)Utbildningsaktiviteter som sökanden genomfört`),
	}
	verificationAnchor = regexp.MustCompile(`(?i)Hur det kontrollerats`)
	subjectAnchors     = map[intyg.Kind]*regexp.Regexp{
		intyg.Kind2015B5Kurs:       regexp.MustCompile(`(?i)Ämne \(i rubrikform\)|Kursens ämne`),
		intyg.Kind2021B10Kurs:      regexp.MustCompile(`(?i)Kursens ämne`),
		intyg.Kind2015B6Utv:        regexp.MustCompile(`(?i)Ämne för kvalitets`),
		intyg.Kind2021B11Utv:       regexp.MustCompile(`(?i)Utvecklingsarbetets ämne`),
		intyg.Kind2015B7Skriftligt: regexp.MustCompile(`(?i)Ämne för självständigt`),
	}
	// inlineCourseRe reads "Kursens ämne (rubrik): Akutpsykiatri" on one line.
	inlineCourseRe = regexp.MustCompile(`(?i)Kursens ämne[^:\n]*:\s*(.+)`)
)

// parseAnchors is the last text-only strategy: every field is located by a
// phrase anywhere in the text, without relying on line structure.
func parseAnchors(f form, text string) intyg.Record {
	n := fields.FullNameBlock(text)
	r := intyg.Record{
		Kind:         f.kind,
		FirstName:    n.First,
		LastName:     n.Last,
		Personnummer: fields.Personnummer(text),
		Specialty:    fields.Specialty(text),
		DelmalCodes:  fields.DelmalCodes(text),
	}
	if f.clinicAnchor != nil {
		r.Clinic = anchorLine(text, f.clinicAnchor)
	}
	if re, ok := subjectAnchors[f.kind]; ok {
		subject := fields.SubjectAfterLabel(text, re)
		if f.course {
			if m := inlineCourseRe.FindStringSubmatch(text); m != nil {
				subject = m[1]
			}
			r.CourseTitle = fields.TidyOneLine(subject)
		} else {
			r.Subject = subject
		}
	}
	if re, ok := descAnchors[f.kind]; ok {
		desc := fields.BlockAfterLabel(text, re)
		if f.extra != nil {
			desc = joinBlocks(desc, fields.BlockAfterLabel(text, verificationAnchor))
		}
		r.Description = desc
	}
	return r
}

// anchorLine returns the first line matching re that carries digits, the
// value merged onto its heading. A bare printed heading yields the line below
// it. Other matching lines, such as the form title, are passed over.
func anchorLine(text string, re *regexp.Regexp) string {
	p := newPage(text, false)
	for i, l := range p.lines {
		switch {
		case !re.MatchString(l):
		case digitRe.MatchString(l):
			return l
		case p.isLabel(i):
			return p.next(i)
		}
	}
	return ""
}
