package parser

import (
	"regexp"
	"strings"

	"github.com/MeKo-Tech/intygscan/internal/fields"
	"github.com/MeKo-Tech/intygscan/internal/intyg"
)

// minHeadingLines is the least number of content lines a page needs before
// heading parsing is attempted.
const minHeadingLines = 5

var (
	lastNameRe    = regexp.MustCompile(`^efternamn:?$`)
	firstNameRe   = regexp.MustCompile(`^fornamn:?$`)
	bothNamesRe   = regexp.MustCompile(`efternamn.*fornamn|fornamn.*efternamn`)
	pnrLabelRe    = regexp.MustCompile(`^personnummer`)
	specialtyRe   = regexp.MustCompile(`specialitet som ansokan avser`)
	delmalLabelRe = regexp.MustCompile(`delmal som intyget avser`)
	courseCutRe   = regexp.MustCompile(`(?i)f[öo]r kursen|\)`)
	digitRe       = regexp.MustCompile(`\d`)
	rejectNameRe  = regexp.MustCompile(`klinisk tjanstgoring|^sokande$`)
)

// parseHeadings reads a page where every field is a heading line followed by
// its value line, the layout OCR.space produces for the fillable forms.
func parseHeadings(f form, text string) (intyg.Record, bool) {
	p := newPage(text, true)
	if len(p.lines) < minHeadingLines {
		return intyg.Record{}, false
	}
	r := intyg.Record{Kind: f.kind}

	if i := p.find(bothNamesRe); i >= 0 && p.next(i) != "" {
		n := fields.FullNameBlock(p.lines[i] + "\n" + p.next(i))
		r.FirstName, r.LastName = n.First, n.Last
	} else {
		r.LastName = nameValue(p.valueAfter(lastNameRe))
		r.FirstName = nameValue(p.valueAfter(firstNameRe))
	}

	if v := p.valueAfter(pnrLabelRe); v != "" {
		r.Personnummer = fields.Personnummer(v)
	}
	r.Specialty = fields.CleanFieldValue(p.valueAfter(specialtyRe))
	r.DelmalCodes = fields.DelmalCodes(p.valueAfter(delmalLabelRe))

	if f.clinic != nil {
		r.Clinic = placeValue(p, f.clinic)
	}
	if f.subject != nil {
		if f.course {
			r.CourseTitle = courseValue(p, f.subject)
		} else {
			r.Subject = fields.TidyOneLine(p.valueAfter(f.subject))
		}
	}
	r.Description = joinBlocks(p.blockAfter(f.description), p.blockAfter(f.extra))
	r.Signer = parseSigner(p, f)
	if f.course {
		r.CourseLeader = courseLeader(p)
	}

	if isEmpty(r) {
		return intyg.Record{}, false
	}
	return r, true
}

func nameValue(v string) string {
	v = fields.CleanFieldValue(v)
	if rejectNameRe.MatchString(strings.ToLower(v)) {
		return ""
	}
	return v
}

// placeValue returns the raw "place and period" text. When the heading line
// itself carries dates the value was merged onto it and the whole line is
// returned; Finalize cuts the heading off.
func placeValue(p page, label *regexp.Regexp) string {
	i := p.find(label)
	if i < 0 {
		return ""
	}
	if v := p.sameLine(i); v != "" {
		return v
	}
	if digitRe.MatchString(p.lines[i]) {
		return p.lines[i]
	}
	return p.next(i)
}

// courseValue returns the course subject with its period, dropping a merged
// "... för kursen" heading.
func courseValue(p page, label *regexp.Regexp) string {
	i := p.find(label)
	if i < 0 {
		return ""
	}
	if v := p.sameLine(i); v != "" {
		return fields.TidyOneLine(v)
	}
	if line := p.lines[i]; digitRe.MatchString(line) {
		if locs := courseCutRe.FindAllStringIndex(line, -1); len(locs) > 0 {
			line = line[locs[len(locs)-1][1]:]
		}
		return fields.TidyOneLine(line)
	}
	return fields.TidyOneLine(p.next(i))
}

func joinBlocks(blocks ...string) string {
	var out []string
	for _, b := range blocks {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return strings.Join(out, "\n\n")
}
