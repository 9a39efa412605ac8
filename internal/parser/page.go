package parser

import (
	"regexp"
	"strings"

	"github.com/MeKo-Tech/intygscan/internal/fields"
	"github.com/MeKo-Tech/intygscan/internal/textnorm"
)

// page is the line view of a certificate text used by heading parsing.
// folded[i] is the matching form of lines[i].
type page struct {
	lines  []string
	folded []string
}

func newPage(text string, dropBoilerplate bool) page {
	var p page
	for _, l := range fields.Lines(textnorm.FixLabelTypos(text)) {
		f := textnorm.Fold(l)
		if dropBoilerplate && matchesAny(ignoreLines, f) {
			continue
		}
		p.lines = append(p.lines, l)
		p.folded = append(p.folded, f)
	}
	return p
}

func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re != nil && re.MatchString(s) {
			return true
		}
	}
	return false
}

// isLabel reports whether line i is a printed heading.
func (p page) isLabel(i int) bool {
	f := strings.TrimRight(p.folded[i], ": ")
	return exactLabels[f] || matchesAny(labelPatterns, f)
}

// find returns the first line whose folded form matches re, or -1.
func (p page) find(re *regexp.Regexp) int {
	return p.findFrom(re, 0)
}

func (p page) findFrom(re *regexp.Regexp, from int) int {
	if re == nil {
		return -1
	}
	for i := from; i < len(p.folded); i++ {
		if re.MatchString(p.folded[i]) {
			return i
		}
	}
	return -1
}

// sameLine returns the text after the first colon of line i.
func (p page) sameLine(i int) string {
	_, after, ok := strings.Cut(p.lines[i], ":")
	if !ok {
		return ""
	}
	return strings.TrimSpace(after)
}

// next returns line i+1 unless it is missing or a heading.
func (p page) next(i int) string {
	if i < 0 || i+1 >= len(p.lines) || p.isLabel(i+1) {
		return ""
	}
	return p.lines[i+1]
}

// valueAfter returns the single-line value printed under the heading re:
// text after a colon on the heading line, else the following line.
func (p page) valueAfter(re *regexp.Regexp) string {
	i := p.find(re)
	if i < 0 {
		return ""
	}
	if v := p.sameLine(i); v != "" {
		return v
	}
	return p.next(i)
}

// blockAfter collects the free-text lines under the heading re until the
// next heading.
func (p page) blockAfter(re *regexp.Regexp) string {
	i := p.find(re)
	if i < 0 {
		return ""
	}
	var out []string
	if v := p.sameLine(i); v != "" {
		out = append(out, v)
	}
	for j := i + 1; j < len(p.lines); j++ {
		if j == i+1 && (p.folded[j] == "beskrivning" || re.MatchString(p.folded[j])) {
			continue
		}
		if p.isLabel(j) {
			break
		}
		out = append(out, p.lines[j])
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
