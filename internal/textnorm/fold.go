package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	stripMarks = runes.Remove(runes.In(unicode.Mn))
	anyDashRe  = regexp.MustCompile(`[\-‐‑‒–—−]`)
	anySpaceRe = regexp.MustCompile(`\s+`)
)

// Fold returns the matching form of s: decomposed, without diacritics, with
// every dash variant as "-", whitespace squeezed to single spaces and lower
// case. "Tjänstgöring" folds to "tjanstgoring".
func Fold(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFKD, stripMarks, norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = anyDashRe.ReplaceAllString(out, "-")
	out = anySpaceRe.ReplaceAllString(out, " ")
	return strings.ToLower(strings.TrimSpace(out))
}

// EnforceBulletBreaks tidies a multi-line description: line endings are
// unified, trailing spaces dropped and runs of blank lines squeezed. No new
// bullets are introduced.
func EnforceBulletBreaks(s string) string {
	if s == "" {
		return s
	}
	s = applyLineEndings(s)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	s = manyNewlinesRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}

// Squeeze collapses every whitespace run, newlines included, to one space.
func Squeeze(s string) string {
	return strings.TrimSpace(anySpaceRe.ReplaceAllString(s, " "))
}
