// Package textnorm cleans raw OCR output from scanned certificates into the
// baseline text every later extraction stage works on.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns the cleaned form of raw OCR text. It is pure and
// idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	s := applyLineEndings(raw)
	s = removeInvisible(s)
	s = norm.NFC.String(s)
	s = applySymbolMap(s)
	s = repairDiacritics(s)
	s = breakBeforeDashCapital(s)
	s = applyWhitespace(s)

	// Repaired letters can sit before a combining mark from the input.
	return norm.NFC.String(s)
}

func applyLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// removeInvisible drops control and zero-width characters. Tabs and other
// horizontal spacing become plain spaces.
func removeInvisible(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r == '\u200B', r == '\u200C', r == '\u200D', r == '\uFEFF', r == '\uFE0E', r == '\uFE0F':
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// symbolMap rewrites typographic quotes and bullets and blanks out symbols
// that never carry meaning on a certificate.
var symbolMap = func() map[rune]string {
	m := map[rune]string{
		'“': `"`, '”': `"`, '„': `"`, '«': `"`, '»': `"`,
		'‘': "'", '’': "'", '‚': "'", '´': "'", '`': "'",
		'•': "*", '◦': "*", '▪': "*", '●': "*", '‣': "*", '∙': "*",
	}
	for _, r := range "|【】[]<>{}©®™@£$€∞§≈±°^~_#=†‡·" {
		m[r] = " "
	}
	return m
}()

func applySymbolMap(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if rep, ok := symbolMap[r]; ok {
			b.WriteString(rep)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// OCR engines trained without Swedish read å, ä and ö as an accented E.
var (
	misreadBeforeConsonant = regexp.MustCompile(`[ÉÈÊéèê]([bcdfghjklmnpqrstvwxzBCDFGHJKLMNPQRSTVWXZ])`)
	misreadAfterVowel      = regexp.MustCompile(`([aeiouyåäöAEIOUYÅÄÖ])[ÉÈÊéèê]`)
	misreadAfterFMST       = regexp.MustCompile(`([fFmMsStT])[ÉÈÊéèê]`)
	misreadAny             = regexp.MustCompile(`[ÉÈÊéèê]`)
)

func repairDiacritics(s string) string {
	if !misreadAny.MatchString(s) {
		return s
	}
	s = misreadBeforeConsonant.ReplaceAllString(s, "ä$1")
	s = misreadAfterVowel.ReplaceAllString(s, "${1}ö")
	s = misreadAfterFMST.ReplaceAllString(s, "${1}å")
	return misreadAny.ReplaceAllString(s, "ä")
}

func isDash(r rune) bool { return r == '-' || r == '–' || r == '—' }

func isUpperSwedish(r rune) bool {
	return (r >= 'A' && r <= 'Z') || r == 'Å' || r == 'Ä' || r == 'Ö'
}

// breakBeforeDashCapital starts a new "- X" line where OCR glued a dash
// item onto the previous line. A dash that already opens a line is kept.
func breakBeforeDashCapital(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 8)

	i := 0
	for i < len(rs) {
		if !isDash(rs[i]) {
			b.WriteRune(rs[i])
			i++
			continue
		}

		after := i + 1
		for after < len(rs) && rs[after] == ' ' {
			after++
		}
		before := i - 1
		for before >= 0 && rs[before] == ' ' {
			before--
		}
		if after >= len(rs) || !isUpperSwedish(rs[after]) || before < 0 || rs[before] == '\n' {
			b.WriteRune(rs[i])
			i++
			continue
		}

		// The spaces before the dash were already written; trailing space
		// trimming removes them.
		b.WriteString("\n- ")
		i = after
	}
	return b.String()
}

var (
	horizontalSpaceRe = regexp.MustCompile(`[^\S\n]+`)
	manyNewlinesRe    = regexp.MustCompile(`\n{3,}`)
)

func applyWhitespace(s string) string {
	s = horizontalSpaceRe.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	s = strings.Join(lines, "\n")
	s = manyNewlinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// FixLabelTypos repairs the name labels OCR most often garbles.
func FixLabelTypos(s string) string {
	s = fornamnTypoRe.ReplaceAllString(s, "Förnamn")
	return efternamnTypoRe.ReplaceAllString(s, "Efternamn")
}

var (
	fornamnTypoRe   = regexp.MustCompile(`(?i)\bFömamn\b`)
	efternamnTypoRe = regexp.MustCompile(`(?i)\bEftemamn\b`)
)
