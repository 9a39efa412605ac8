// Package fields splits composite certificate lines into their parts and
// pulls small labelled values (names, personnummer, delmål codes) out of
// normalized OCR text.
package fields

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/MeKo-Tech/intygscan/internal/dates"
	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/textnorm"
)

var (
	headingTailRe  = regexp.MustCompile(`(?i)tjänstgöringen|tjanstgoringen|\)`)
	bare6Re        = regexp.MustCompile(`\b\d{6}\b`)
	bare8Re        = regexp.MustCompile(`\b\d{8}\b`)
	sepDateRe      = regexp.MustCompile(`\b\d{2}[.\-/]\d{2}[.\-/]\d{2,4}\b`)
	digitRe        = regexp.MustCompile(`\d`)
	pnrRe          = regexp.MustCompile(`\b(\d{6}|\d{8})[- ]?\d{4}\b`)
	delmalRe       = regexp.MustCompile(`(?i)\b((?:ST)?[abc][0-9]{1,2})\b`)
	delmalPartsRe  = regexp.MustCompile(`(?i)^(?:ST)?([abc])(\d+)$`)
	specialtyRe    = regexp.MustCompile(`(?i)specialitet\s+som\s+ansökan\s+avser\s*:?\s*([^\n]+)`)
	nameFallbackRe = regexp.MustCompile(`\n([A-ZÅÄÖ][a-zåäö]+)[ \t]+([A-ZÅÄÖ][a-zåäö]+)`)
	blockStopRe    = regexp.MustCompile(`(?i)(Ort och datum|Namnteckning|Namnförtydligande|Specialitet|Tjänsteställe|Bilaga nr)`)
	nameLabelRe    = regexp.MustCompile(`(?i)^\s*(f[öo]rnamn|efternamn)\s*[:\-]?\s*`)
	bracketRe      = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)
	nonNameRe      = regexp.MustCompile(`[^A-Za-zÅÄÖåäöÉé' \-]+`)
	placeWordRe    = regexp.MustCompile(`(?i)(kliniken|mottagningen|universitetssjukhuset|v[aä]rdcentralen|enheten|^avd\s)`)
	nameWord       = `[A-ZÅÄÖÉ][A-Za-zÅÄÖåäöÉé'\-]*[a-zåäöé][A-Za-zÅÄÖåäöÉé'\-]*`
	personNameRe   = regexp.MustCompile(nameWord + `\s+` + nameWord + `(?:\s+` + nameWord + `)?`)
	leadPunctRe    = regexp.MustCompile(`^[,.:;\-–—]+`)
	firstWordRe    = regexp.MustCompile(`^[A-Za-zÅÄÖåäö\-]+`)
)

// Lines splits text into trimmed, non-empty lines.
func Lines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// LastLine returns the bottom non-empty line of a multi-line field.
func LastLine(text string) string {
	lines := Lines(text)
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

// CutAfterLastHeading drops a printed heading that OCR merged onto a data
// line. Everything up to and including the last heading keyword
// ("tjänstgöringen" in either spelling, or a closing parenthesis) goes.
func CutAfterLastHeading(line string) string {
	locs := headingTailRe.FindAllStringIndex(line, -1)
	if len(locs) == 0 {
		return strings.TrimSpace(line)
	}
	end := 0
	for _, l := range locs {
		if l[1] > end {
			end = l[1]
		}
	}
	return strings.TrimSpace(line[end:])
}

// SplitPlaceAndPeriod separates "Psykos 280113 280415" into the place label
// and the period. Date-looking digit runs that did not parse are removed from
// the label as well.
func SplitPlaceAndPeriod(line string) (string, intyg.Period) {
	var p intyg.Period
	label := strings.TrimSpace(line)
	if digitRe.MatchString(label) {
		r := dates.ExtractLine(label)
		p.StartISO, p.EndISO = r.StartISO, r.EndISO
		if r.CleanedText != "" || r.Found() {
			label = r.CleanedText
		}
	}
	label = sepDateRe.ReplaceAllString(label, " ")
	label = bare8Re.ReplaceAllString(label, " ")
	label = bare6Re.ReplaceAllString(label, " ")
	return dates.Tidy(label), p
}

// ClinicAndPeriod cleans a clinic field: the last line is kept, a merged
// heading is cut off and dates move into the period.
func ClinicAndPeriod(raw string) (string, intyg.Period) {
	return SplitPlaceAndPeriod(CutAfterLastHeading(LastLine(raw)))
}

// Personnummer finds a Swedish personal identity number (YYMMDD-NNNN or
// YYYYMMDD-NNNN, dash optional) and returns it without spaces.
func Personnummer(text string) string {
	m := pnrRe.FindString(textnorm.Squeeze(text))
	return strings.ReplaceAll(m, " ", "")
}

// DelmalCodes returns every delmål code in text (a1, STb2, ...) upper-cased,
// deduplicated, in order of appearance.
func DelmalCodes(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range delmalRe.FindAllStringSubmatch(text, -1) {
		code := strings.ToUpper(m[1])
		if !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	return out
}

type delmal struct {
	group byte
	n     int
}

// delmal groups and their highest number per regime.
var (
	delmalMax2021 = map[byte]int{'a': 7, 'b': 4, 'c': 14}
	delmalMax2015 = map[byte]int{'a': 6, 'b': 5, 'c': 14}
)

func normalizeDelmal(codes []string, limits map[byte]int, format func(delmal) string) []string {
	seen := map[delmal]bool{}
	var ds []delmal
	for _, c := range codes {
		m := delmalPartsRe.FindStringSubmatch(strings.TrimSpace(c))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		d := delmal{group: strings.ToLower(m[1])[0], n: n}
		if n < 1 || n > limits[d.group] || seen[d] {
			continue
		}
		seen[d] = true
		ds = append(ds, d)
	}
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].group != ds[j].group {
			return ds[i].group < ds[j].group
		}
		return ds[i].n < ds[j].n
	})
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = format(d)
	}
	return out
}

// NormalizeDelmal2021 maps codes to the STa1-STa7, STb1-STb4, STc1-STc14
// catalogue, drops unknown ones and sorts by group then number.
func NormalizeDelmal2021(codes []string) []string {
	return normalizeDelmal(codes, delmalMax2021, func(d delmal) string {
		return fmt.Sprintf("ST%c%d", d.group, d.n)
	})
}

// NormalizeDelmal2015 maps codes to the a1-a6, b1-b5, c1-c14 catalogue.
func NormalizeDelmal2015(codes []string) []string {
	return normalizeDelmal(codes, delmalMax2015, func(d delmal) string {
		return fmt.Sprintf("%c%d", d.group, d.n)
	})
}

// Name is an applicant name. Full is "First Last".
type Name struct {
	Full  string
	First string
	Last  string
}

// FullNameBlock reads the applicant name printed under the
// "Efternamn Förnamn" heading, surname first.
func FullNameBlock(text string) Name {
	text = textnorm.FixLabelTypos(text)
	lines := Lines(text)
	for i, l := range lines {
		lower := strings.ToLower(l)
		if !strings.Contains(lower, "efternamn") || !strings.Contains(lower, "förnamn") || i+1 >= len(lines) {
			continue
		}
		parts := strings.Fields(lines[i+1])
		if len(parts) >= 2 {
			return newName(strings.Join(parts[1:], " "), parts[0])
		}
	}
	if m := nameFallbackRe.FindStringSubmatch(text); m != nil {
		return newName(m[2], m[1])
	}
	return Name{}
}

func newName(first, last string) Name {
	return Name{Full: strings.TrimSpace(first + " " + last), First: first, Last: last}
}

// Specialty returns the value of "Specialitet som ansökan avser".
func Specialty(text string) string {
	if m := specialtyRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// SubjectAfterLabel joins the one or two lines following the first match of
// label.
func SubjectAfterLabel(text string, label *regexp.Regexp) string {
	loc := label.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	lines := strings.Split(text[loc[0]:], "\n")
	if len(lines) < 2 {
		return ""
	}
	end := min(3, len(lines))
	return textnorm.Squeeze(strings.Join(lines[1:end], " "))
}

// BlockAfterLabel collects the free-text block under label up to a blank
// line or the next signature-area label.
func BlockAfterLabel(text string, label *regexp.Regexp) string {
	loc := label.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	lines := strings.Split(text[loc[0]:], "\n")[1:]
	var buf []string
	for _, l := range lines {
		if strings.TrimSpace(l) == "" || blockStopRe.MatchString(l) {
			break
		}
		buf = append(buf, l)
	}
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(strings.Join(buf, "\n"), " "))
}

var spaceRunRe = regexp.MustCompile(`[^\S\n]{2,}`)

var headingTokens = map[string]bool{
	"kurs": true, "sokande": true, "namn": true, "specialitet": true,
	"tjanstestalle": true, "tjanststalle": true, "tianstestalle": true,
	"ort": true, "och": true, "datum": true,
}

// IsHeadingLikeValue reports whether a value is just printed heading words
// ("Ort och datum", "Sökande") that OCR returned in place of a filled field.
func IsHeadingLikeValue(s string) bool {
	tokens := strings.Fields(textnorm.Fold(s))
	if len(tokens) == 0 || len(tokens) > 6 {
		return false
	}
	for _, t := range tokens {
		if !headingTokens[strings.Trim(t, ":.,")] {
			return false
		}
	}
	return true
}

// CleanFieldValue keeps the first line (or first pipe-separated cell) of a
// value, drops a leading Förnamn/Efternamn label and rejects heading words.
func CleanFieldValue(s string) string {
	cut, _, _ := strings.Cut(s, "\n")
	cut, _, _ = strings.Cut(cut, "|")
	cleaned := strings.TrimSpace(nameLabelRe.ReplaceAllString(cut, ""))
	if IsHeadingLikeValue(cleaned) {
		return ""
	}
	return cleaned
}

// TidyOneLine flattens s to one line without pipes or leading punctuation.
func TidyOneLine(s string) string {
	s = strings.ReplaceAll(s, "|", " ")
	s = textnorm.Squeeze(s)
	return strings.TrimSpace(leadPunctRe.ReplaceAllString(s, ""))
}

// FirstWord returns the leading alphabetic word of s, or s trimmed when it
// does not start with a letter.
func FirstWord(s string) string {
	s = strings.TrimSpace(s)
	if m := firstWordRe.FindString(s); m != "" {
		return m
	}
	return s
}

// TidyName extracts a person name of two or three capitalised words from a
// signature-area value. Place names, heading words and all-caps tokens make
// the value unusable and yield "".
func TidyName(s string) string {
	cleaned := bracketRe.ReplaceAllString(s, " ")
	cleaned = textnorm.Squeeze(nonNameRe.ReplaceAllString(cleaned, " "))
	if cleaned == "" || placeWordRe.MatchString(cleaned) || strings.Contains(textnorm.Fold(cleaned), "namn") {
		return ""
	}
	for _, t := range strings.Fields(cleaned) {
		if len([]rune(t)) >= 2 && isAllUpper(t) {
			return ""
		}
	}
	return personNameRe.FindString(cleaned)
}

func isAllUpper(s string) bool {
	letters := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters = true
		}
	}
	return letters
}
