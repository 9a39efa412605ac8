// Package dates finds calendar dates and service periods in OCR text where
// dates appear as separated, 6-digit or 8-digit tokens.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CenturyPivot splits two-digit years: below it they land in the 2000s,
// from it and up in the 1900s.
const CenturyPivot = 50

// sep is the single character between the parts of a separated date.
const sep = `[./\- ]`

// Alternatives in priority order. Each contributes exactly three groups.
const (
	ymd4   = `\b(\d{4})` + sep + `(\d{1,2})` + sep + `(\d{1,2})\b`
	dmy4   = `\b(\d{1,2})` + sep + `(\d{1,2})` + sep + `(\d{4})\b`
	short  = `\b(\d{1,2})(` + sep + `)(\d{1,2})` + sep + `(\d{2})\b`
	bare8  = `\b(\d{4})(\d{2})(\d{2})\b`
	bare6  = `\b(\d{2})(\d{2})(\d{2})\b`
	anyTok = `(?:` + ymd4 + `|` + dmy4 + `|` + short + `|` + bare8 + `|` + bare6 + `)`
)

// Group offsets of each alternative inside anyTok (1-based submatch index).
// The short form carries an extra group holding its first separator.
const (
	grpYMD4   = 1
	grpDMY4   = 4
	grpShort  = 7
	grpBare8  = 11
	grpBare6  = 14
	tokGroups = 16
)

var (
	tokenRe = regexp.MustCompile(anyTok)
	rangeRe = regexp.MustCompile(`(?i)(` + anyTok + `)\s*(?:[–—\-−]|till|to)\s*(` + anyTok + `)`)
	// pnrTailRe matches the four check digits following a personnummer.
	pnrTailRe     = regexp.MustCompile(`^\s*[-+ ]\s*\d{4}\b`)
	rangeWordRe   = regexp.MustCompile(`(?i)(^|\s)(?:[–—\-−]+|till|to)(\s|$)`)
	trailPunctRe  = regexp.MustCompile(`\s*[.,;:–—\-−]+$`)
	spaceRunRe    = regexp.MustCompile(`\s{2,}`)
	oddSingleRe   = regexp.MustCompile(`\b(\d{1,2})[/.](\d{1,2})\s*[-–—]\s*(\d{2,4})\b`)
	continuesDate = regexp.MustCompile(`^[/.\-]\d`)
)

// Token is one recognized date and its byte span in the searched text.
type Token struct {
	ISO   string
	Raw   string
	Start int
	End   int
}

// Result is the outcome of period extraction. CleanedText is the input with
// the date tokens and range words removed.
type Result struct {
	StartISO    string `json:"startISO,omitempty"`
	EndISO      string `json:"endISO,omitempty"`
	CleanedText string `json:"cleanedText"`
}

// Found reports whether any end was resolved.
func (r Result) Found() bool { return r.StartISO != "" || r.EndISO != "" }

// Find returns every valid date token in text, in order of appearance.
// Bare 6- and 8-digit tokens that continue as a personnummer are skipped.
// A match that is not a real date is retried one byte later, so a date
// overlapping it ("Avd 12 13.01.28") is still found.
func Find(text string) []Token {
	var out []Token
	for pos := 0; pos < len(text); {
		m := tokenRe.FindStringSubmatchIndex(text[pos:])
		if m == nil {
			break
		}
		for i := range m {
			if m[i] >= 0 {
				m[i] += pos
			}
		}
		// The search restarted inside a word, where \b does not hold.
		if m[0] > 0 && isWordByte(text[m[0]-1]) {
			pos = m[0] + 1
			continue
		}
		iso, bare := isoFromMatch(text, m, 0)
		if iso == "" {
			pos = m[0] + 1
			continue
		}
		pos = m[1]
		if bare && pnrTailRe.MatchString(text[m[1]:]) {
			continue
		}
		out = append(out, Token{ISO: iso, Raw: text[m[0]:m[1]], Start: m[0], End: m[1]})
	}
	return out
}

func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// Extract locates a service period. A "date - date" range (dash, "till" or
// "to") wins; otherwise the first two dates are start and end. A single date
// yields only StartISO.
func Extract(text string) Result {
	if m := rangeRe.FindStringSubmatchIndex(text); m != nil {
		startISO, _ := isoFromMatch(text, m, 1)
		endISO, _ := isoFromMatch(text, m, 2+tokGroups)
		if startISO != "" && endISO != "" {
			rest := text[:m[0]] + " " + text[m[1]:]
			return Result{StartISO: startISO, EndISO: endISO, CleanedText: Tidy(removeRangeWords(rest))}
		}
	}

	tokens := Find(text)
	res := Result{}
	if len(tokens) > 0 {
		res.StartISO = tokens[0].ISO
	}
	if len(tokens) > 1 {
		res.EndISO = tokens[1].ISO
	}

	var b strings.Builder
	last := 0
	for _, t := range tokens {
		b.WriteString(text[last:t.Start])
		b.WriteByte(' ')
		last = t.End
	}
	b.WriteString(text[last:])
	cleaned := b.String()
	if len(tokens) > 0 {
		cleaned = removeRangeWords(cleaned)
	}
	res.CleanedText = Tidy(cleaned)
	return res
}

// ExtractLine is Extract with one extra reading: "27/1 - 2025" and
// "27.1 - 25" are a single day and month followed by a year.
func ExtractLine(line string) Result {
	if m := oddSingleRe.FindStringSubmatchIndex(line); m != nil && !continuesDate.MatchString(line[m[1]:]) && !afterDatePart(line, m[0]) {
		d, _ := strconv.Atoi(line[m[2]:m[3]])
		mo, _ := strconv.Atoi(line[m[4]:m[5]])
		yRaw := line[m[6]:m[7]]
		y, _ := strconv.Atoi(yRaw)
		if len(yRaw) == 2 {
			y = ExpandYear(y)
		}
		if len(yRaw) != 3 && Valid(y, mo, d) {
			return Result{
				StartISO:    ISO(y, mo, d),
				CleanedText: Tidy(line[:m[0]] + " " + line[m[1]:]),
			}
		}
	}
	return Extract(line)
}

func afterDatePart(s string, i int) bool {
	return i > 0 && strings.ContainsRune("0123456789./-", rune(s[i-1]))
}

// isoFromMatch converts the token whose first alternative group starts at
// base+1. The second value reports a bare digit token.
func isoFromMatch(text string, m []int, base int) (string, bool) {
	group := func(i int) (string, bool) {
		i += base
		if m[2*i] < 0 {
			return "", false
		}
		return text[m[2*i]:m[2*i+1]], true
	}
	ints := func(first int) (int, int, int) {
		a, _ := group(first)
		b, _ := group(first + 1)
		c, _ := group(first + 2)
		x, _ := strconv.Atoi(a)
		y, _ := strconv.Atoi(b)
		z, _ := strconv.Atoi(c)
		return x, y, z
	}

	if _, ok := group(grpYMD4); ok {
		y, mo, d := ints(grpYMD4)
		return checked(y, mo, d), false
	}
	if _, ok := group(grpDMY4); ok {
		d, mo, y := ints(grpDMY4)
		return checked(y, mo, d), false
	}
	if a, ok := group(grpShort); ok {
		separator, _ := group(grpShort + 1)
		b, _ := group(grpShort + 2)
		c, _ := group(grpShort + 3)
		return shortDate(a, separator, b, c), false
	}
	if _, ok := group(grpBare8); ok {
		y, mo, d := ints(grpBare8)
		return checked(y, mo, d), true
	}
	if _, ok := group(grpBare6); ok {
		yy, mo, d := ints(grpBare6)
		return checked(ExpandYear(yy), mo, d), true
	}
	return "", false
}

// shortDate resolves a separated date with a two-digit year. A dash reads as
// short ISO (YY-MM-DD); dots, slashes and spaces read day first (D.M.YY).
// When the preferred reading is not a real date the other one is tried.
func shortDate(a, separator, b, c string) string {
	x, _ := strconv.Atoi(a)
	y, _ := strconv.Atoi(b)
	z, _ := strconv.Atoi(c)

	ymd := func() string {
		if len(a) != 2 {
			return ""
		}
		return checked(ExpandYear(x), y, z)
	}
	dmy := func() string { return checked(ExpandYear(z), y, x) }

	if strings.Trim(separator, " ") == "-" {
		if iso := ymd(); iso != "" {
			return iso
		}
		return dmy()
	}
	if iso := dmy(); iso != "" {
		return iso
	}
	return ymd()
}

func checked(y, m, d int) string {
	if !Valid(y, m, d) {
		return ""
	}
	return ISO(y, m, d)
}

// ExpandYear maps a two-digit year to a full year around CenturyPivot.
func ExpandYear(yy int) int {
	if yy < CenturyPivot {
		return 2000 + yy
	}
	return 1900 + yy
}

// Valid reports whether y-m-d is a real calendar day between 1900 and 2099.
func Valid(y, m, d int) bool {
	if y < 1900 || y > 2099 || m < 1 || m > 12 || d < 1 {
		return false
	}
	return d <= daysIn(y, m)
}

func daysIn(y, m int) int {
	switch m {
	case 2:
		if (y%4 == 0 && y%100 != 0) || y%400 == 0 {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	}
	return 31
}

// ISO formats a date as YYYY-MM-DD.
func ISO(y, m, d int) string { return fmt.Sprintf("%04d-%02d-%02d", y, m, d) }

func removeRangeWords(s string) string {
	// Adjacent range words share a space, so a second pass catches the rest.
	for range 2 {
		s = rangeWordRe.ReplaceAllString(s, "$1$2")
	}
	return s
}

// Tidy squeezes whitespace and drops trailing punctuation left behind after
// dates were cut out of a label.
func Tidy(s string) string {
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = trailPunctRe.ReplaceAllString(strings.TrimSpace(s), "")
	return strings.TrimSpace(s)
}

// ParseDate reads s as exactly one date in any of the accepted forms and
// returns it as ISO.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	toks := Find(s)
	if len(toks) != 1 || toks[0].Start != 0 || toks[0].End != len(s) {
		return "", fmt.Errorf("not a date: %q", s)
	}
	return toks[0].ISO, nil
}
