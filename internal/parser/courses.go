package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MeKo-Tech/intygscan/internal/textnorm"
)

// OtherCourse is the title given to a course outside the catalog.
const OtherCourse = "Annan kurs"

// courseCatalog lists the national specialist courses in psychiatry, in the
// order they are offered for selection.
var courseCatalog = []string{
	"Akutpsykiatri",
	"Psykiatrisk diagnostik",
	"Psykiatrisk juridik",
	"Psykofarmakologi",
	"Suicidologi",
	"Levnadsvanor vid psykisk sjukdom",
	"Beroendelära",
	"Affektiva sjukdomar",
	"BUP för vuxenpsykiatriker",
	"Konsultationspsykiatri och psykosomatik",
	"Neuropsykiatri",
	"Personlighetssyndrom",
	"Psykossjukdomar",
	"Ätstörningar",
	"OCD- och relaterade syndrom",
	"Ångest-, trauma- och stressrelaterade syndrom",
	"Äldrepsykiatri",
	"Kritisk läkemedelsvärdering inom psykofarmakologi",
	"Medicinsk vetenskap",
	"Psykiatrisk neurovetenskap",
	"Psykiatri & samhälle",
	"Rättspsykiatri",
	"Sexualmedicin och könsdysfori",
	"Transkulturell psykiatri",
	"Psykoterapi",
	"Ledarskap",
	"Handledning",
	"Palliativ medicin",
}

// Courses returns a copy of the course catalog.
func Courses() []string {
	return append([]string(nil), courseCatalog...)
}

// minPartialShare is the least share of a course name a partial title must
// cover to name that course.
const minPartialShare = 0.6

// MatchCourse finds the catalog course named by raw. An exact match (ignoring
// case and diacritics) wins; otherwise the first course that raw contains,
// or whose name holds raw as whole words covering at least minPartialShare
// of it. Vague titles such as "Psykiatri" match nothing.
func MatchCourse(raw string) (string, bool) {
	q := textnorm.Fold(raw)
	if q == "" {
		return "", false
	}
	for _, c := range courseCatalog {
		if textnorm.Fold(c) == q {
			return c, true
		}
	}
	for _, c := range courseCatalog {
		f := textnorm.Fold(c)
		if strings.Contains(q, f) {
			return c, true
		}
		if float64(utf8.RuneCountInString(q)) >= minPartialShare*float64(utf8.RuneCountInString(f)) && containsWords(f, q) {
			return c, true
		}
	}
	return "", false
}

// containsWords reports whether q occurs in s starting and ending at word
// boundaries.
func containsWords(s, q string) bool {
	for off := 0; off <= len(s)-len(q); {
		i := strings.Index(s[off:], q)
		if i < 0 {
			return false
		}
		start, end := off+i, off+i+len(q)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(s) || !isWordRune(after)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		off = start + size
	}
	return false
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
