package parser

import (
	"regexp"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
)

// form describes where one template prints its fields. Label patterns match
// folded lines (lower case, no diacritics, see textnorm.Fold).
type form struct {
	kind intyg.Kind

	// clinic labels the "place and period" value; clinicAnchor finds the
	// line carrying it when headings could not be read.
	clinic       *regexp.Regexp
	clinicAnchor *regexp.Regexp

	subject     *regexp.Regexp
	description *regexp.Regexp
	// extra is a second free-text block joined to the description.
	extra *regexp.Regexp

	// course forms carry a course subject that is matched against the
	// course catalog, and a course leader.
	course bool
	// checkbox forms let the certifier tick Handledare or Kursledare.
	checkbox bool
}

var (
	clinic2015Re     = regexp.MustCompile(`t[ji]anstgoringsstalle`)
	clinicAnchorRe   = regexp.MustCompile(`(?i)(tjänstgöringsställe|klinisk tjänstgöring)`)
	auskAnchorRe     = regexp.MustCompile(`(?i)(tjänstgöringsställe|auskultation)`)
	descKlinRe       = regexp.MustCompile(`beskrivning av (den )?(kliniska )?tjanstgoring`)
	descAuskRe       = regexp.MustCompile(`beskrivning av auskultation`)
	descKursRe       = regexp.MustCompile(`beskrivning av kursen`)
	descUtv2015Re    = regexp.MustCompile(`beskrivning av kvalitets`)
	descUtv2021Re    = regexp.MustCompile(`beskrivning av st-lakarens deltagande`)
	descSkrRe        = regexp.MustCompile(`beskrivning av det sj?alvstandiga`)
	activitiesRe     = regexp.MustCompile(`utbildningsaktiviteter som sokanden genomfort`)
	verificationRe   = regexp.MustCompile(`hur det kontrollerats|hur uppfyllelse kontrollerats`)
	subjectKurs2015  = regexp.MustCompile(`amne.*rubrik.*period|amne \(i rubrikform\)`)
	subjectKurs2021  = regexp.MustCompile(`kursens amne`)
	subjectUtv2015Re = regexp.MustCompile(`amne for kvalitets`)
	subjectUtv2021Re = regexp.MustCompile(`utvecklingsarbetets amne`)
	subjectSkrRe     = regexp.MustCompile(`amne for sj?alvstandigt|^titel$|amne \(rubrik\)`)
)

var forms = map[intyg.Kind]form{
	intyg.Kind2015B3Ausk: {
		kind: intyg.Kind2015B3Ausk, clinic: clinic2015Re, clinicAnchor: auskAnchorRe,
		description: descAuskRe,
	},
	intyg.Kind2015B4Klin: {
		kind: intyg.Kind2015B4Klin, clinic: clinic2015Re, clinicAnchor: clinicAnchorRe,
		description: descKlinRe,
	},
	intyg.Kind2015B5Kurs: {
		kind: intyg.Kind2015B5Kurs, subject: subjectKurs2015, description: descKursRe,
		course: true, checkbox: true,
	},
	intyg.Kind2015B6Utv: {
		kind: intyg.Kind2015B6Utv, subject: subjectUtv2015Re, description: descUtv2015Re,
	},
	intyg.Kind2015B7Skriftligt: {
		kind: intyg.Kind2015B7Skriftligt, subject: subjectSkrRe, description: descSkrRe,
	},
	intyg.Kind2021B8Ausk: {
		kind: intyg.Kind2021B8Ausk, clinic: clinic2015Re, clinicAnchor: auskAnchorRe,
		description: descAuskRe,
	},
	intyg.Kind2021B9Klin: {
		kind: intyg.Kind2021B9Klin, clinic: clinic2015Re, clinicAnchor: clinicAnchorRe,
		description: descKlinRe,
	},
	intyg.Kind2021B10Kurs: {
		kind: intyg.Kind2021B10Kurs, subject: subjectKurs2021, description: descKursRe,
		course: true, checkbox: true,
	},
	intyg.Kind2021B11Utv: {
		kind: intyg.Kind2021B11Utv, subject: subjectUtv2021Re, description: descUtv2021Re,
	},
	intyg.Kind2021B12STa3: {
		kind: intyg.Kind2021B12STa3, description: activitiesRe, extra: verificationRe,
	},
	intyg.Kind2021B13Tredjeland: {
		kind: intyg.Kind2021B13Tredjeland, description: activitiesRe, extra: verificationRe,
	},
}

// labelPatterns recognise any printed heading line on the forms. A value is
// never taken from a line that matches one of them.
var (
	exactLabels = map[string]bool{
		"efternamn": true, "fornamn": true, "personnummer": true, "specialitet": true,
		"tjanstestalle": true, "tjanststalle": true, "namnfortydligande": true,
		"intygande": true, "handledare": true, "kursledare": true, "namnteckning": true,
		"ort och datum": true, "ort o datum": true, "beskrivning": true, "sokande": true,
		"efternamn fornamn": true, "fornamn efternamn": true,
	}
	labelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`specialitet som ansokan avser`),
		regexp.MustCompile(`delmal som intyget avser`),
		clinic2015Re,
		regexp.MustCompile(`^beskrivning av`),
		regexp.MustCompile(`^amne (for|\(i)`),
		subjectKurs2021,
		subjectUtv2021Re,
		activitiesRe,
		verificationRe,
	}
)

// ignoreLines are footer and button texts dropped before heading parsing.
var ignoreLines = []*regexp.Regexp{
	regexp.MustCompile(`^\*{3,}`),
	regexp.MustCompile(`^(page|sida) \d+$`),
	regexp.MustCompile(`\bsosfs 2015:8\b|\bhslf-fs 2021:8\b`),
	regexp.MustCompile(`^bilaga( nr)?:? ?\d*$`),
	regexp.MustCompile(`^intyg$`),
	regexp.MustCompile(`\bskriv ut\b`),
	regexp.MustCompile(`^rensa$`),
	regexp.MustCompile(`om genomford utbildningsaktivitet`),
	regexp.MustCompile(`^uppfyllda kompetenskrav$`),
	regexp.MustCompile(`^sokande$`),
	regexp.MustCompile(`^intygande$`),
	regexp.MustCompile(`sokanden har genomfort`),
	regexp.MustCompile(`^\d+ ?\(\d+\)$`),
}
