package textnorm

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "crlf", in: "rad ett\r\nrad två\rrad tre", want: "rad ett\nrad två\nrad tre"},
		{name: "horizontal whitespace", in: "Klinisk \t  tjänstgöring", want: "Klinisk tjänstgöring"},
		{name: "denylist", in: "Efternamn | Förnamn [x] {y} ©2021", want: "Efternamn Förnamn x y 2021"},
		{name: "smart quotes", in: "“Akut” ‘psykiatri’", want: `"Akut" 'psykiatri'`},
		{name: "bullets", in: "• första\n◦ andra", want: "* första\n* andra"},
		{name: "dash capital", in: "mottagning - Handledning varje vecka", want: "mottagning\n- Handledning varje vecka"},
		{name: "dash already at line start", in: "intro\n- Handledning", want: "intro\n- Handledning"},
		{name: "dash lowercase kept", in: "Psykos 280113 - 280415", want: "Psykos 280113 - 280415"},
		{name: "chained dashes", in: "A-B-C", want: "A\n- B\n- C"},
		{name: "trailing spaces", in: "rad   \nnästa  ", want: "rad\nnästa"},
		{name: "blank lines", in: "a\n\n\n\n\nb", want: "a\n\nb"},
		{name: "control chars", in: "a\x00b\x07c\u200bd", want: "abcd"},
		{name: "diacritic before consonant", in: "TjÉnstgöring", want: "Tjänstgöring"},
		{name: "diacritic after vowel", in: "hÉgaÊ", want: "hägaö"},
		{name: "diacritic after fmst", in: "mÉ", want: "må"},
		{name: "diacritic fallback", in: "É", want: "ä"},
		{name: "decomposed input", in: "Tja\u0308nst", want: "Tj\u00e4nst"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeComposesAfterRepair(t *testing.T) {
	assert.Equal(t, "t*äf\u01fb", Normalize("t\u2022\u00e9f\u00c9\u0301"))
}

func TestNormalizeIdempotentExamples(t *testing.T) {
	inputs := []string{
		"Beskrivning av den kliniska tjänstgöringen -Deltagit i jour - Ansvar för avdelning",
		" - Start",
		"a -- B",
		"x  \n \n\n\n - Y ",
		"ÉÉs aÉÉ",
		"t\u2022\u00e9f\u00c9\u0301",
		"Överläkare E\u0301 ö\u0308",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeIdempotentProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	alphabet := []rune("aAeEfFmMsStTbBkKzZÅÄÖåäö0189 -–—\t\n\r|[]{}“”‘’•◦©ÉÈÊéèê.:,*'\"\u200b\x01\u0301\u0308\u030a")
	runeGen := gen.IntRange(0, len(alphabet)-1).Map(func(i int) rune { return alphabet[i] })

	properties.Property("normalize is idempotent", prop.ForAll(
		func(rs []rune) bool {
			once := Normalize(string(rs))
			return Normalize(once) == once
		},
		gen.SliceOf(runeGen),
	))

	properties.Property("output has no carriage returns or tabs", prop.ForAll(
		func(rs []rune) bool {
			out := Normalize(string(rs))
			return !strings.ContainsAny(out, "\r\t")
		},
		gen.SliceOf(runeGen),
	))

	properties.TestingRun(t)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "klinisk tjanstgoring under handledning", Fold("Klinisk  tjänstgöring\nunder HANDLEDNING"))
	assert.Equal(t, "kvalitets- och utvecklingsarbete", Fold("Kvalitets– och utvecklingsarbete"))
	assert.Equal(t, "", Fold(""))
	assert.Equal(t, "sosfs 2015:8", Fold("SOSFS 2015:8"))
}

func TestEnforceBulletBreaks(t *testing.T) {
	in := "* Jour  \r\n\r\n\r\n\r\n* Mottagning\t\n"
	assert.Equal(t, "* Jour\n\n* Mottagning", EnforceBulletBreaks(in))
	assert.Equal(t, "", EnforceBulletBreaks(""))
}

func TestFixLabelTypos(t *testing.T) {
	assert.Equal(t, "Efternamn Förnamn", FixLabelTypos("Eftemamn Fömamn"))
	assert.Equal(t, "Förnamn", FixLabelTypos("fömamn"))
}

func TestSqueeze(t *testing.T) {
	assert.Equal(t, "a b c", Squeeze("  a \n b\t\tc "))
}
