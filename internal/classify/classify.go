// Package classify decides which certificate template a normalized OCR text
// was read from.
//
// Classification runs in three steps. Cues are collected from the folded
// text (regime markers, the printed annex number and template keywords). The
// signature table is then scanned in priority order and the first row whose
// cues are all present wins. Finally two corrections apply: the hard
// detection of the 2015 clinical-service form, and the override table that
// maps a 2021 kind back to its 2015 counterpart when the text carries the
// 2015 regulation number.
package classify

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/textnorm"
)

// Cue names. Annex cues are "annex:<n>".
const (
	CueRegime2015      = "regime:2015"
	CueRegime2021      = "regime:2021"
	CueAuskultation    = "kw:auskultation"
	CueKlinisk         = "kw:klinisk"
	CueKurs            = "kw:kurs"
	CueUtveckling      = "kw:utveckling"
	CueSkriftligt      = "kw:skriftligt"
	CueSTa3            = "kw:sta3"
	CueTredjeland      = "kw:tredjeland"
	CueAnsokan         = "kw:ansokan"
	CueFullstandighet  = "kw:fullstandighet"
	CueUppnadd         = "kw:uppnadd"
	CueHardKlinisk2015 = "hard:2015-klinisk"
)

// AnnexCue returns the cue fired by a printed "Bilaga <n>".
func AnnexCue(n int) string { return "annex:" + strconv.Itoa(n) }

type cueRule struct {
	name string
	re   *regexp.Regexp
}

// Rules run against folded text.
var cueRules = []cueRule{
	{CueRegime2015, regexp.MustCompile(`\bsosfs\s*2015[:\s]*8\b|\b2015:8\b`)},
	{CueRegime2021, regexp.MustCompile(`\b2021-2-7212\b|\bbilaga\s+\d{1,2}\b|\bhslf-fs\s*2021:8\b`)},
	{CueAuskultation, regexp.MustCompile(`\bauskultation`)},
	{CueKlinisk, regexp.MustCompile(`\bkliniska?\s+tjanstgor`)},
	{CueKurs, regexp.MustCompile(`\bkurs(en|ens|ledare)?\b`)},
	{CueUtveckling, regexp.MustCompile(`\bkvalitets[- ]|\butvecklingsarbet|\bdeltagande\s+i\s+utvecklingsarbete`)},
	{CueSkriftligt, regexp.MustCompile(`\bskriftligt\s+arbete\b|\bvetenskapligt\s+arbete\b`)},
	{CueSTa3, regexp.MustCompile(`\bsta?\s*3\b|\bst a\s*3\b`)},
	{CueTredjeland, regexp.MustCompile(`\btredje\s*land\b|\beu/ees.*utanf`)},
	{CueAnsokan, regexp.MustCompile(`\bansokan\b.*\bspecialistkompetens\b|\bspecialistkompetens\b.*\bansokan\b`)},
	{CueFullstandighet, regexp.MustCompile(`\bfullstandighet`)},
	{CueUppnadd, regexp.MustCompile(`\buppnadd\s+specialistkompetens\b`)},
}

var annexRe = regexp.MustCompile(`\bbilaga\s+(\d{1,2})\b`)

// Phrases that together identify the 2015 clinical-service form even when the
// footer with the regulation number was not recognized.
var hardKlinisk2015 = []string{
	"klinisk tjanstgoring under handledning",
	"tjanstgoringsstalle och period",
	"uppfyllda kompetenskrav",
}

// Result is the outcome of Classify.
type Result struct {
	Kind           intyg.Kind   `json:"kind"`
	Signals        []string     `json:"signals"`
	Regime         intyg.Regime `json:"regime,omitempty"`
	ExpectedRegime intyg.Regime `json:"expectedRegime,omitempty"`
	// RegimeMismatch is set when an expected regime was given and the
	// detected kind belongs to the other one. Saving must be blocked.
	RegimeMismatch bool `json:"regimeMismatch"`
}

// Recognized reports whether a kind was found.
func (r Result) Recognized() bool { return r.Kind != intyg.KindUnknown }

// Cues returns the cues that fire on normalized text, in rule order, followed
// by the annex cue when a "Bilaga <n>" is printed.
func Cues(normalized string) []string {
	folded := textnorm.Fold(normalized)
	var out []string
	for _, r := range cueRules {
		if r.re.MatchString(folded) {
			out = append(out, r.name)
		}
	}
	if m := annexRe.FindStringSubmatch(folded); m != nil {
		n, _ := strconv.Atoi(m[1])
		out = append(out, AnnexCue(n))
	}
	hard := true
	for _, p := range hardKlinisk2015 {
		if !strings.Contains(folded, p) {
			hard = false
			break
		}
	}
	if hard {
		out = append(out, CueHardKlinisk2015)
	}
	return out
}

// Classify picks the kind of a normalized certificate text. signalsIn are
// extra cues known to the caller (for example from a zone read) and are
// merged with the detected ones. A non-empty expected regime only sets
// RegimeMismatch; the detected kind is always returned.
func Classify(normalized string, signalsIn []string, expected intyg.Regime) Result {
	signals := Cues(normalized)
	for _, s := range signalsIn {
		if !slices.Contains(signals, s) {
			signals = append(signals, s)
		}
	}
	has := func(c string) bool { return slices.Contains(signals, c) }

	kind := intyg.KindUnknown
	for _, row := range signatures {
		if row.matches(has) {
			kind = row.kind
			signals = append(signals, "match:"+kind.String())
			break
		}
	}

	if has(CueHardKlinisk2015) && kind != intyg.Kind2015B4Klin {
		kind = intyg.Kind2015B4Klin
		signals = append(signals, "hard:"+kind.String())
	}

	if has(CueRegime2015) {
		if earlier, ok := Override(kind); ok {
			signals = append(signals, fmt.Sprintf("override:%s->%s", kind, earlier))
			kind = earlier
		}
	}

	res := Result{Kind: kind, Signals: signals, ExpectedRegime: expected}
	if kind != intyg.KindUnknown {
		res.Regime = kind.Regime()
		res.RegimeMismatch = expected != intyg.RegimeUnknown && expected != res.Regime
	}
	return res
}
