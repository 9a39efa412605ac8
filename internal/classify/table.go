package classify

import (
	"maps"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
)

// signature is one row of the first-pass table. Every cue is required.
type signature struct {
	kind intyg.Kind
	cues []string
}

func (s signature) matches(has func(string) bool) bool {
	for _, c := range s.cues {
		if !has(c) {
			return false
		}
	}
	return true
}

func row(k intyg.Kind, cues ...string) signature { return signature{kind: k, cues: cues} }

// signatures in priority order. The 2015 rows come first because a 2015
// footer ("SOSFS 2015:8 Bilaga 4") also fires the 2021 annex cue. Rows with
// a printed annex number outrank keyword rows within a regime.
var signatures = []signature{
	row(intyg.Kind2015B7Skriftligt, CueRegime2015, CueSkriftligt),
	row(intyg.Kind2015B3Ausk, CueRegime2015, CueAuskultation),
	row(intyg.Kind2015B4Klin, CueRegime2015, CueKlinisk),
	row(intyg.Kind2015B5Kurs, CueRegime2015, CueKurs),
	row(intyg.Kind2015B6Utv, CueRegime2015, CueUtveckling),
	row(intyg.Kind2015B3Ausk, CueRegime2015, AnnexCue(3)),
	row(intyg.Kind2015B4Klin, CueRegime2015, AnnexCue(4)),
	row(intyg.Kind2015B5Kurs, CueRegime2015, AnnexCue(5)),
	row(intyg.Kind2015B6Utv, CueRegime2015, AnnexCue(6)),
	row(intyg.Kind2015B7Skriftligt, CueRegime2015, AnnexCue(7)),

	row(intyg.Kind2021B5Ans, CueRegime2021, AnnexCue(5)),
	row(intyg.Kind2021B6Fullst, CueRegime2021, AnnexCue(6)),
	row(intyg.Kind2021B7Uppn, CueRegime2021, AnnexCue(7)),
	row(intyg.Kind2021B8Ausk, CueRegime2021, AnnexCue(8)),
	row(intyg.Kind2021B9Klin, CueRegime2021, AnnexCue(9)),
	row(intyg.Kind2021B10Kurs, CueRegime2021, AnnexCue(10)),
	row(intyg.Kind2021B11Utv, CueRegime2021, AnnexCue(11)),
	row(intyg.Kind2021B12STa3, CueRegime2021, AnnexCue(12)),
	row(intyg.Kind2021B13Tredjeland, CueRegime2021, AnnexCue(13)),

	row(intyg.Kind2021B13Tredjeland, CueRegime2021, CueTredjeland),
	row(intyg.Kind2021B12STa3, CueRegime2021, CueSTa3),
	row(intyg.Kind2021B8Ausk, CueRegime2021, CueAuskultation),
	row(intyg.Kind2021B9Klin, CueRegime2021, CueKlinisk),
	row(intyg.Kind2021B11Utv, CueRegime2021, CueUtveckling),
	row(intyg.Kind2021B10Kurs, CueRegime2021, CueKurs),
	row(intyg.Kind2021B7Uppn, CueRegime2021, CueUppnadd),
	row(intyg.Kind2021B6Fullst, CueRegime2021, CueFullstandighet),
	row(intyg.Kind2021B5Ans, CueRegime2021, CueAnsokan),

	// No regime marker survived OCR: keywords alone.
	row(intyg.Kind2015B7Skriftligt, CueSkriftligt),
	row(intyg.Kind2015B3Ausk, CueAuskultation),
	row(intyg.Kind2015B4Klin, CueKlinisk),
	row(intyg.Kind2015B5Kurs, CueKurs),
	row(intyg.Kind2015B6Utv, CueUtveckling),
	row(intyg.Kind2021B12STa3, CueSTa3),
	row(intyg.Kind2021B13Tredjeland, CueTredjeland),
}

// overrides maps a 2021 kind to the structurally equivalent 2015 kind.
var overrides = map[intyg.Kind]intyg.Kind{
	intyg.Kind2021B9Klin:  intyg.Kind2015B4Klin,
	intyg.Kind2021B8Ausk:  intyg.Kind2015B3Ausk,
	intyg.Kind2021B10Kurs: intyg.Kind2015B5Kurs,
	intyg.Kind2021B11Utv:  intyg.Kind2015B6Utv,
	intyg.Kind2021B12STa3: intyg.Kind2015B7Skriftligt,
}

// Override returns the 2015 kind that replaces k when the text carries the
// 2015 regulation number.
func Override(k intyg.Kind) (intyg.Kind, bool) {
	e, ok := overrides[k]
	return e, ok
}

// Overrides returns a copy of the 2021 to 2015 correspondence table.
func Overrides() map[intyg.Kind]intyg.Kind {
	return maps.Clone(overrides)
}
