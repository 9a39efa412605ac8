// Package parser turns the normalized text of a classified certificate into a
// structured record.
//
// Every kind is read by the same layered strategies, most specific first:
// annotated markers, printed headings, free-text anchors and finally the
// template's field zones when positioned words are available. Later
// strategies only fill fields earlier ones left empty.
package parser

import (
	"log/slog"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/layout"
)

// Input is what a parser reads: the normalized text and, when the OCR engine
// reported them, the positioned words of the page.
type Input struct {
	Text  string
	Words []layout.Word
	// Size is the image size in pixels. Nil means infer it from the words.
	Size *layout.Size
}

// Parse reads a record of the given kind. Administrative and unknown kinds
// yield a record with only Kind set.
func Parse(kind intyg.Kind, normalized string, words []layout.Word) intyg.Record {
	return ParseInput(kind, Input{Text: normalized, Words: words})
}

// ParseInput is Parse with an explicit image size for the zone strategy.
func ParseInput(kind intyg.Kind, in Input) intyg.Record {
	f, ok := formFor(kind)
	if !ok {
		slog.Debug("No parser for kind", "kind", kind.String())
		return intyg.Record{Kind: kind}
	}

	r := intyg.Record{Kind: kind}
	var used []string
	apply := func(name string, src intyg.Record, ok bool) {
		if !ok {
			return
		}
		fill(&r, src)
		used = append(used, name)
	}

	a, ok := parseAnnotated(f, in.Text)
	apply("annotated", a, ok)

	// The 2021 clinical form is mostly read from its boxes; the text order
	// OCR produces for it is unreliable.
	zonesFirst := kind == intyg.Kind2021B9Klin && len(in.Words) > 0
	if zonesFirst {
		z, ok := parseZones(f, in.Words, in.Size)
		apply("zones", z, ok)
	}
	if missing(r) > 0 {
		h, ok := parseHeadings(f, in.Text)
		apply("headings", h, ok)
	}
	if missing(r) > 0 {
		anchored := parseAnchors(f, in.Text)
		apply("anchors", anchored, !isEmpty(anchored))
	}
	if !zonesFirst && missing(r) > 0 && len(in.Words) > 0 {
		z, ok := parseZones(f, in.Words, in.Size)
		apply("zones", z, ok)
	}

	Finalize(&r, in.Text)
	slog.Debug("Parsed certificate",
		"kind", kind.String(),
		"strategies", used,
		"missing", missing(r))
	return r
}

// formFor returns the field layout of kind. It is false for the
// administrative application forms, which carry no activity, and for
// KindUnknown.
func formFor(kind intyg.Kind) (form, bool) {
	switch kind {
	case intyg.Kind2015B3Ausk,
		intyg.Kind2015B4Klin,
		intyg.Kind2015B5Kurs,
		intyg.Kind2015B6Utv,
		intyg.Kind2015B7Skriftligt,
		intyg.Kind2021B8Ausk,
		intyg.Kind2021B9Klin,
		intyg.Kind2021B10Kurs,
		intyg.Kind2021B11Utv,
		intyg.Kind2021B12STa3,
		intyg.Kind2021B13Tredjeland:
		f, ok := forms[kind]
		return f, ok
	case intyg.Kind2021B5Ans, intyg.Kind2021B6Fullst, intyg.Kind2021B7Uppn:
		return form{}, false
	case intyg.KindUnknown:
		return form{}, false
	}
	return form{}, false
}
