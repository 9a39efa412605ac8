package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/intygscan/internal/fields"
	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/textnorm"
)

// Annotated scans carry hand-written markers in the margin: R<n> before a
// printed heading, T<n> before the value that belongs to it and X on lines
// to skip.
var (
	markerRe    = regexp.MustCompile(`^([RT])(\d+)\b\s*(.*)$`)
	skipRe      = regexp.MustCompile(`^X\b`)
	pnrValueRe  = regexp.MustCompile(`\d{6}[-+ ]?\d{4}\b`)
	rangeValRe  = regexp.MustCompile(`\b\d{6}\s*[-–—]\s*\d{6}\b`)
	twoWordsRe  = regexp.MustCompile(`\S+\s+\S+`)
	delmalValRe = regexp.MustCompile(`(?i)[abc]\d+`)
)

const (
	minMarkerLines = 6
	minSkipLines   = 3
)

type bucket struct {
	label  string
	values []string
}

// parseAnnotated reads an annotated scan. It declines unless the text
// clearly carries markers.
func parseAnnotated(f form, text string) (intyg.Record, bool) {
	lines := fields.Lines(text)
	var markers, skips int
	for _, l := range lines {
		if markerRe.MatchString(l) {
			markers++
		} else if skipRe.MatchString(l) {
			skips++
		}
	}
	if markers < minMarkerLines && skips < minSkipLines {
		return intyg.Record{}, false
	}

	buckets := map[int]*bucket{}
	get := func(n int) *bucket {
		b, ok := buckets[n]
		if !ok {
			b = &bucket{}
			buckets[n] = b
		}
		return b
	}
	for _, l := range lines {
		m := markerRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[2])
		body := strings.TrimSpace(m[3])
		if m[1] == "R" {
			get(n).label = body
		} else if looksLikeValue(body) {
			get(n).values = append(get(n).values, body)
		}
	}

	nums := make([]int, 0, len(buckets))
	for n := range buckets {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	r := intyg.Record{Kind: f.kind}
	var s intyg.Signer
	for _, n := range nums {
		b := buckets[n]
		if b.label == "" || len(b.values) == 0 {
			continue
		}
		label := textnorm.Fold(b.label)
		value := strings.Join(b.values, " ")
		switch {
		case strings.Contains(label, "efternamn"):
			r.LastName = value
		case strings.Contains(label, "fornamn"):
			r.FirstName = value
		case strings.Contains(label, "personnummer"):
			r.Personnummer = fields.Personnummer(value)
		case strings.Contains(label, "specialitet") && strings.Contains(label, "ansokan"):
			r.Specialty = value
		case strings.Contains(label, "delmal"):
			r.DelmalCodes = fields.DelmalCodes(value)
		case clinic2015Re.MatchString(label):
			r.Clinic = value
		case strings.Contains(label, "amne"):
			if f.course {
				r.CourseTitle = value
			} else {
				r.Subject = value
			}
		case strings.Contains(label, "beskrivning"):
			r.Description = value
		case strings.Contains(label, "namnfortydligande"):
			s.Name = value
		case strings.Contains(label, "specialitet"):
			s.Speciality = value
		case strings.Contains(label, "tjanstestalle"):
			s.Site = value
		case strings.Contains(label, "ort och datum"):
			s.PlaceDateRaw = value
		}
	}
	if s != (intyg.Signer{}) {
		s.Role = intyg.RoleSupervisor
		r.Signer = &s
	}
	if r.Personnummer == "" {
		r.Personnummer = fields.Personnummer(text)
	}
	if isEmpty(r) {
		return intyg.Record{}, false
	}
	return r, true
}

func looksLikeValue(s string) bool {
	switch {
	case s == "":
		return false
	case pnrValueRe.MatchString(s), rangeValRe.MatchString(s), twoWordsRe.MatchString(s), delmalValRe.MatchString(s):
		return true
	}
	return len([]rune(s)) > 2
}
