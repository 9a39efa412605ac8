// Package intyg holds the shared vocabulary of certificate kinds, regimes and
// the record extracted from a scanned certificate.
package intyg

import (
	"fmt"
	"strings"
)

// Regime identifies the regulatory revision a certificate template belongs to.
type Regime string

const (
	RegimeUnknown Regime = ""
	Regime2015    Regime = "2015"
	Regime2021    Regime = "2021"
)

// ParseRegime accepts "2015", "2021", "SOSFS 2015:8", "HSLF-FS 2021:8" and
// similar spellings. An empty string yields RegimeUnknown.
func ParseRegime(s string) (Regime, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return RegimeUnknown, nil
	case strings.Contains(s, "2015"):
		return Regime2015, nil
	case strings.Contains(s, "2021"):
		return Regime2021, nil
	}
	return RegimeUnknown, fmt.Errorf("unknown regime %q", s)
}

// Kind is one template among the closed set of supported certificate annexes.
// The zero value is KindUnknown.
type Kind int

const (
	KindUnknown Kind = iota
	Kind2015B3Ausk
	Kind2015B4Klin
	Kind2015B5Kurs
	Kind2015B6Utv
	Kind2015B7Skriftligt
	Kind2021B5Ans
	Kind2021B6Fullst
	Kind2021B7Uppn
	Kind2021B8Ausk
	Kind2021B9Klin
	Kind2021B10Kurs
	Kind2021B11Utv
	Kind2021B12STa3
	Kind2021B13Tredjeland
	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:           "",
	Kind2015B3Ausk:        "2015-B3-AUSK",
	Kind2015B4Klin:        "2015-B4-KLIN",
	Kind2015B5Kurs:        "2015-B5-KURS",
	Kind2015B6Utv:         "2015-B6-UTV",
	Kind2015B7Skriftligt:  "2015-B7-SKRIFTLIGT",
	Kind2021B5Ans:         "2021-B5-ANS",
	Kind2021B6Fullst:      "2021-B6-FULLST",
	Kind2021B7Uppn:        "2021-B7-UPPN",
	Kind2021B8Ausk:        "2021-B8-AUSK",
	Kind2021B9Klin:        "2021-B9-KLIN",
	Kind2021B10Kurs:       "2021-B10-KURS",
	Kind2021B11Utv:        "2021-B11-UTV",
	Kind2021B12STa3:       "2021-B12-STa3",
	Kind2021B13Tredjeland: "2021-B13-TREDJELAND",
}

// AllKinds returns every known kind in declaration order.
func AllKinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := Kind2015B3Ausk; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is a known, non-null kind.
func (k Kind) Valid() bool { return k > KindUnknown && k < kindCount }

// Regime returns the regulatory revision of the kind.
func (k Kind) Regime() Regime {
	switch {
	case k >= Kind2015B3Ausk && k <= Kind2015B7Skriftligt:
		return Regime2015
	case k >= Kind2021B5Ans && k < kindCount:
		return Regime2021
	default:
		return RegimeUnknown
	}
}

// Annex returns the annex ("bilaga") number printed on the template.
func (k Kind) Annex() int {
	switch k {
	case Kind2015B3Ausk:
		return 3
	case Kind2015B4Klin:
		return 4
	case Kind2015B5Kurs, Kind2021B5Ans:
		return 5
	case Kind2015B6Utv, Kind2021B6Fullst:
		return 6
	case Kind2015B7Skriftligt, Kind2021B7Uppn:
		return 7
	case Kind2021B8Ausk:
		return 8
	case Kind2021B9Klin:
		return 9
	case Kind2021B10Kurs:
		return 10
	case Kind2021B11Utv:
		return 11
	case Kind2021B12STa3:
		return 12
	case Kind2021B13Tredjeland:
		return 13
	}
	return 0
}

// HasDates reports whether the template carries a service period. Written
// work and quality improvement certificates have no date fields.
func (k Kind) HasDates() bool {
	switch k {
	case Kind2015B6Utv, Kind2015B7Skriftligt, Kind2021B11Utv:
		return false
	}
	return true
}

// IsAdministrative reports whether the kind is an application form that
// describes no educational activity.
func (k Kind) IsAdministrative() bool {
	return k == Kind2021B5Ans || k == Kind2021B6Fullst || k == Kind2021B7Uppn
}

// ParseKind resolves the canonical string form. Matching ignores case.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return KindUnknown, nil
	}
	for k := Kind2015B3Ausk; k < kindCount; k++ {
		if strings.EqualFold(kindNames[k], s) {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown certificate kind %q", s)
}

// KindForAnnex returns the kind printed as "Bilaga n" in the given regime.
func KindForAnnex(r Regime, annex int) Kind {
	for k := Kind2015B3Ausk; k < kindCount; k++ {
		if k.Regime() == r && k.Annex() == annex {
			return k
		}
	}
	return KindUnknown
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
