package layout

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
)

//go:embed zones.yaml
var zonesYAML []byte

// ZoneSet is the named field rectangles of one template.
type ZoneSet struct {
	Name      string          `yaml:"-"`
	Reference Size            `yaml:"reference"`
	Zones     map[string]Zone `yaml:"zones"`
}

// Extract runs ReconstructZoneText for every zone of the set.
func (zs ZoneSet) Extract(words []Word, actual *Size) map[string]string {
	return ReconstructZoneText(words, zs.Zones, zs.Reference, actual)
}

// FieldNames returns the zone names in sorted order.
func (zs ZoneSet) FieldNames() []string {
	names := make([]string, 0, len(zs.Zones))
	for n := range zs.Zones {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type zoneTable struct {
	Sets  map[string]ZoneSet `yaml:"sets"`
	Kinds map[string]string  `yaml:"kinds"`
}

var (
	loadOnce  sync.Once
	zoneSets  map[string]ZoneSet
	kindZones map[intyg.Kind]string
	loadErr   error
)

// ParseZoneTable decodes a zone table document and checks that every kind
// refers to a defined set.
func ParseZoneTable(data []byte) (map[string]ZoneSet, map[intyg.Kind]string, error) {
	var t zoneTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, nil, fmt.Errorf("decode zone table: %w", err)
	}
	for name, zs := range t.Sets {
		if !zs.Reference.Valid() {
			return nil, nil, fmt.Errorf("zone set %q: invalid reference size", name)
		}
		zs.Name = name
		t.Sets[name] = zs
	}
	kinds := make(map[intyg.Kind]string, len(t.Kinds))
	for raw, name := range t.Kinds {
		k, err := intyg.ParseKind(raw)
		if err != nil || !k.Valid() {
			return nil, nil, fmt.Errorf("zone table: invalid kind %q", raw)
		}
		if _, ok := t.Sets[name]; !ok {
			return nil, nil, fmt.Errorf("kind %s: unknown zone set %q", k, name)
		}
		kinds[k] = name
	}
	return t.Sets, kinds, nil
}

func loadTable() error {
	loadOnce.Do(func() {
		zoneSets, kindZones, loadErr = ParseZoneTable(zonesYAML)
	})
	return loadErr
}

// ZoneSetFor returns the zone set measured for kind. Administrative kinds and
// kinds without a measured template report false.
func ZoneSetFor(kind intyg.Kind) (ZoneSet, bool) {
	if err := loadTable(); err != nil {
		return ZoneSet{}, false
	}
	name, ok := kindZones[kind]
	if !ok {
		return ZoneSet{}, false
	}
	zs, ok := zoneSets[name]
	return zs, ok
}
