// Package fallback holds the static dataset served when the remote store
// cannot answer.
package fallback

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/julianalert/expedition37-sub000/internal/catalog"
)

//go:embed seed.yaml
var seedYAML []byte

// Dataset is an in-memory catalog.Dataset. Accessors return copies, so
// callers may reorder or trim the slices freely.
type Dataset struct {
	countries []catalog.Country
	cities    []catalog.City
}

type document struct {
	Countries []catalog.Country `yaml:"countries"`
	Cities    []catalog.City    `yaml:"cities"`
}

// Parse decodes a YAML document with top-level countries and cities lists.
// Both lists are sorted by rank, then name.
func Parse(data []byte) (*Dataset, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding fallback dataset: %w", err)
	}

	seen := make(map[int]bool, len(doc.Countries))
	for _, c := range doc.Countries {
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate country id %d", c.ID)
		}
		seen[c.ID] = true
	}

	sort.SliceStable(doc.Countries, func(i, j int) bool {
		a, b := doc.Countries[i], doc.Countries[j]
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.Name < b.Name
	})
	sort.SliceStable(doc.Cities, func(i, j int) bool {
		a, b := doc.Cities[i], doc.Cities[j]
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.Name < b.Name
	})

	return &Dataset{countries: doc.Countries, cities: doc.Cities}, nil
}

var (
	defaultOnce sync.Once
	defaultSet  *Dataset
)

// Default returns the dataset compiled into the binary. It panics if the
// embedded document is invalid, which the package tests rule out.
func Default() *Dataset {
	defaultOnce.Do(func() {
		ds, err := Parse(seedYAML)
		if err != nil {
			panic(err)
		}
		defaultSet = ds
	})
	return defaultSet
}

func (d *Dataset) Countries() []catalog.Country {
	out := make([]catalog.Country, len(d.countries))
	copy(out, d.countries)
	return out
}

func (d *Dataset) Cities() []catalog.City {
	out := make([]catalog.City, len(d.cities))
	copy(out, d.cities)
	return out
}
