package catalog

import (
	"sort"

	"github.com/julianalert/expedition37-sub000/internal/slug"
)

// countryIndex is a country list plus its slug lookup, built once per load
// and cached together so lookups never rescan names.
type countryIndex struct {
	Countries []Country      `json:"countries"`
	Slugs     map[string]int `json:"slugs"`
}

func newCountryIndex(rows []Country) countryIndex {
	rows = cloneCountries(rows)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Rank != rows[j].Rank {
			return rows[i].Rank < rows[j].Rank
		}
		return rows[i].Name < rows[j].Name
	})

	ix := countryIndex{Countries: rows, Slugs: make(map[string]int, len(rows))}
	for i, c := range rows {
		k := slug.Make(c.Name)
		if _, taken := ix.Slugs[k]; !taken {
			ix.Slugs[k] = i
		}
	}
	return ix
}

func (ix countryIndex) bySlug(name string) (Country, bool) {
	i, ok := ix.Slugs[slug.Make(name)]
	if !ok {
		return Country{}, false
	}
	return ix.Countries[i], true
}

func (ix countryIndex) byID(id int) (Country, bool) {
	for _, c := range ix.Countries {
		if c.ID == id {
			return c, true
		}
	}
	return Country{}, false
}

// ByID maps country ids to countries. Filters use it to resolve a city's
// continent.
func ByID(countries []Country) map[int]Country {
	out := make(map[int]Country, len(countries))
	for _, c := range countries {
		out[c.ID] = c
	}
	return out
}

// cityIndex is a city list plus slug and country lookups. City names are not
// unique across countries, so a slug maps to every position carrying it.
type cityIndex struct {
	Cities    []City           `json:"cities"`
	Slugs     map[string][]int `json:"slugs"`
	ByCountry map[int][]int    `json:"byCountry"`
}

func newCityIndex(rows []City) cityIndex {
	rows = cloneCities(rows)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Rank != rows[j].Rank {
			return rows[i].Rank < rows[j].Rank
		}
		return rows[i].Name < rows[j].Name
	})

	ix := cityIndex{
		Cities:    rows,
		Slugs:     make(map[string][]int, len(rows)),
		ByCountry: make(map[int][]int),
	}
	for i, c := range rows {
		k := slug.Make(c.Name)
		ix.Slugs[k] = append(ix.Slugs[k], i)
		ix.ByCountry[c.CountryID] = append(ix.ByCountry[c.CountryID], i)
	}
	return ix
}

// bySlug finds a city by slug. countryID 0 accepts any country.
func (ix cityIndex) bySlug(name string, countryID int) (City, bool) {
	for _, i := range ix.Slugs[slug.Make(name)] {
		if countryID == 0 || ix.Cities[i].CountryID == countryID {
			return ix.Cities[i], true
		}
	}
	return City{}, false
}

func (ix cityIndex) inCountry(countryID int) []City {
	positions := ix.ByCountry[countryID]
	out := make([]City, 0, len(positions))
	for _, i := range positions {
		out = append(out, ix.Cities[i])
	}
	return out
}
