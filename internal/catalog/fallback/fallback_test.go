package fallback_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianalert/expedition37-sub000/internal/catalog"
	"github.com/julianalert/expedition37-sub000/internal/catalog/fallback"
	"github.com/julianalert/expedition37-sub000/internal/slug"
)

var _ catalog.Dataset = (*fallback.Dataset)(nil)

func TestDefault_Decodes(t *testing.T) {
	ds := fallback.Default()

	countries := ds.Countries()
	cities := ds.Cities()
	require.NotEmpty(t, countries)
	require.NotEmpty(t, cities)

	pt := countries[0]
	assert.Equal(t, "Portugal", pt.Name)
	assert.Equal(t, "Europe", pt.Continent)
	assert.Equal(t, 88, pt.Overall)
	assert.True(t, pt.Safe)
	assert.True(t, pt.AmazingFood)
	assert.False(t, pt.MuslimFriendly)
	require.NotNil(t, pt.WeeklyBudget)
	assert.InDelta(t, 850, *pt.WeeklyBudget, 0.001)
	assert.Equal(t, []string{"relaxed", "sunny"}, pt.Mood)
}

func TestDefault_SortedByRank(t *testing.T) {
	ds := fallback.Default()

	countries := ds.Countries()
	for i := 1; i < len(countries); i++ {
		assert.LessOrEqual(t, countries[i-1].Rank, countries[i].Rank)
	}
	cities := ds.Cities()
	for i := 1; i < len(cities); i++ {
		assert.LessOrEqual(t, cities[i-1].Rank, cities[i].Rank)
	}
}

func TestDefault_CitiesReferenceKnownCountries(t *testing.T) {
	ds := fallback.Default()
	byID := catalog.ByID(ds.Countries())

	for _, c := range ds.Cities() {
		_, ok := byID[c.CountryID]
		assert.True(t, ok, "city %s references unknown country %d", c.Name, c.CountryID)
	}
}

func TestDefault_SlugsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range fallback.Default().Countries() {
		s := slug.Make(c.Name)
		assert.False(t, seen[s], s)
		seen[s] = true
	}
}

func TestDataset_ReturnsCopies(t *testing.T) {
	ds := fallback.Default()

	first := ds.Countries()
	first[0].Name = "changed"
	assert.NotEqual(t, "changed", ds.Countries()[0].Name)
}

func TestParse_SortsAndRejectsDuplicates(t *testing.T) {
	ds, err := fallback.Parse([]byte(`
countries:
  - {id: 2, name: B, rank: 2}
  - {id: 1, name: A, rank: 1}
cities: []
`))
	require.NoError(t, err)
	assert.Equal(t, "A", ds.Countries()[0].Name)

	_, err = fallback.Parse([]byte(`
countries:
  - {id: 1, name: A}
  - {id: 1, name: B}
`))
	assert.ErrorContains(t, err, "duplicate country id 1")
}

func TestParse_Invalid(t *testing.T) {
	_, err := fallback.Parse([]byte("countries: [unterminated"))
	assert.Error(t, err)
}
