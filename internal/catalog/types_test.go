package catalog_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianalert/expedition37-sub000/internal/catalog"
)

func TestParseSections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []catalog.Section
	}{
		{"empty", ``, nil},
		{"null", `null`, nil},
		{"array", `[{"title":"A","content":"a"},{"content":"b"}]`, []catalog.Section{{Title: "A", Content: "a"}, {Content: "b"}}},
		{"object", `{"title":"Only","content":"x"}`, []catalog.Section{{Title: "Only", Content: "x"}}},
		{"string wrapped array", `"[{\"content\":\"s\"}]"`, []catalog.Section{{Content: "s"}}},
		{"blank string", `"  "`, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := catalog.ParseSections(json.RawMessage(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseSections_Malformed(t *testing.T) {
	for _, raw := range []string{`42`, `"plain prose"`, `[1,2]`} {
		_, err := catalog.ParseSections(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}

func TestHasMore(t *testing.T) {
	assert.True(t, catalog.HasMore(0, 36, 40))
	assert.False(t, catalog.HasMore(1, 36, 40))
	assert.False(t, catalog.HasMore(0, 36, 36))
	assert.False(t, catalog.HasMore(0, 10, 0))
	assert.False(t, catalog.HasMore(math.MaxInt, 38, 40))
	assert.False(t, catalog.HasMore(-1, 10, 40))

	for total := 0; total <= 25; total++ {
		for page := 0; page <= 6; page++ {
			assert.Equal(t, page*5+5 < total, catalog.HasMore(page, 5, total), "page %d total %d", page, total)
		}
	}
}

func TestCity_JSONShape(t *testing.T) {
	budget := 700.0
	c := catalog.City{ID: 1, Name: "Hanoi", CountryID: 4, Attributes: catalog.Attributes{
		WeeklyBudget: &budget,
		Facets:       catalog.Facets{FastInternet: true},
	}}

	b, err := json.Marshal(c)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.EqualValues(t, 4, m["country"])
	assert.Equal(t, true, m["fastInternet"])
	assert.EqualValues(t, 700, m["weeklyBudget"])
}
