package catalog

import "context"

// Source is the remote store holding the country and city tables. List
// methods return rows ordered by rank, then name. Page methods also return
// the total row count.
type Source interface {
	ListCountries(ctx context.Context) ([]Country, error)
	CountriesPage(ctx context.Context, offset, limit int) ([]Country, int, error)
	ListCities(ctx context.Context) ([]City, error)
	CitiesByCountry(ctx context.Context, countryID int) ([]City, error)
	CitiesPage(ctx context.Context, offset, limit int) ([]City, int, error)
}

// Dataset is the static data served when the remote store cannot be used.
// Both lists are expected to be sorted by rank.
type Dataset interface {
	Countries() []Country
	Cities() []City
}

// Recorder receives accessor events. Collectors in internal/metrics satisfy it.
type Recorder interface {
	CacheHit(accessor string)
	CacheMiss(accessor string)
	Fallback(accessor, reason string)
}

type nopRecorder struct{}

func (nopRecorder) CacheHit(string)         {}
func (nopRecorder) CacheMiss(string)        {}
func (nopRecorder) Fallback(string, string) {}
