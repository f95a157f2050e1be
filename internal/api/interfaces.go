package api

import (
	"context"

	"github.com/julianalert/expedition37-sub000/internal/catalog"
)

// Catalog defines the read operations needed by handlers.
type Catalog interface {
	AllCountries(ctx context.Context) catalog.Result[[]catalog.Country]
	AllCities(ctx context.Context) catalog.Result[[]catalog.City]
	CountryBySlug(ctx context.Context, name string) (catalog.Result[catalog.Country], error)
	CitiesOf(ctx context.Context, country catalog.Result[catalog.Country]) catalog.Result[[]catalog.City]
	CityBySlug(ctx context.Context, countrySlug, citySlug string) (catalog.Result[catalog.City], error)
	PaginatedCountries(ctx context.Context, page, limit int) catalog.Result[catalog.CountryPage]
	PaginatedCities(ctx context.Context, page, limit int) catalog.Result[catalog.CityPage]
	Destination(ctx context.Context, countrySlug, citySlug string) (catalog.Result[catalog.Destination], error)
}

// CacheAdmin defines the cache maintenance operations behind the admin routes.
type CacheAdmin interface {
	Cleanup(ctx context.Context) (int, error)
	Invalidate(ctx context.Context) (int, error)
}

// Pinger is satisfied by every dependency the health check reports on.
type Pinger interface {
	Ping(ctx context.Context) error
}
