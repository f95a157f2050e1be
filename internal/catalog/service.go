package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/julianalert/expedition37-sub000/internal/cache"
)

const (
	DefaultPageSize = 36
	MaxPageSize     = 100
	// MaxPage keeps page*limit+limit within int32 for every allowed limit.
	MaxPage = math.MaxInt32/MaxPageSize - 1
)

// Options configures a Service. Source may be nil, in which case every
// accessor serves the fallback dataset.
type Options struct {
	Source        Source
	Cache         cache.Store
	Fallback      Dataset
	CacheTTL      time.Duration
	RemoteTimeout time.Duration
	Recorder      Recorder
	Logger        zerolog.Logger
}

// Service is the read path for countries and cities. Each accessor tries the
// cache, then the remote Source, then the fallback dataset, and reports which
// one answered.
type Service struct {
	src         Source
	cache       cache.Store
	ttl         time.Duration
	timeout     time.Duration
	rec         Recorder
	log         zerolog.Logger
	group       singleflight.Group
	fbCountries countryIndex
	fbCities    cityIndex
}

// NewService builds a Service. Fallback and Cache are required.
func NewService(opts Options) *Service {
	rec := opts.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	timeout := opts.RemoteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		src:         opts.Source,
		cache:       opts.Cache,
		ttl:         opts.CacheTTL,
		timeout:     timeout,
		rec:         rec,
		log:         opts.Logger,
		fbCountries: newCountryIndex(opts.Fallback.Countries()),
		fbCities:    newCityIndex(opts.Fallback.Cities()),
	}
}

// Configured reports whether a remote Source is wired in.
func (s *Service) Configured() bool {
	return s.src != nil
}

// Invalidate drops every cached read so the next call goes to the remote store.
func (s *Service) Invalidate(ctx context.Context) (int, error) {
	return s.cache.Purge(ctx)
}

// Cleanup drops expired cache entries.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	return s.cache.Cleanup(ctx)
}

// load runs the cache -> remote -> fallback chain for one accessor.
// Only remote data is cached; fallback data never is, so a recovered backend
// is picked up on the next call.
func load[T any](
	ctx context.Context,
	s *Service,
	accessor, key string,
	remote func(context.Context) (T, error),
	empty func(T) bool,
	fallback func() T,
) Result[T] {
	if s.src == nil {
		return useFallback(s, accessor, ErrNotConfigured, fallback)
	}

	cached, ok, err := cache.GetJSON[T](ctx, s.cache, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	if ok {
		s.rec.CacheHit(accessor)
		return Result[T]{Data: cached, Origin: OriginCache}
	}
	s.rec.CacheMiss(accessor)

	// Concurrent misses on one key share a single remote read. The shared
	// call is detached from any one caller's cancellation and bounded by the
	// remote timeout instead.
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		data, err := remote(rctx)
		if err != nil {
			return nil, err
		}
		if empty(data) {
			return nil, ErrEmptyResult
		}
		if err := cache.SetJSON(rctx, s.cache, key, data, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
		return data, nil
	})
	if err != nil {
		return useFallback(s, accessor, err, fallback)
	}
	return Result[T]{Data: v.(T), Origin: OriginRemote}
}

func useFallback[T any](s *Service, accessor string, reason error, fallback func() T) Result[T] {
	code := reasonCode(reason)
	s.rec.Fallback(accessor, code)

	event := s.log.Warn()
	if errors.Is(reason, ErrNotConfigured) {
		event = s.log.Debug()
	}
	event.Err(reason).Str("accessor", accessor).Str("reason", code).Msg("serving fallback data")

	return Result[T]{Data: fallback(), Origin: OriginFallback, Reason: reason}
}

// ---- countries ----

func (s *Service) countries(ctx context.Context) Result[countryIndex] {
	return load(ctx, s, "countries", "countries:all",
		func(ctx context.Context) (countryIndex, error) {
			rows, err := s.src.ListCountries(ctx)
			if err != nil {
				return countryIndex{}, fmt.Errorf("listing countries: %w", err)
			}
			return newCountryIndex(rows), nil
		},
		func(ix countryIndex) bool { return len(ix.Countries) == 0 },
		func() countryIndex { return s.fbCountries },
	)
}

// AllCountries returns every country ordered by rank.
func (s *Service) AllCountries(ctx context.Context) Result[[]Country] {
	r := s.countries(ctx)
	return Result[[]Country]{Data: cloneCountries(r.Data.Countries), Origin: r.Origin, Reason: r.Reason}
}

// CountryByID returns the country with the given id.
func (s *Service) CountryByID(ctx context.Context, id int) (Result[Country], error) {
	r := s.countries(ctx)
	if c, ok := r.Data.byID(id); ok {
		return Result[Country]{Data: c, Origin: r.Origin, Reason: r.Reason}, nil
	}
	if r.Origin != OriginFallback {
		if c, ok := s.fbCountries.byID(id); ok {
			return s.fallbackHit("country_by_id", c), nil
		}
	}
	return Result[Country]{}, fmt.Errorf("country %d: %w", id, ErrNotFound)
}

// CountryBySlug resolves a URL slug (or display name) to a country through
// the slug index of the current country list, then the fallback dataset.
func (s *Service) CountryBySlug(ctx context.Context, name string) (Result[Country], error) {
	r := s.countries(ctx)
	if c, ok := r.Data.bySlug(name); ok {
		return Result[Country]{Data: c, Origin: r.Origin, Reason: r.Reason}, nil
	}
	if r.Origin != OriginFallback {
		if c, ok := s.fbCountries.bySlug(name); ok {
			return s.fallbackHit("country_by_slug", c), nil
		}
	}
	return Result[Country]{}, fmt.Errorf("country %q: %w", name, ErrNotFound)
}

// PaginatedCountries returns the zero-indexed page of the ranked country list.
func (s *Service) PaginatedCountries(ctx context.Context, page, limit int) Result[CountryPage] {
	page, limit = normalizePage(page, limit)
	key := fmt.Sprintf("countries:page:%d:%d", page, limit)

	return load(ctx, s, "countries_page", key,
		func(ctx context.Context) (CountryPage, error) {
			rows, total, err := s.src.CountriesPage(ctx, page*limit, limit)
			if err != nil {
				return CountryPage{}, fmt.Errorf("paging countries: %w", err)
			}
			return CountryPage{Countries: rows, HasMore: HasMore(page, limit, total), Total: total}, nil
		},
		// A page past the end is legitimately empty; only an empty table is not.
		func(p CountryPage) bool { return p.Total == 0 },
		func() CountryPage {
			rows := pageOf(s.fbCountries.Countries, page, limit)
			total := len(s.fbCountries.Countries)
			return CountryPage{Countries: cloneCountries(rows), HasMore: HasMore(page, limit, total), Total: total}
		},
	)
}

// ---- cities ----

func (s *Service) cities(ctx context.Context) Result[cityIndex] {
	return load(ctx, s, "cities", "cities:all",
		func(ctx context.Context) (cityIndex, error) {
			rows, err := s.src.ListCities(ctx)
			if err != nil {
				return cityIndex{}, fmt.Errorf("listing cities: %w", err)
			}
			return newCityIndex(rows), nil
		},
		func(ix cityIndex) bool { return len(ix.Cities) == 0 },
		func() cityIndex { return s.fbCities },
	)
}

// AllCities returns every city ordered by rank.
func (s *Service) AllCities(ctx context.Context) Result[[]City] {
	r := s.cities(ctx)
	return Result[[]City]{Data: cloneCities(r.Data.Cities), Origin: r.Origin, Reason: r.Reason}
}

// CitiesByCountryID returns the cities whose country reference is id.
func (s *Service) CitiesByCountryID(ctx context.Context, id int) Result[[]City] {
	return s.citiesByCountry(ctx, id, func() []City { return s.fbCities.inCountry(id) })
}

// CitiesOf lists the cities of a resolved country. A country served from the
// fallback dataset carries a seed id, so its cities come from the fallback
// dataset and the remote store is never asked about that id. A remote
// country whose city list falls back is matched to its seed twin by slug.
func (s *Service) CitiesOf(ctx context.Context, country Result[Country]) Result[[]City] {
	if country.Origin == OriginFallback {
		s.rec.Fallback("cities_by_country", reasonCode(country.Reason))
		return Result[[]City]{Data: s.fbCities.inCountry(country.Data.ID), Origin: OriginFallback, Reason: country.Reason}
	}
	return s.citiesByCountry(ctx, country.Data.ID, func() []City {
		twin, ok := s.fbCountries.bySlug(country.Data.Name)
		if !ok {
			return []City{}
		}
		return s.fbCities.inCountry(twin.ID)
	})
}

func (s *Service) citiesByCountry(ctx context.Context, id int, fallback func() []City) Result[[]City] {
	key := fmt.Sprintf("cities:country:%d", id)
	return load(ctx, s, "cities_by_country", key,
		func(ctx context.Context) ([]City, error) {
			rows, err := s.src.CitiesByCountry(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("listing cities of country %d: %w", id, err)
			}
			return rows, nil
		},
		func(rows []City) bool { return len(rows) == 0 },
		fallback,
	)
}

// CitiesByCountrySlug resolves the country first, then lists its cities.
func (s *Service) CitiesByCountrySlug(ctx context.Context, countrySlug string) (Result[[]City], error) {
	country, err := s.CountryBySlug(ctx, countrySlug)
	if err != nil {
		return Result[[]City]{}, err
	}
	return s.CitiesOf(ctx, country), nil
}

// CityBySlug resolves a city slug. When countrySlug is non-empty the match is
// restricted to that country, which disambiguates shared city names.
func (s *Service) CityBySlug(ctx context.Context, countrySlug, citySlug string) (Result[City], error) {
	if countrySlug == "" {
		return s.resolveCity(ctx, nil, citySlug)
	}
	country, err := s.CountryBySlug(ctx, countrySlug)
	if err != nil {
		return Result[City]{}, err
	}
	return s.resolveCity(ctx, &country, citySlug)
}

// resolveCity finds citySlug, inside country when one is given. Remote and
// seed ids never mix: a seed country is searched only in seed cities, and a
// remote country reaches seed cities only through its seed twin.
func (s *Service) resolveCity(ctx context.Context, country *Result[Country], citySlug string) (Result[City], error) {
	notFound := fmt.Errorf("city %q: %w", citySlug, ErrNotFound)

	if country != nil && country.Origin == OriginFallback {
		if c, ok := s.fbCities.bySlug(citySlug, country.Data.ID); ok {
			return s.fallbackCityHit(c, country.Reason), nil
		}
		return Result[City]{}, notFound
	}

	r := s.cities(ctx)
	if r.Origin != OriginFallback {
		countryID := 0
		if country != nil {
			countryID = country.Data.ID
		}
		if c, ok := r.Data.bySlug(citySlug, countryID); ok {
			return Result[City]{Data: c, Origin: r.Origin, Reason: r.Reason}, nil
		}
	}

	c, ok := s.seedCity(citySlug, country)
	if !ok {
		return Result[City]{}, notFound
	}
	if r.Origin == OriginFallback {
		return Result[City]{Data: c, Origin: OriginFallback, Reason: r.Reason}, nil
	}
	return s.fallbackCityHit(c, ErrNotFound), nil
}

// seedCity looks citySlug up in the fallback dataset, scoped to the seed
// country sharing the given country's slug.
func (s *Service) seedCity(citySlug string, country *Result[Country]) (City, bool) {
	if country == nil {
		return s.fbCities.bySlug(citySlug, 0)
	}
	twin, ok := s.fbCountries.bySlug(country.Data.Name)
	if !ok {
		return City{}, false
	}
	return s.fbCities.bySlug(citySlug, twin.ID)
}

// PaginatedCities returns the zero-indexed page of the ranked city list.
func (s *Service) PaginatedCities(ctx context.Context, page, limit int) Result[CityPage] {
	page, limit = normalizePage(page, limit)
	key := fmt.Sprintf("cities:page:%d:%d", page, limit)

	return load(ctx, s, "cities_page", key,
		func(ctx context.Context) (CityPage, error) {
			rows, total, err := s.src.CitiesPage(ctx, page*limit, limit)
			if err != nil {
				return CityPage{}, fmt.Errorf("paging cities: %w", err)
			}
			return CityPage{Cities: rows, HasMore: HasMore(page, limit, total), Total: total}, nil
		},
		func(p CityPage) bool { return p.Total == 0 },
		func() CityPage {
			rows := pageOf(s.fbCities.Cities, page, limit)
			total := len(s.fbCities.Cities)
			return CityPage{Cities: cloneCities(rows), HasMore: HasMore(page, limit, total), Total: total}
		},
	)
}

// Destination assembles the detail view for one city: the country, the city
// inside it, and the city's decoded content sections. The country lookup and
// the city list load run in parallel. Content that fails to decode is logged
// and left out rather than failing the whole view.
func (s *Service) Destination(ctx context.Context, countrySlug, citySlug string) (Result[Destination], error) {
	g, gCtx := errgroup.WithContext(ctx)

	var country Result[Country]
	g.Go(func() error {
		r, err := s.CountryBySlug(gCtx, countrySlug)
		if err != nil {
			return err
		}
		country = r
		return nil
	})
	g.Go(func() error {
		s.cities(gCtx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result[Destination]{}, err
	}

	city, err := s.resolveCity(ctx, &country, citySlug)
	if err != nil {
		return Result[Destination]{}, err
	}

	d := Destination{Country: country.Data, City: city.Data}
	d.Overview = s.sections(city.Data, "overview", city.Data.Overview)
	d.ThingsToDo = s.sections(city.Data, "thingstodo", city.Data.ThingsToDo)

	// The weaker of the two origins describes the view.
	origin, reason := city.Origin, city.Reason
	if country.Origin == OriginFallback {
		origin, reason = country.Origin, country.Reason
	}
	return Result[Destination]{Data: d, Origin: origin, Reason: reason}, nil
}

func (s *Service) sections(c City, field string, raw []byte) []Section {
	if len(raw) == 0 {
		return nil
	}
	out, err := ParseSections(raw)
	if err != nil {
		s.log.Warn().Err(err).Int("city_id", c.ID).Str("field", field).Msg("skipping unreadable city content")
		return nil
	}
	return out
}

func (s *Service) fallbackHit(accessor string, c Country) Result[Country] {
	s.rec.Fallback(accessor, reasonCode(ErrNotFound))
	return Result[Country]{Data: c, Origin: OriginFallback, Reason: ErrNotFound}
}

func (s *Service) fallbackCityHit(c City, reason error) Result[City] {
	s.rec.Fallback("city_by_slug", reasonCode(reason))
	return Result[City]{Data: c, Origin: OriginFallback, Reason: reason}
}

func normalizePage(page, limit int) (int, int) {
	if page < 0 {
		page = 0
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func pageOf[T any](rows []T, page, limit int) []T {
	start := page * limit
	if start >= len(rows) {
		return []T{}
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func cloneCountries(in []Country) []Country {
	out := make([]Country, len(in))
	copy(out, in)
	return out
}

func cloneCities(in []City) []City {
	out := make([]City, len(in))
	copy(out, in)
	return out
}
