package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/julianalert/expedition37-sub000/internal/catalog"
	"github.com/julianalert/expedition37-sub000/internal/filter"
	"github.com/julianalert/expedition37-sub000/internal/logging"
	"github.com/julianalert/expedition37-sub000/internal/slug"
	"github.com/julianalert/expedition37-sub000/internal/validation"
)

// OriginHeader tells clients whether the body came from the remote store,
// the query cache or the static fallback dataset.
const OriginHeader = "X-Data-Origin"

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	catalog Catalog
	admin   CacheAdmin
	log     zerolog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(c Catalog, admin CacheAdmin, log zerolog.Logger) *Handlers {
	return &Handlers{catalog: c, admin: admin, log: log}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeData writes a 200 carrying data and its origin.
func writeData(w http.ResponseWriter, origin catalog.Origin, v any) {
	w.Header().Set(OriginHeader, string(origin))
	writeJSON(w, http.StatusOK, v)
}

// weakest returns the least authoritative origin: fallback, then cache.
func weakest(origins ...catalog.Origin) catalog.Origin {
	out := catalog.OriginRemote
	for _, o := range origins {
		switch {
		case o == catalog.OriginFallback:
			return o
		case o == catalog.OriginCache:
			out = o
		}
	}
	return out
}

// lookupFailed maps a lookup error to a response. ErrNotFound is a 404;
// anything else is logged and reported as a 500.
func (h *Handlers) lookupFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.log.Error().Err(err).
		Str("request_id", logging.RequestID(r.Context())).
		Str("path", r.URL.Path).
		Msg("lookup failed")
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// pageQuery bounds page at catalog.MaxPage.
type pageQuery struct {
	Page  int `query:"page" validate:"gte=0,lte=21474835"`
	Limit int `query:"limit" validate:"gte=1,lte=100"`
}

func parsePage(q url.Values) (pageQuery, error) {
	p := pageQuery{Limit: catalog.DefaultPageSize}
	for name, dst := range map[string]*int{"page": &p.Page, "limit": &p.Limit} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return pageQuery{}, errors.New(name + " must be an integer")
		}
		*dst = n
	}
	if err := validation.Struct(p); err != nil {
		return pageQuery{}, err
	}
	return p, nil
}

type countryList struct {
	Countries []catalog.Country `json:"countries"`
	Count     int               `json:"count"`
}

type cityList struct {
	Cities []catalog.City `json:"cities"`
	Count  int            `json:"count"`
}

// ListCountries handles GET /api/v1/countries with optional filter parameters.
func (h *Handlers) ListCountries(w http.ResponseWriter, r *http.Request) {
	state, err := filter.FromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.catalog.AllCountries(r.Context())
	matched := filter.Countries(res.Data, state)
	writeData(w, res.Origin, countryList{Countries: matched, Count: len(matched)})
}

// CountriesPage handles GET /api/v1/countries/page.
func (h *Handlers) CountriesPage(w http.ResponseWriter, r *http.Request) {
	p, err := parsePage(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res := h.catalog.PaginatedCountries(r.Context(), p.Page, p.Limit)
	writeData(w, res.Origin, res.Data)
}

// GetCountry handles GET /api/v1/countries/{country}.
func (h *Handlers) GetCountry(w http.ResponseWriter, r *http.Request) {
	res, err := h.catalog.CountryBySlug(r.Context(), chi.URLParam(r, "country"))
	if err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	writeData(w, res.Origin, res.Data)
}

// CountryCities handles GET /api/v1/countries/{country}/cities with optional
// filter parameters.
func (h *Handlers) CountryCities(w http.ResponseWriter, r *http.Request) {
	state, err := filter.FromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	country, err := h.catalog.CountryBySlug(r.Context(), chi.URLParam(r, "country"))
	if err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	cities := h.catalog.CitiesOf(r.Context(), country)

	byID := map[int]catalog.Country{country.Data.ID: country.Data}
	matched := filter.Cities(cities.Data, byID, state)
	writeData(w, weakest(country.Origin, cities.Origin), cityList{Cities: matched, Count: len(matched)})
}

// GetDestination handles GET /api/v1/countries/{country}/cities/{city}.
func (h *Handlers) GetDestination(w http.ResponseWriter, r *http.Request) {
	res, err := h.catalog.Destination(r.Context(), chi.URLParam(r, "country"), chi.URLParam(r, "city"))
	if err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	writeData(w, res.Origin, res.Data)
}

// ListCities handles GET /api/v1/cities with optional filter parameters.
// Continent filters resolve through each city's country.
func (h *Handlers) ListCities(w http.ResponseWriter, r *http.Request) {
	state, err := filter.FromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cities := h.catalog.AllCities(r.Context())
	origin := cities.Origin
	var byID map[int]catalog.Country
	if len(state.Continents) > 0 {
		countries := h.catalog.AllCountries(r.Context())
		byID = catalog.ByID(countries.Data)
		origin = weakest(origin, countries.Origin)
	}

	matched := filter.Cities(cities.Data, byID, state)
	writeData(w, origin, cityList{Cities: matched, Count: len(matched)})
}

// CitiesPage handles GET /api/v1/cities/page.
func (h *Handlers) CitiesPage(w http.ResponseWriter, r *http.Request) {
	p, err := parsePage(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res := h.catalog.PaginatedCities(r.Context(), p.Page, p.Limit)
	writeData(w, res.Origin, res.Data)
}

// GetCity handles GET /api/v1/cities/{city}. The optional country query
// parameter disambiguates cities sharing a name.
func (h *Handlers) GetCity(w http.ResponseWriter, r *http.Request) {
	res, err := h.catalog.CityBySlug(r.Context(), r.URL.Query().Get("country"), chi.URLParam(r, "city"))
	if err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	writeData(w, res.Origin, res.Data)
}

// SlugName handles GET /api/v1/slugs/{slug}, turning a path segment back into
// a display name.
func (h *Handlers) SlugName(w http.ResponseWriter, r *http.Request) {
	s := slug.Make(chi.URLParam(r, "slug"))
	if s == "" {
		writeError(w, http.StatusBadRequest, "slug is empty")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"slug": s, "name": slug.Title(s)})
}

// CleanupCache handles POST /api/v1/admin/cache/cleanup.
func (h *Handlers) CleanupCache(w http.ResponseWriter, r *http.Request) {
	n, err := h.admin.Cleanup(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("cache cleanup failed")
		writeError(w, http.StatusInternalServerError, "cache cleanup failed")
		return
	}
	h.log.Info().Int("removed", n).Msg("cache cleanup")
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

// PurgeCache handles DELETE /api/v1/admin/cache.
func (h *Handlers) PurgeCache(w http.ResponseWriter, r *http.Request) {
	n, err := h.admin.Invalidate(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("cache purge failed")
		writeError(w, http.StatusInternalServerError, "cache purge failed")
		return
	}
	h.log.Info().Int("removed", n).Msg("cache purged")
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}
