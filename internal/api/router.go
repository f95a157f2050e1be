package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/julianalert/expedition37-sub000/internal/logging"
	"github.com/julianalert/expedition37-sub000/internal/metrics"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AdminToken     string
	AllowedOrigins []string
	// RateLimit is requests per minute per client IP; zero disables it.
	RateLimit int
	Checks    []Check
	// Metrics is optional; when set, requests are counted and /metrics is served.
	Metrics *metrics.Collector
	Log     zerolog.Logger
}

// NewRouter builds and returns the Chi router with all routes configured.
// Read routes and health are public; cache administration requires the
// bearer admin token.
func NewRouter(h *Handlers, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogging(opts.Log))
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", logging.RequestIDHeader},
		ExposedHeaders: []string{OriginHeader, logging.RequestIDHeader},
		MaxAge:         300,
	}))

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandlerFunc(opts.Checks, opts.Log))

		r.Group(func(r chi.Router) {
			if opts.RateLimit > 0 {
				r.Use(httprate.LimitByIP(opts.RateLimit, time.Minute))
			}

			r.Get("/countries", h.ListCountries)
			r.Get("/countries/page", h.CountriesPage)
			r.Get("/countries/{country}", h.GetCountry)
			r.Get("/countries/{country}/cities", h.CountryCities)
			r.Get("/countries/{country}/cities/{city}", h.GetDestination)

			r.Get("/cities", h.ListCities)
			r.Get("/cities/page", h.CitiesPage)
			r.Get("/cities/{city}", h.GetCity)

			r.Get("/slugs/{slug}", h.SlugName)
		})

		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(opts.AdminToken))
			r.Post("/admin/cache/cleanup", h.CleanupCache)
			r.Delete("/admin/cache", h.PurgeCache)
		})
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
