package catalog

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the circuit breaker around a Source.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
	// OnStateChange is called with the old and new state names.
	OnStateChange func(name, from, to string)
}

// DefaultBreakerConfig trips after 5 requests when at least 60% failed and
// probes again after 30 seconds.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      2,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Guarded wraps a Source in a circuit breaker. While the breaker is open
// calls fail immediately with gobreaker.ErrOpenState, which the Service
// treats like any other remote error and answers from fallback data.
type Guarded struct {
	src Source
	cb  *gobreaker.CircuitBreaker
}

// NewGuarded wraps src.
func NewGuarded(src Source, cfg BreakerConfig) *Guarded {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			cfg.OnStateChange(name, from.String(), to.String())
		}
	}
	return &Guarded{src: src, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State returns the breaker state name: closed, half-open or open.
func (g *Guarded) State() string {
	return g.cb.State().String()
}

type pageResult[T any] struct {
	rows  []T
	total int
}

func guard[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	v, err := cb.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (g *Guarded) ListCountries(ctx context.Context) ([]Country, error) {
	return guard(g.cb, func() ([]Country, error) { return g.src.ListCountries(ctx) })
}

func (g *Guarded) CountriesPage(ctx context.Context, offset, limit int) ([]Country, int, error) {
	p, err := guard(g.cb, func() (pageResult[Country], error) {
		rows, total, err := g.src.CountriesPage(ctx, offset, limit)
		return pageResult[Country]{rows, total}, err
	})
	return p.rows, p.total, err
}

func (g *Guarded) ListCities(ctx context.Context) ([]City, error) {
	return guard(g.cb, func() ([]City, error) { return g.src.ListCities(ctx) })
}

func (g *Guarded) CitiesByCountry(ctx context.Context, countryID int) ([]City, error) {
	return guard(g.cb, func() ([]City, error) { return g.src.CitiesByCountry(ctx, countryID) })
}

func (g *Guarded) CitiesPage(ctx context.Context, offset, limit int) ([]City, int, error) {
	p, err := guard(g.cb, func() (pageResult[City], error) {
		rows, total, err := g.src.CitiesPage(ctx, offset, limit)
		return pageResult[City]{rows, total}, err
	})
	return p.rows, p.total, err
}
