// Package supabase reads the country and city tables from a hosted Supabase
// project through its PostgREST endpoint.
package supabase

import (
	"context"
	"fmt"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/julianalert/expedition37-sub000/internal/catalog"
)

const (
	countryTable = "country"
	cityTable    = "city"
)

var ascending = &postgrest.OrderOpts{Ascending: true}

// ranked orders rows by rank, then name, then id. Range pages need the full
// tiebreak or rows sharing a rank can move between pages.
func ranked(q *postgrest.FilterBuilder) *postgrest.FilterBuilder {
	return q.Order("rank", ascending).Order("name", ascending).Order("id", ascending)
}

// Source implements catalog.Source over the Supabase REST API.
type Source struct {
	client *supabase.Client
}

var _ catalog.Source = (*Source)(nil)

// NewSource builds a client for the project at url, authenticating with the
// public anon key.
func NewSource(url, anonKey string) (*Source, error) {
	client, err := supabase.NewClient(url, anonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	return &Source{client: client}, nil
}

// ListCountries returns every country ordered by rank, then name.
func (s *Source) ListCountries(ctx context.Context) ([]catalog.Country, error) {
	var rows []catalog.Country
	err := do(ctx, func() error {
		_, err := ranked(s.client.From(countryTable).Select("*", "", false)).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("selecting countries: %w", err)
	}
	return rows, nil
}

// CountriesPage returns limit countries starting at offset together with the
// exact table size reported in Content-Range.
func (s *Source) CountriesPage(ctx context.Context, offset, limit int) ([]catalog.Country, int, error) {
	var rows []catalog.Country
	var total int
	err := do(ctx, func() error {
		count, err := ranked(s.client.From(countryTable).Select("*", "exact", false)).
			Range(offset, offset+limit-1, "").
			ExecuteTo(&rows)
		total = int(count)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("selecting country page at %d: %w", offset, err)
	}
	return rows, total, nil
}

// ListCities returns every city ordered by rank, then name.
func (s *Source) ListCities(ctx context.Context) ([]catalog.City, error) {
	var rows []catalog.City
	err := do(ctx, func() error {
		_, err := ranked(s.client.From(cityTable).Select("*", "", false)).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("selecting cities: %w", err)
	}
	return rows, nil
}

// CitiesByCountry returns the cities whose country column equals countryID.
func (s *Source) CitiesByCountry(ctx context.Context, countryID int) ([]catalog.City, error) {
	var rows []catalog.City
	err := do(ctx, func() error {
		q := s.client.From(cityTable).
			Select("*", "", false).
			Eq("country", fmt.Sprint(countryID))
		_, err := ranked(q).ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("selecting cities of country %d: %w", countryID, err)
	}
	return rows, nil
}

// CitiesPage returns limit cities starting at offset with the exact total.
func (s *Source) CitiesPage(ctx context.Context, offset, limit int) ([]catalog.City, int, error) {
	var rows []catalog.City
	var total int
	err := do(ctx, func() error {
		count, err := ranked(s.client.From(cityTable).Select("*", "exact", false)).
			Range(offset, offset+limit-1, "").
			ExecuteTo(&rows)
		total = int(count)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("selecting city page at %d: %w", offset, err)
	}
	return rows, total, nil
}

// Ping selects a single country id.
func (s *Source) Ping(ctx context.Context) error {
	return do(ctx, func() error {
		_, _, err := s.client.From(countryTable).
			Select("id", "", false).
			Limit(1, "").
			Execute()
		return err
	})
}

// do runs a blocking PostgREST call and gives up when ctx ends. The client
// has no context support, so an abandoned call finishes in the background.
func do(ctx context.Context, call func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- call() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
