package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/julianalert/expedition37-sub000/internal/catalog"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository reads the country and city tables. It implements catalog.Source.
//
// Rows are selected as to_jsonb(row) and decoded with encoding/json, so the
// column names are the JSON field names of catalog.Country and catalog.City
// and both sources share one decoding path.
type Repository struct {
	q Querier
}

var _ catalog.Source = (*Repository)(nil)

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

const (
	listCountriesSQL = `
		SELECT to_jsonb(c), count(*) OVER ()
		FROM country c
		ORDER BY c.rank, c.name`

	pageCountriesSQL = listCountriesSQL + `
		OFFSET $1 LIMIT $2`

	countCountriesSQL = `SELECT count(*) FROM country`

	listCitiesSQL = `
		SELECT to_jsonb(c), count(*) OVER ()
		FROM city c
		ORDER BY c.rank, c.name`

	pageCitiesSQL = listCitiesSQL + `
		OFFSET $1 LIMIT $2`

	citiesByCountrySQL = `
		SELECT to_jsonb(c), count(*) OVER ()
		FROM city c
		WHERE c.country = $1
		ORDER BY c.rank, c.name`

	countCitiesSQL = `SELECT count(*) FROM city`
)

// ListCountries returns every country ordered by rank, then name.
func (r *Repository) ListCountries(ctx context.Context) ([]catalog.Country, error) {
	rows, _, err := queryJSON[catalog.Country](ctx, r.q, listCountriesSQL)
	if err != nil {
		return nil, fmt.Errorf("querying countries: %w", err)
	}
	return rows, nil
}

// CountriesPage returns limit countries starting at offset, plus the table size.
func (r *Repository) CountriesPage(ctx context.Context, offset, limit int) ([]catalog.Country, int, error) {
	rows, total, err := queryJSON[catalog.Country](ctx, r.q, pageCountriesSQL, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("querying country page at %d: %w", offset, err)
	}
	if len(rows) == 0 {
		// The window count is only carried on returned rows.
		if total, err = r.count(ctx, countCountriesSQL); err != nil {
			return nil, 0, fmt.Errorf("counting countries: %w", err)
		}
	}
	return rows, total, nil
}

// ListCities returns every city ordered by rank, then name.
func (r *Repository) ListCities(ctx context.Context) ([]catalog.City, error) {
	rows, _, err := queryJSON[catalog.City](ctx, r.q, listCitiesSQL)
	if err != nil {
		return nil, fmt.Errorf("querying cities: %w", err)
	}
	return rows, nil
}

// CitiesByCountry returns the cities referencing countryID.
func (r *Repository) CitiesByCountry(ctx context.Context, countryID int) ([]catalog.City, error) {
	rows, _, err := queryJSON[catalog.City](ctx, r.q, citiesByCountrySQL, countryID)
	if err != nil {
		return nil, fmt.Errorf("querying cities of country %d: %w", countryID, err)
	}
	return rows, nil
}

// CitiesPage returns limit cities starting at offset, plus the table size.
func (r *Repository) CitiesPage(ctx context.Context, offset, limit int) ([]catalog.City, int, error) {
	rows, total, err := queryJSON[catalog.City](ctx, r.q, pageCitiesSQL, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("querying city page at %d: %w", offset, err)
	}
	if len(rows) == 0 {
		if total, err = r.count(ctx, countCitiesSQL); err != nil {
			return nil, 0, fmt.Errorf("counting cities: %w", err)
		}
	}
	return rows, total, nil
}

// Ping checks that the database answers queries.
func (r *Repository) Ping(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

func (r *Repository) count(ctx context.Context, sql string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, sql).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// queryJSON runs a query whose rows are (jsonb document, window count) and
// decodes each document into T.
func queryJSON[T any](ctx context.Context, q Querier, sql string, args ...any) ([]T, int, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out   []T
		total int
	)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc, &total); err != nil {
			return nil, 0, fmt.Errorf("scanning row: %w", err)
		}
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, 0, fmt.Errorf("unmarshaling row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating rows: %w", err)
	}
	return out, total, nil
}
