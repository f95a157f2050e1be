package storage_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianalert/expedition37-sub000/internal/catalog"
	"github.com/julianalert/expedition37-sub000/internal/storage"
)

// ---- mock Querier ----

type mockQuerier struct {
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.queryRowFn(ctx, sql, args...)
}
func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.queryFn(ctx, sql, args...)
}
func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.execFn(ctx, sql, args...)
}

// ---- mock pgx.Row ----

type fakeRow struct {
	scanFn func(dest ...any) error
}

func (f *fakeRow) Scan(dest ...any) error { return f.scanFn(dest...) }

// ---- mock pgx.Rows ----

type fakeRows struct {
	rows    [][]any
	idx     int
	rowErr  error
	scanErr error
}

func (f *fakeRows) Next() bool                                   { f.idx++; return f.idx <= len(f.rows) }
func (f *fakeRows) Err() error                                   { return f.rowErr }
func (f *fakeRows) Close()                                       {}
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Scan(dest ...any) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	row := f.rows[f.idx-1]
	for i, d := range dest {
		if i >= len(row) {
			break
		}
		switch v := d.(type) {
		case *int:
			*v = row[i].(int)
		case *[]byte:
			*v = row[i].([]byte)
		}
	}
	return nil
}

// ---- helpers ----

func doc(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func countryRows(t *testing.T, total int, cs ...catalog.Country) *fakeRows {
	rows := &fakeRows{}
	for _, c := range cs {
		rows.rows = append(rows.rows, []any{doc(t, c), total})
	}
	return rows
}

// ---- countries ----

func TestListCountries(t *testing.T) {
	budget := 850.0
	pt := catalog.Country{ID: 1, Name: "Portugal", Continent: "Europe", Attributes: catalog.Attributes{
		Rank:         1,
		WeeklyBudget: &budget,
		Facets:       catalog.Facets{Safe: true},
	}}

	var gotSQL string
	q := &mockQuerier{
		queryFn: func(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
			gotSQL = sql
			return countryRows(t, 1, pt), nil
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	got, err := repo.ListCountries(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pt, got[0])
	assert.Contains(t, gotSQL, "ORDER BY c.rank, c.name")
}

func TestListCountries_DecodesDatabaseColumns(t *testing.T) {
	raw := []byte(`{"id":7,"name":"Japan","continent":"Asia","fastInternet":true,"mood":["calm"],"weeklyBudget":null,"rank":2}`)
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return &fakeRows{rows: [][]any{{raw, 1}}}, nil
		},
	}

	got, err := storage.NewRepositoryWithQuerier(q).ListCountries(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].FastInternet)
	assert.Nil(t, got[0].WeeklyBudget)
	assert.Equal(t, []string{"calm"}, got[0].Mood)
}

func TestListCountries_QueryError(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return nil, fmt.Errorf("connection reset")
		},
	}

	_, err := storage.NewRepositoryWithQuerier(q).ListCountries(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying countries")
}

func TestListCountries_ScanError(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return &fakeRows{rows: [][]any{{[]byte("{}"), 1}}, scanErr: fmt.Errorf("scan failed")}, nil
		},
	}

	_, err := storage.NewRepositoryWithQuerier(q).ListCountries(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning")
}

func TestListCountries_BadJSON(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return &fakeRows{rows: [][]any{{[]byte("not-json"), 1}}}, nil
		},
	}

	_, err := storage.NewRepositoryWithQuerier(q).ListCountries(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshaling")
}

func TestListCountries_RowsErr(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return &fakeRows{rowErr: fmt.Errorf("rows iteration error")}, nil
		},
	}

	_, err := storage.NewRepositoryWithQuerier(q).ListCountries(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterating")
}

func TestCountriesPage(t *testing.T) {
	var gotArgs []any
	q := &mockQuerier{
		queryFn: func(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
			gotArgs = args
			assert.Contains(t, sql, "OFFSET $1 LIMIT $2")
			return countryRows(t, 40, catalog.Country{ID: 37}, catalog.Country{ID: 38}), nil
		},
	}

	rows, total, err := storage.NewRepositoryWithQuerier(q).CountriesPage(context.Background(), 36, 36)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 40, total)
	assert.Equal(t, []any{36, 36}, gotArgs)
}

func TestCountriesPage_PastEndCountsSeparately(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return &fakeRows{}, nil
		},
		queryRowFn: func(_ context.Context, sql string, _ ...any) pgx.Row {
			assert.Contains(t, sql, "count(*) FROM country")
			return &fakeRow{scanFn: func(dest ...any) error {
				*dest[0].(*int) = 40
				return nil
			}}
		},
	}

	rows, total, err := storage.NewRepositoryWithQuerier(q).CountriesPage(context.Background(), 80, 36)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 40, total)
}

func TestCountriesPage_CountError(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return &fakeRows{}, nil },
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(...any) error { return fmt.Errorf("timeout") }}
		},
	}

	_, _, err := storage.NewRepositoryWithQuerier(q).CountriesPage(context.Background(), 0, 36)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "counting countries")
}

// ---- cities ----

func TestCitiesByCountry(t *testing.T) {
	city := catalog.City{
		ID:        10,
		Name:      "Kyoto",
		CountryID: 7,
		Overview:  json.RawMessage(`[{"title":"Temples","content":"Many."}]`),
	}
	var gotArgs []any
	q := &mockQuerier{
		queryFn: func(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
			gotArgs = args
			assert.Contains(t, sql, "WHERE c.country = $1")
			return &fakeRows{rows: [][]any{{doc(t, city), 1}}}, nil
		},
	}

	got, err := storage.NewRepositoryWithQuerier(q).CitiesByCountry(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].CountryID)
	assert.JSONEq(t, string(city.Overview), string(got[0].Overview))
	assert.Equal(t, []any{7}, gotArgs)
}

func TestListCities_Error(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return nil, fmt.Errorf("relation \"city\" does not exist")
		},
	}

	_, err := storage.NewRepositoryWithQuerier(q).ListCities(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying cities")
}

func TestCitiesPage(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
			require.True(t, strings.Contains(sql, "FROM city c"))
			return &fakeRows{rows: [][]any{{doc(t, catalog.City{ID: 1}), 3}}}, nil
		},
	}

	rows, total, err := storage.NewRepositoryWithQuerier(q).CitiesPage(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 3, total)
}

// ---- Ping ----

func TestPing(t *testing.T) {
	q := &mockQuerier{
		execFn: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			assert.Equal(t, "SELECT 1", sql)
			return pgconn.CommandTag{}, nil
		},
	}
	assert.NoError(t, storage.NewRepositoryWithQuerier(q).Ping(context.Background()))

	q.execFn = func(context.Context, string, ...any) (pgconn.CommandTag, error) {
		return pgconn.CommandTag{}, fmt.Errorf("down")
	}
	assert.Error(t, storage.NewRepositoryWithQuerier(q).Ping(context.Background()))
}

// ---- NewRepository ----

func TestNewRepository_NotNil(t *testing.T) {
	repo := storage.NewRepository(nil)
	assert.NotNil(t, repo)
}

// ---- Connect tests ----

func TestConnect_BadURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := storage.Connect(ctx, "postgres://invalid-host-xyz:5432/db?sslmode=disable")
	require.Error(t, err)
}
