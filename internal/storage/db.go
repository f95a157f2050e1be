package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// MigrationPool is the minimal interface required to run migrations.
// *pgxpool.Pool satisfies this interface.
type MigrationPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Connect opens a pgxpool connection and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating pgxpool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// Open creates a pool without dialing. Connections are made on first use, so
// an unreachable database shows up as query errors instead of a startup
// failure.
func Open(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating pgxpool: %w", err)
	}
	return pool, nil
}

// MigrateWithRetry runs RunMigrations until it succeeds or ctx ends. The
// wait between attempts doubles up to maxWait. A missing migrations
// directory is not retried.
func MigrateWithRetry(ctx context.Context, pool MigrationPool, migrationsDir string, log zerolog.Logger, wait, maxWait time.Duration) error {
	for attempt := 1; ; attempt++ {
		err := RunMigrations(ctx, pool, migrationsDir, log)
		if err == nil {
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("migrations failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, maxWait)
	}
}

const createLedgerSQL = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

const claimMigrationSQL = `
	INSERT INTO schema_migrations (name) VALUES ($1)
	ON CONFLICT (name) DO NOTHING`

// RunMigrations reads all .sql files from migrationsDir in lexicographic order
// and executes the ones not yet recorded in schema_migrations. Each file runs
// in its own transaction together with its ledger row, so a failed file
// leaves no trace and is retried on the next start.
func RunMigrations(ctx context.Context, pool MigrationPool, migrationsDir string, log zerolog.Logger) error {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("reading migrations dir %s: %w", migrationsDir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(migrationsDir, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil
	}

	if _, err := runInTx(ctx, pool, "", createLedgerSQL); err != nil {
		return fmt.Errorf("creating migration ledger: %w", err)
	}

	for _, f := range files {
		sql, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", f, err)
		}

		name := filepath.Base(f)
		applied, err := runInTx(ctx, pool, name, string(sql))
		if err != nil {
			return fmt.Errorf("executing migration %s: %w", f, err)
		}
		if applied {
			log.Info().Str("migration", name).Msg("migration applied")
		}
	}

	return nil
}

// runInTx runs the given SQL in a transaction, rolling back on failure. When
// name is set the migration is first claimed in the ledger; an existing
// claim means it already ran and the SQL is skipped.
func runInTx(ctx context.Context, pool MigrationPool, name, sql string) (bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}

	if name != "" {
		tag, err := tx.Exec(ctx, claimMigrationSQL, name)
		if err != nil {
			_ = tx.Rollback(ctx)
			return false, fmt.Errorf("recording migration: %w", err)
		}
		if tag.RowsAffected() == 0 {
			_ = tx.Rollback(ctx)
			return false, nil
		}
	}

	if _, err := tx.Exec(ctx, sql); err != nil {
		_ = tx.Rollback(ctx)
		return false, fmt.Errorf("executing SQL: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}

	return true, nil
}
