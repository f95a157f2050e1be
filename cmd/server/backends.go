package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/julianalert/expedition37-sub000/internal/api"
	"github.com/julianalert/expedition37-sub000/internal/cache"
	"github.com/julianalert/expedition37-sub000/internal/catalog"
	"github.com/julianalert/expedition37-sub000/internal/config"
	"github.com/julianalert/expedition37-sub000/internal/storage"
	"github.com/julianalert/expedition37-sub000/internal/supabase"
)

const (
	dialTimeout    = 5 * time.Second
	migrateWait    = time.Second
	migrateMaxWait = time.Minute
)

// backend is a wired dependency with its health check and shutdown hook.
type backend[T any] struct {
	value  T
	checks []api.Check
	close  func()
}

// openSource picks the remote store: the hosted backend, then a direct
// Postgres connection. A database that cannot be reached at startup is
// still wired through a lazily dialing pool, so reads fall back to seed data
// until it answers; migrations keep retrying in the background until ctx
// ends. A nil value means every accessor serves fallback data.
func openSource(ctx context.Context, cfg *config.Config, log zerolog.Logger) backend[catalog.Source] {
	out := backend[catalog.Source]{close: func() {}}

	switch {
	case cfg.UseSupabase():
		s, err := supabase.NewSource(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			log.Warn().Err(err).Msg("hosted backend unusable, serving fallback data")
			return out
		}
		out.value = s
		out.checks = []api.Check{{Name: "supabase", Pinger: s}}
		log.Info().Str("url", cfg.SupabaseURL).Msg("using hosted backend")

	case cfg.DatabaseURL != "":
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		pool, err := storage.Connect(dialCtx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("database unreachable, serving fallback data until it answers")
			if pool, err = storage.Open(ctx, cfg.DatabaseURL); err != nil {
				log.Warn().Err(err).Msg("database url unusable, serving fallback data")
				return out
			}
		}
		out.close = pool.Close

		go func() {
			if err := storage.MigrateWithRetry(ctx, pool, cfg.MigrationsDir, log, migrateWait, migrateMaxWait); err != nil {
				log.Error().Err(err).Msg("migrations abandoned")
				return
			}
			log.Info().Msg("migrations applied")
		}()

		repo := storage.NewRepository(pool)
		out.value = repo
		out.checks = []api.Check{{Name: "database", Pinger: repo}}

	default:
		log.Warn().Msg("no remote store configured, serving fallback data only")
	}
	return out
}

// openCache uses Redis when configured and reachable, and the in-process TTL
// cache otherwise. The in-process cache gets its cleanup janitor.
func openCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) backend[cache.Store] {
	if cfg.RedisURL != "" {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		client, err := cache.Connect(dialCtx, cfg.RedisURL)
		cancel()
		if err == nil {
			r := cache.NewRedis(client, cfg.CacheTTL)
			return backend[cache.Store]{
				value:  r,
				checks: []api.Check{{Name: "redis", Pinger: r}},
				close:  func() { _ = client.Close() },
			}
		}
		log.Warn().Err(err).Msg("redis unreachable, using in-process cache")
	}

	mem := cache.NewMemory(cfg.CacheTTL)
	go mem.Run(ctx, cfg.CacheCleanupInterval, log)
	return backend[cache.Store]{value: mem, close: func() {}}
}
