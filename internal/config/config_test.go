package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianalert/expedition37-sub000/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "PORT", "SUPABASE_URL", "SUPABASE_ANON_KEY", "DATABASE_URL",
		"REDIS_URL", "CACHE_TTL", "CACHE_CLEANUP_INTERVAL", "REMOTE_TIMEOUT",
		"RATE_LIMIT_PER_MINUTE", "LOG_LEVEL", "LOG_FORMAT", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.RemoteConfigured())
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.AllowedOrigins)
}

func TestLoad_ProductionUsesLongerTTL(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_ExplicitTTLWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("CACHE_TTL", "90s")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("CACHE_TTL", "soon")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_TTL")
}

func TestLoad_HalfSupabaseConfigIsIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.UseSupabase())
	assert.False(t, cfg.RemoteConfigured())
	require.Len(t, cfg.Warnings(), 1)
	assert.Contains(t, cfg.Warnings()[0], "SUPABASE_ANON_KEY")
}

func TestLoad_HalfSupabaseFallsThroughToDatabase(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("DATABASE_URL", "postgres://localhost/db")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.UseSupabase())
	assert.True(t, cfg.RemoteConfigured())
	assert.Contains(t, cfg.Warnings()[0], "SUPABASE_URL")
}

func TestLoad_SupabaseTakesPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUPABASE_URL", "https://example.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("DATABASE_URL", "postgres://localhost/db")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.UseSupabase())
	assert.True(t, cfg.RemoteConfigured())
	assert.Equal(t, "https://example.supabase.co", cfg.SupabaseURL)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := &config.Config{
		Env:                  "staging",
		Port:                 "0",
		CacheTTL:             time.Minute,
		CacheCleanupInterval: time.Minute,
		RemoteTimeout:        time.Second,
		RateLimit:            1,
		LogLevel:             "loud",
		LogFormat:            "json",
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_ENV")
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}
