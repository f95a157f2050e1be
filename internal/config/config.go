package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Default cache lifetimes. Development keeps entries briefly so edits to the
// backing tables show up while iterating.
const (
	devCacheTTL  = 30 * time.Second
	prodCacheTTL = 5 * time.Minute
)

// Config holds all service configuration sourced from the environment.
type Config struct {
	Env  string
	Port string

	// Hosted backend (PostgREST). Both values are required to use it.
	SupabaseURL string
	SupabaseKey string

	// Direct Postgres connection, used when the hosted backend is not configured.
	DatabaseURL   string
	MigrationsDir string

	// Shared cache. Empty means the in-process TTL cache is used.
	RedisURL string

	CacheTTL             time.Duration
	CacheCleanupInterval time.Duration
	RemoteTimeout        time.Duration

	AdminToken     string
	AllowedOrigins []string
	RateLimit      int

	LogLevel  string
	LogFormat string
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:           strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		Port:          getEnv("PORT", "8080"),
		SupabaseURL:   strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseKey:   os.Getenv("SUPABASE_ANON_KEY"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
		RedisURL:      os.Getenv("REDIS_URL"),
		AdminToken:    os.Getenv("ADMIN_TOKEN"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS",
			"http://localhost:3000,http://localhost:5173")),
	}

	defaultFormat := "json"
	if cfg.IsDevelopment() {
		defaultFormat = "text"
	}
	cfg.LogFormat = getEnv("LOG_FORMAT", defaultFormat)

	var err error
	if cfg.CacheTTL, err = durationEnv("CACHE_TTL", cfg.defaultCacheTTL()); err != nil {
		return nil, err
	}
	if cfg.CacheCleanupInterval, err = durationEnv("CACHE_CLEANUP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.RemoteTimeout, err = durationEnv("REMOTE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = intEnv("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		problems = append(problems, "APP_ENV must be one of: development, production")
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		problems = append(problems, "PORT must be between 1 and 65535")
	}
	if c.CacheTTL <= 0 {
		problems = append(problems, "CACHE_TTL must be positive")
	}
	if c.CacheCleanupInterval <= 0 {
		problems = append(problems, "CACHE_CLEANUP_INTERVAL must be positive")
	}
	if c.RemoteTimeout <= 0 {
		problems = append(problems, "REMOTE_TIMEOUT must be positive")
	}
	if c.RateLimit < 1 {
		problems = append(problems, "RATE_LIMIT_PER_MINUTE must be at least 1")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, "LOG_LEVEL must be one of: debug, info, warn, error")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		problems = append(problems, "LOG_FORMAT must be one of: json, text")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// Warnings lists settings that are accepted but have no effect. Half a
// Supabase configuration is ignored and the remaining backends are tried.
func (c *Config) Warnings() []string {
	var out []string
	switch {
	case c.SupabaseURL != "" && c.SupabaseKey == "":
		out = append(out, "SUPABASE_URL is set without SUPABASE_ANON_KEY; hosted backend disabled")
	case c.SupabaseURL == "" && c.SupabaseKey != "":
		out = append(out, "SUPABASE_ANON_KEY is set without SUPABASE_URL; hosted backend disabled")
	}
	return out
}

func (c *Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// UseSupabase reports whether the hosted backend is configured. It takes
// precedence over DatabaseURL.
func (c *Config) UseSupabase() bool { return c.SupabaseURL != "" && c.SupabaseKey != "" }

// RemoteConfigured reports whether any remote store is configured. When it is
// false every accessor serves the fallback dataset.
func (c *Config) RemoteConfigured() bool { return c.UseSupabase() || c.DatabaseURL != "" }

func (c *Config) defaultCacheTTL() time.Duration {
	if c.IsProduction() {
		return prodCacheTTL
	}
	return devCacheTTL
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
