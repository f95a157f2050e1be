package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "expedition:"

// Connect parses redisURL, creates a client, and verifies connectivity with a ping.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}

// Redis is a Store shared across processes. Expiry is left to Redis.
type Redis struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewRedis constructs a Redis store with the given default TTL.
func NewRedis(client *redis.Client, defaultTTL time.Duration) *Redis {
	return &Redis{client: client, defaultTTL: defaultTTL}
}

// key namespaces and normalizes a cache key.
func key(k string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(k))
}

// Get returns the value stored under k. A missing key reports false, not an error.
func (r *Redis) Get(ctx context.Context, k string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key(k)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get for %s: %w", k, err)
	}
	return val, true, nil
}

// Set stores val under k with ttl as the Redis expiry; a non-positive ttl uses the default.
func (r *Redis) Set(ctx context.Context, k string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	if err := r.client.Set(ctx, key(k), val, ttl).Err(); err != nil {
		return fmt.Errorf("cache set for %s: %w", k, err)
	}
	return nil
}

// Delete removes k. A missing key is not an error.
func (r *Redis) Delete(ctx context.Context, k string) error {
	if err := r.client.Del(ctx, key(k)).Err(); err != nil {
		return fmt.Errorf("cache delete for %s: %w", k, err)
	}
	return nil
}

// Cleanup is a no-op: Redis expires keys itself.
func (r *Redis) Cleanup(context.Context) (int, error) {
	return 0, nil
}

// Purge deletes every key under this store's prefix.
func (r *Redis) Purge(ctx context.Context) (int, error) {
	removed := 0
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := r.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return removed, fmt.Errorf("cache purge: %w", err)
		}
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("cache purge scan: %w", err)
	}
	return removed, nil
}

// Ping checks the connection. Used by the health endpoint.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
