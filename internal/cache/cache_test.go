package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianalert/expedition37-sub000/internal/cache"
)

func newTestRedis(t *testing.T) (*cache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return cache.NewRedis(client, time.Hour), mr
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMemory(ttl time.Duration) (*cache.Memory, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return cache.NewMemoryWithClock(ttl, clock.Now), clock
}

type sample struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// ---- Memory ----

func TestMemory_SetThenGet(t *testing.T) {
	m, _ := newTestMemory(time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "countries:all", []byte("v"), 0))

	got, ok, err := m.Get(ctx, "countries:all")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestMemory_Get_Miss(t *testing.T) {
	m, _ := newTestMemory(time.Minute)

	got, ok, err := m.Get(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok, "cache miss should not be an error")
	assert.Nil(t, got)
}

func TestMemory_ExpiresAfterTTL(t *testing.T) {
	m, clock := newTestMemory(time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 10*time.Second))

	clock.Advance(10 * time.Second)
	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok, "entry is still valid exactly at its TTL")

	clock.Advance(time.Nanosecond)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok, "entry should be gone once TTL has elapsed")
	assert.Equal(t, 0, m.Len(), "expired entry is evicted lazily on Get")
}

func TestMemory_DefaultTTLApplied(t *testing.T) {
	m, clock := newTestMemory(time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	clock.Advance(59 * time.Second)
	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemory_Cleanup(t *testing.T) {
	m, clock := newTestMemory(time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "short", []byte("a"), time.Second))
	require.NoError(t, m.Set(ctx, "long", []byte("b"), time.Hour))

	clock.Advance(2 * time.Second)
	n, err := m.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, m.Len())

	_, ok, _ := m.Get(ctx, "long")
	assert.True(t, ok)
}

func TestMemory_DeleteAndPurge(t *testing.T) {
	m, _ := newTestMemory(time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, m.Set(ctx, "c", []byte("3"), 0))

	require.NoError(t, m.Delete(ctx, "a"))
	require.NoError(t, m.Delete(ctx, "ghost"))
	assert.Equal(t, 2, m.Len())

	n, err := m.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_Run_StopsOnCancel(t *testing.T) {
	m := cache.NewMemory(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Millisecond))

	done := make(chan struct{})
	go func() {
		m.Run(ctx, 5*time.Millisecond, zerolog.Nop())
		close(done)
	}()

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// ---- JSON helpers ----

func TestJSONHelpers_RoundTrip(t *testing.T) {
	m, _ := newTestMemory(time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.SetJSON(ctx, m, "s", sample{Name: "Japan", Score: 91}, 0))

	got, ok, err := cache.GetJSON[sample](ctx, m, "s")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Japan", got.Name)
	assert.Equal(t, 91, got.Score)
}

func TestJSONHelpers_CorruptValue(t *testing.T) {
	m, _ := newTestMemory(time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "s", []byte("not-json"), 0))

	_, ok, err := cache.GetJSON[sample](ctx, m, "s")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "unmarshaling")
}

// ---- Redis ----

func TestRedis_SetAndGet(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "countries:all", []byte(`[1,2]`), 0))

	got, ok, err := c.Get(ctx, "countries:all")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[1,2]`, string(got))
}

func TestRedis_Get_Miss(t *testing.T) {
	c, _ := newTestRedis(t)

	got, ok, err := c.Get(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestRedis_KeyIsNormalized(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, " Country:JAPAN ", []byte("v"), 0))
	assert.True(t, mr.Exists("expedition:country:japan"))

	_, ok, err := c.Get(ctx, "country:japan")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedis_TTL(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entry should be expired after TTL")
}

func TestRedis_DefaultTTL(t *testing.T) {
	c, mr := newTestRedis(t)

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
	assert.Equal(t, time.Hour, mr.TTL("expedition:k"))
}

func TestRedis_DeleteAndPurge(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("unrelated", "keep"))
	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, c.Delete(ctx, "a"))
	require.NoError(t, c.Delete(ctx, "ghost"))

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, mr.Exists("unrelated"), "purge only touches namespaced keys")
}

func TestRedis_CleanupIsNoop(t *testing.T) {
	c, _ := newTestRedis(t)
	n, err := c.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedis_Ping(t *testing.T) {
	c, mr := newTestRedis(t)
	require.NoError(t, c.Ping(context.Background()))

	mr.Close()
	require.Error(t, c.Ping(context.Background()))
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := cache.Connect(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestConnect_UnreachableServer(t *testing.T) {
	_, err := cache.Connect(context.Background(), "redis://localhost:19999")
	require.Error(t, err)
}

func TestConnect_OK(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := cache.Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	_ = client.Close()
}
