package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type entry struct {
	data     []byte
	storedAt time.Time
	ttl      time.Duration
}

// valid reports whether the entry is still live at now. The boundary
// (now - storedAt == ttl) counts as live.
func (e entry) valid(now time.Time) bool {
	return now.Sub(e.storedAt) <= e.ttl
}

// Memory is an in-process Store. Entries expire by TTL only; there is no size
// bound. Each process holds its own copy.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]entry
	defaultTTL time.Duration
	now        func() time.Time
}

// NewMemory constructs a Memory store with the given default TTL.
func NewMemory(defaultTTL time.Duration) *Memory {
	return NewMemoryWithClock(defaultTTL, time.Now)
}

// NewMemoryWithClock constructs a Memory store with a custom clock (for tests).
func NewMemoryWithClock(defaultTTL time.Duration, now func() time.Time) *Memory {
	return &Memory{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		now:        now,
	}
}

// Get returns the value for key if present and unexpired. Expired entries are
// evicted on the way out.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.valid(m.now()) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.data, true, nil
}

// Set stores val under key until ttl elapses; a non-positive ttl uses the default.
func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	m.mu.Lock()
	m.entries[key] = entry{data: val, storedAt: m.now(), ttl: ttl}
	m.mu.Unlock()
	return nil
}

// Delete removes key. A missing key is not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Cleanup evicts expired entries and returns how many were removed.
func (m *Memory) Cleanup(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for k, e := range m.entries {
		if !e.valid(now) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Purge removes every entry and returns how many there were.
func (m *Memory) Purge(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.entries)
	m.entries = make(map[string]entry)
	return n, nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Run calls Cleanup every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, _ := m.Cleanup(ctx); n > 0 {
				log.Debug().Int("removed", n).Msg("cache cleanup")
			}
		}
	}
}
