// Package feed implements the infinite-scroll list: pages are fetched one at
// a time, merged by id, and filtered on read.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// State is a pager's position in its lifecycle.
type State string

const (
	StateInitialLoading State = "initial-loading"
	StateIdle           State = "idle"
	StateLoadingMore    State = "loading-more"
	StateExhausted      State = "exhausted"
)

// ErrBusy is returned by LoadMore while another fetch is in flight.
var ErrBusy = errors.New("feed: fetch already in flight")

// Page is one fetched page.
type Page[T any] struct {
	Items   []T
	HasMore bool
	Total   int
}

// FetchFunc loads the zero-indexed page.
type FetchFunc[T any] func(ctx context.Context, page, limit int) (Page[T], error)

// Pager accumulates pages of T. At most one fetch runs at a time; a second
// trigger while loading is rejected, not queued.
type Pager[T any] struct {
	fetch FetchFunc[T]
	id    func(T) int
	limit int

	mu       sync.Mutex
	state    State
	starting bool
	next     int
	total    int
	items    []T
	seen     map[int]struct{}
	lastErr  error
}

// New creates a pager in the initial-loading state.
func New[T any](fetch FetchFunc[T], id func(T) int, limit int) *Pager[T] {
	if limit <= 0 {
		limit = 36
	}
	return &Pager[T]{
		fetch: fetch,
		id:    id,
		limit: limit,
		state: StateInitialLoading,
		total: -1,
		seen:  make(map[int]struct{}),
	}
}

// Seed accepts a server-provided first page in place of fetching page 0.
func (p *Pager[T]) Seed(first Page[T]) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateInitialLoading {
		return fmt.Errorf("feed: seed in state %s", p.state)
	}
	p.apply(first)
	return nil
}

// Start fetches page 0. It is a no-op once the pager has left initial-loading
// and returns ErrBusy while the first fetch is running.
func (p *Pager[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateInitialLoading {
		p.mu.Unlock()
		return nil
	}
	if p.starting {
		p.mu.Unlock()
		return ErrBusy
	}
	p.starting = true
	p.mu.Unlock()

	page, err := p.fetch(ctx, 0, p.limit)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.starting = false
	if err != nil {
		p.lastErr = err
		return fmt.Errorf("loading first page: %w", err)
	}
	if p.state == StateInitialLoading {
		p.apply(page)
	}
	return nil
}

// LoadMore fetches the next page when idle. It returns ErrBusy when a fetch
// is already running and does nothing once exhausted. A failed fetch leaves
// the items untouched and the pager idle, so the call can be retried.
func (p *Pager[T]) LoadMore(ctx context.Context) error {
	p.mu.Lock()
	switch p.state {
	case StateLoadingMore:
		p.mu.Unlock()
		return ErrBusy
	case StateExhausted:
		p.mu.Unlock()
		return nil
	case StateInitialLoading:
		p.mu.Unlock()
		return p.Start(ctx)
	}
	p.state = StateLoadingMore
	n := p.next
	p.mu.Unlock()

	page, err := p.fetch(ctx, n, p.limit)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state = StateIdle
		p.lastErr = err
		return fmt.Errorf("loading page %d: %w", n, err)
	}
	p.apply(page)
	return nil
}

// apply merges page into the accumulated items. Callers hold mu.
func (p *Pager[T]) apply(page Page[T]) {
	if p.total < 0 {
		p.total = page.Total
	}
	for _, item := range page.Items {
		k := p.id(item)
		if _, dup := p.seen[k]; dup {
			continue
		}
		p.seen[k] = struct{}{}
		p.items = append(p.items, item)
	}
	p.next++
	p.lastErr = nil

	// The total is fixed at the first page. Rows added later are not chased,
	// and an empty page ends the feed even if the backend still claims more.
	switch {
	case !page.HasMore, len(page.Items) == 0, p.next*p.limit >= p.total:
		p.state = StateExhausted
	default:
		p.state = StateIdle
	}
}

// State returns the current state.
func (p *Pager[T]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// HasMore reports whether LoadMore can still add items.
func (p *Pager[T]) HasMore() bool {
	return p.State() != StateExhausted
}

// Total returns the total snapshotted from the first page, or -1 before it.
func (p *Pager[T]) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// Err returns the error from the most recent failed fetch, cleared by the
// next successful one.
func (p *Pager[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Items returns a copy of everything loaded so far, in first-seen order.
func (p *Pager[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]T, len(p.items))
	copy(out, p.items)
	return out
}

// Visible returns the loaded items that satisfy keep.
func (p *Pager[T]) Visible(keep func(T) bool) []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]T, 0, len(p.items))
	for _, item := range p.items {
		if keep == nil || keep(item) {
			out = append(out, item)
		}
	}
	return out
}
