package cache

import (
	"context"
	"sort"
	"sync"
)

// Tracker tallies cache hits by key type for a single run.
type Tracker struct {
	mu   sync.Mutex
	hits map[string]int
	miss map[string]int
}

type trackerKey struct{}

// WithTracker returns a context carrying a fresh Tracker.
func WithTracker(ctx context.Context) (context.Context, *Tracker) {
	t := &Tracker{hits: map[string]int{}, miss: map[string]int{}}
	return context.WithValue(ctx, trackerKey{}, t), t
}

// TrackerFrom returns the context's Tracker, or nil.
func TrackerFrom(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}

// Hit records a cache hit. Safe on a nil Tracker.
func (t *Tracker) Hit(keyType string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.hits[keyType]++
	t.mu.Unlock()
}

// Miss records a cache miss. Safe on a nil Tracker.
func (t *Tracker) Miss(keyType string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.miss[keyType]++
	t.mu.Unlock()
}

// Hits returns the sorted key types that were served from cache.
func (t *Tracker) Hits() []string {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.hits))
	for k := range t.hits {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Counts returns total hits and misses.
func (t *Tracker) Counts() (hits, misses int) {
	if t == nil {
		return 0, 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, n := range t.hits {
		hits += n
	}
	for _, n := range t.miss {
		misses += n
	}
	return hits, misses
}
