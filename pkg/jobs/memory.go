package jobs

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/matzehuels/cityposter/pkg/errors"
)

// MemoryRegistry keeps jobs in process memory. Finished jobs older than the
// TTL are dropped lazily on Create.
type MemoryRegistry struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryRegistry creates an empty registry. A zero ttl uses DefaultTTL.
func NewMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryRegistry{jobs: make(map[string]*Job), ttl: ttl, now: time.Now}
}

func (r *MemoryRegistry) Create(ctx context.Context, j *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.expire()
	if _, ok := r.jobs[j.ID]; ok {
		return errors.New(errors.ErrCodeConflict, "job %s already exists", j.ID)
	}
	r.jobs[j.ID] = clone(j)
	return nil
}

func (r *MemoryRegistry) Get(ctx context.Context, id string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, notFound(id)
	}
	return clone(j), nil
}

func (r *MemoryRegistry) Update(ctx context.Context, id string, fn func(*Job) error) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.jobs[id]
	if !ok {
		return nil, notFound(id)
	}
	next := clone(cur)
	if err := fn(next); err != nil {
		return nil, err
	}
	r.jobs[id] = next
	return clone(next), nil
}

func (r *MemoryRegistry) Close() error { return nil }

// Len returns the number of tracked jobs.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// expire drops finished jobs past the TTL. Callers hold mu.
func (r *MemoryRegistry) expire() {
	cutoff := r.now().Add(-r.ttl)
	for id, j := range r.jobs {
		if j.Status.Terminal() && !j.FinishedAt.IsZero() && j.FinishedAt.Before(cutoff) {
			delete(r.jobs, id)
		}
	}
}

func clone(j *Job) *Job {
	c := *j
	c.Themes = slices.Clone(j.Themes)
	c.Files = slices.Clone(j.Files)
	c.CacheHits = slices.Clone(j.CacheHits)
	c.Request.ThemeOverrides = maps.Clone(j.Request.ThemeOverrides)
	c.Request.OnStage = nil
	return &c
}

var _ Registry = (*MemoryRegistry)(nil)
