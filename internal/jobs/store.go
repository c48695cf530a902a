package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the registry of jobs. Implementations are safe for concurrent use.
type Store interface {
	// Create records a new queued job for a validated input.
	Create(ctx context.Context, input Input) (Job, error)
	// Get returns a snapshot of the job, or ErrNotFound.
	Get(ctx context.Context, id string) (Job, error)
	// List returns every job in creation order, oldest first.
	List(ctx context.Context) ([]Job, error)
	// Update merges patch into the job and returns the updated snapshot.
	Update(ctx context.Context, id string, patch Patch) (Job, error)
	Close() error
}

// Option customizes a store.
type Option func(*storeOptions)

type storeOptions struct {
	now   func() time.Time
	newID func() string
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides job id allocation.
func WithIDGenerator(newID func() string) Option {
	return func(o *storeOptions) {
		if newID != nil {
			o.newID = newID
		}
	}
}

func resolveOptions(opts []Option) storeOptions {
	o := storeOptions{
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// MemoryStore keeps jobs in process memory for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
	opts  storeOptions
}

// NewMemoryStore returns an empty in-memory registry.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*Job),
		opts: resolveOptions(opts),
	}
}

func (s *MemoryStore) Create(ctx context.Context, input Input) (Job, error) {
	if err := input.Validate(); err != nil {
		return Job{}, err
	}
	// The clock is read under the lock so creation order and createdAt agree.
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.now()
	job := &Job{
		ID:        s.opts.newID(),
		Status:    StatusQueued,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, exists := s.jobs[job.ID]; exists {
		return Job{}, fmt.Errorf("create job: id %s already allocated", job.ID)
	}
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	return job.clone(), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return job.clone(), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id].clone())
	}
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, patch Patch) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := job.clone()
	if err := applyPatch(&next, patch, s.opts.now()); err != nil {
		return Job{}, err
	}
	*job = next
	return next.clone(), nil
}

// Close is a no-op; memory is released with the store.
func (s *MemoryStore) Close() error { return nil }
