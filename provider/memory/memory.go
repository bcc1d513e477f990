// Package memory provides an in-memory store.Provider for tests, demos and
// prototyping.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmgilman/go/statekit/errors"
	"github.com/jmgilman/go/statekit/store"
)

// Record is an entity the provider can assign identifiers to.
type Record[T any] interface {
	store.Entity

	// WithID returns a copy of the record carrying id.
	WithID(id string) T
}

// Provider keeps records in memory, in insertion order.
// It is safe for concurrent use.
type Provider[T Record[T]] struct {
	latency time.Duration
	newID   func() string

	mu       sync.Mutex
	records  []T
	failures []error
}

// Option configures a Provider.
type Option[T Record[T]] func(*Provider[T])

// WithLatency delays every call by d to simulate a remote service.
func WithLatency[T Record[T]](d time.Duration) Option[T] {
	return func(p *Provider[T]) {
		p.latency = d
	}
}

// WithSeed preloads records. Records without an identifier get one.
func WithSeed[T Record[T]](records ...T) Option[T] {
	return func(p *Provider[T]) {
		for _, r := range records {
			if r.EntityID() == "" {
				r = r.WithID(p.newID())
			}
			p.records = append(p.records, r)
		}
	}
}

// WithIDGenerator replaces the identifier generator (random UUIDs by default).
func WithIDGenerator[T Record[T]](fn func() string) Option[T] {
	return func(p *Provider[T]) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// New creates a Provider.
func New[T Record[T]](opts ...Option[T]) *Provider[T] {
	p := &Provider[T]{newID: uuid.NewString}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FailNext makes the next call fail with err. Calls queue up: each call
// consumes one injected failure.
func (p *Provider[T]) FailNext(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, err)
}

// Len returns the number of stored records.
func (p *Provider[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

// FetchAll returns every record.
func (p *Provider[T]) FetchAll(ctx context.Context) ([]T, error) {
	if err := p.begin(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.records), nil
}

// FetchOne returns the record with id.
func (p *Provider[T]) FetchOne(ctx context.Context, id string) (T, error) {
	var zero T
	if err := p.begin(ctx); err != nil {
		return zero, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexLocked(id)
	if i < 0 {
		return zero, notFound()
	}
	return p.records[i], nil
}

// Create stores record, assigning an identifier when it has none.
func (p *Provider[T]) Create(ctx context.Context, record T) (T, error) {
	var zero T
	if err := p.begin(ctx); err != nil {
		return zero, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if record.EntityID() == "" {
		record = record.WithID(p.newID())
	} else if p.indexLocked(record.EntityID()) >= 0 {
		return zero, errors.Newf(errors.CodeAlreadyExists, "record %s already exists", record.EntityID())
	}
	p.records = append(p.records, record)
	return record, nil
}

// Update replaces the record with id.
func (p *Provider[T]) Update(ctx context.Context, id string, record T) (T, error) {
	var zero T
	if err := p.begin(ctx); err != nil {
		return zero, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexLocked(id)
	if i < 0 {
		return zero, notFound()
	}
	record = record.WithID(id)
	p.records[i] = record
	return record, nil
}

// Remove deletes the record with id.
func (p *Provider[T]) Remove(ctx context.Context, id string) error {
	if err := p.begin(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexLocked(id)
	if i < 0 {
		return notFound()
	}
	p.records = slices.Delete(p.records, i, i+1)
	return nil
}

// begin simulates latency and consumes an injected failure.
func (p *Provider[T]) begin(ctx context.Context) error {
	if p.latency > 0 {
		t := time.NewTimer(p.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.failures) == 0 {
		return nil
	}
	err := p.failures[0]
	p.failures = p.failures[1:]
	return err
}

func (p *Provider[T]) indexLocked(id string) int {
	return slices.IndexFunc(p.records, func(r T) bool {
		return r.EntityID() == id
	})
}

func notFound() error {
	return errors.NewStatusError(404, "Not Found")
}
