package store

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jmgilman/go/statekit/errors"
)

// Action outcomes reported to an Observer.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Observer is notified of action outcomes. Implementations must be safe for
// concurrent use.
type Observer interface {
	// ActionCompleted is called once per ExecuteAction or retry sequence.
	ActionCompleted(store, outcome string, elapsed time.Duration)

	// ActionRetried is called before each retry with the attempt that failed.
	ActionRetried(store string, attempt int)
}

// Store holds a list of entities together with loading and error state.
//
// Feature stores embed or wrap a Store and perform their work through
// ExecuteAction, mutating the items with SetItems and UpdateItems from inside
// the action. Every state change publishes a snapshot to the subscribers.
//
// A Store is safe for concurrent use, but overlapping actions on the same
// instance race on the loading and error state; the last one to finish wins.
type Store[T any] struct {
	name              string
	handler           *errors.Handler
	logger            *slog.Logger
	observer          Observer
	autoClearError    bool
	errorClearTimeout time.Duration
	maxRetries        int

	mu         sync.Mutex
	items      []T
	loading    bool
	err        errors.AppError
	clearTimer *time.Timer
	generation uint64
	subs       map[uint64]func(State[T])
	nextSub    uint64
}

// New creates an empty Store.
func New[T any](opts ...Option) *Store[T] {
	cfg := newConfig(opts)
	return &Store[T]{
		name:              cfg.name,
		handler:           cfg.handler,
		logger:            cfg.logger.With("store", cfg.name),
		observer:          cfg.observer,
		autoClearError:    cfg.autoClearError,
		errorClearTimeout: cfg.errorClearTimeout,
		maxRetries:        cfg.maxRetries,
		items:             []T{},
		loading:           cfg.initialLoading,
		subs:              make(map[uint64]func(State[T])),
	}
}

// Name returns the store name.
func (s *Store[T]) Name() string {
	return s.name
}

// Handler returns the handler the store reports failures to.
func (s *Store[T]) Handler() *errors.Handler {
	return s.handler
}

// State returns a snapshot of the store.
func (s *Store[T]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Items returns a copy of the items.
func (s *Store[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Loading reports whether an action is in progress.
func (s *Store[T]) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Error returns the recorded error, or nil.
func (s *Store[T]) Error() errors.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// HasItems reports whether the store holds at least one item.
func (s *Store[T]) HasItems() bool { return s.State().HasItems() }

// ItemCount returns the number of items.
func (s *Store[T]) ItemCount() int { return s.State().ItemCount() }

// HasError reports whether an error is recorded.
func (s *Store[T]) HasError() bool { return s.State().HasError() }

// IsReady reports whether the store is neither loading nor errored.
func (s *Store[T]) IsReady() bool { return s.State().IsReady() }

// UserErrorMessage returns the localized message for the recorded error, or
// an empty string when there is none.
func (s *Store[T]) UserErrorMessage() string {
	err := s.Error()
	if err == nil {
		return ""
	}
	return s.handler.UserMessage(err)
}

// Subscribe registers fn to receive a snapshot after every state change.
// Snapshots are delivered synchronously, outside the store lock, on the
// goroutine that made the change. The returned function unsubscribes.
func (s *Store[T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// SetItems replaces the items with a copy of items.
func (s *Store[T]) SetItems(items []T) {
	s.mutate(func() {
		s.items = append(make([]T, 0, len(items)), items...)
	})
}

// UpdateItems replaces the items with the result of fn. fn receives a copy of
// the current items and runs with the store locked, so it must not call back
// into the store.
func (s *Store[T]) UpdateItems(fn func([]T) []T) {
	s.mutate(func() {
		next := fn(slices.Clone(s.items))
		if next == nil {
			next = []T{}
		}
		s.items = next
	})
}

// ClearError cancels any pending automatic clear and removes the recorded
// error regardless of the current state.
func (s *Store[T]) ClearError() {
	s.mutate(func() {
		s.cancelClearLocked()
		s.err = nil
	})
}

// Reset empties the items, clears the error and leaves the store idle.
func (s *Store[T]) Reset() {
	s.mutate(func() {
		s.cancelClearLocked()
		s.items = []T{}
		s.loading = false
		s.err = nil
	})
}

// begin moves the store into the loading state, discarding any recorded error.
func (s *Store[T]) begin() time.Time {
	s.mutate(func() {
		s.cancelClearLocked()
		s.loading = true
		s.err = nil
	})
	return time.Now()
}

// settle leaves the loading state, recording err when it is not nil.
func (s *Store[T]) settle(err errors.AppError, started time.Time) {
	s.mutate(func() {
		s.loading = false
		if err == nil {
			return
		}
		s.err = err
		if s.autoClearError {
			s.scheduleClearLocked()
		}
	})

	if s.observer == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	s.observer.ActionCompleted(s.name, outcome, time.Since(started))
}

// scheduleClearLocked arms the auto-clear timer. A timer only clears the error
// it was armed for: any later transition bumps the generation.
func (s *Store[T]) scheduleClearLocked() {
	s.cancelClearLocked()
	gen := s.generation
	s.clearTimer = time.AfterFunc(s.errorClearTimeout, func() {
		s.expire(gen)
	})
}

func (s *Store[T]) cancelClearLocked() {
	s.generation++
	if s.clearTimer != nil {
		s.clearTimer.Stop()
		s.clearTimer = nil
	}
}

func (s *Store[T]) expire(gen uint64) {
	s.update(func() bool {
		if gen != s.generation || s.err == nil {
			return false
		}
		s.logger.Debug("clearing expired error", "code", s.err.Code())
		s.clearTimer = nil
		s.err = nil
		return true
	})
}

// mutate applies fn under the lock and publishes the resulting snapshot.
func (s *Store[T]) mutate(fn func()) {
	s.update(func() bool {
		fn()
		return true
	})
}

// update is mutate for changes that may turn out to be no-ops: nothing is
// published when fn returns false.
func (s *Store[T]) update(fn func() bool) {
	snap, subs, changed := s.apply(fn)
	if !changed {
		return
	}
	for _, sub := range subs {
		s.publish(sub, snap)
	}
}

func (s *Store[T]) apply(fn func() bool) (State[T], []func(State[T]), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !fn() {
		return State[T]{}, nil, false
	}
	subs := make([]func(State[T]), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	return s.snapshotLocked(), subs, true
}

func (s *Store[T]) publish(sub func(State[T]), snap State[T]) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("store subscriber panicked", "panic", r)
		}
	}()
	sub(snap)
}

func (s *Store[T]) snapshotLocked() State[T] {
	return State[T]{
		Items:   slices.Clone(s.items),
		Loading: s.loading,
		Err:     s.err,
	}
}
