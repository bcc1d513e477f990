package store

import "github.com/jmgilman/go/statekit/errors"

// Status is the lifecycle state of a Store.
type Status string

const (
	// StatusIdle means no action is running and no error is recorded.
	StatusIdle Status = "idle"

	// StatusLoading means an action is in progress.
	StatusLoading Status = "loading"

	// StatusErrored means the last action failed and its error is still recorded.
	StatusErrored Status = "errored"
)

// State is an immutable snapshot of a Store.
type State[T any] struct {
	Items   []T
	Loading bool
	Err     errors.AppError
}

// Status derives the lifecycle state from the snapshot.
func (s State[T]) Status() Status {
	switch {
	case s.Loading:
		return StatusLoading
	case s.Err != nil:
		return StatusErrored
	default:
		return StatusIdle
	}
}

// HasItems reports whether the snapshot holds at least one item.
func (s State[T]) HasItems() bool {
	return len(s.Items) > 0
}

// ItemCount returns the number of items.
func (s State[T]) ItemCount() int {
	return len(s.Items)
}

// HasError reports whether an error is recorded.
func (s State[T]) HasError() bool {
	return s.Err != nil
}

// IsReady reports whether the store is neither loading nor errored.
func (s State[T]) IsReady() bool {
	return !s.Loading && s.Err == nil
}
