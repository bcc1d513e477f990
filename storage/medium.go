package storage

import (
	"context"
	"errors"
)

// ErrQuotaExceeded is returned by a Medium when a write does not fit.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// ErrUnavailable is the cause attached to reports made while the medium is unusable.
var ErrUnavailable = errors.New("storage medium unavailable")

// Medium is the durable store underneath Storage: a flat map of string keys
// to string values. Implementations must be safe for concurrent use.
type Medium interface {
	// Read returns the value stored under key.
	// The boolean is false, with a nil error, when the key does not exist.
	Read(ctx context.Context, key string) (string, bool, error)

	// Write stores value under key, replacing any previous value.
	// Returns an error wrapping ErrQuotaExceeded when the medium is full.
	Write(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Enumerate returns every stored key in no particular order.
	Enumerate(ctx context.Context) ([]string, error)

	// Clear removes every key.
	Clear(ctx context.Context) error
}

// Sizer is implemented by media that can report their approximate footprint
// (key and value bytes) without reading every value.
type Sizer interface {
	Size(ctx context.Context) (int64, error)
}

type mediumConfig struct {
	root      string
	namespace string
	maxBytes  int64
}

// MediumOption configures a Medium implementation.
type MediumOption func(*mediumConfig)

// WithMaxBytes sets a hard quota: writes that would grow the stored keys and
// values beyond n bytes fail with ErrQuotaExceeded. Zero disables the quota.
func WithMaxBytes(n int64) MediumOption {
	return func(c *mediumConfig) {
		c.maxBytes = n
	}
}

// WithRoot sets the directory an FSMedium keeps its entries in.
func WithRoot(dir string) MediumOption {
	return func(c *mediumConfig) {
		if dir != "" {
			c.root = dir
		}
	}
}

// WithNamespace sets the key prefix a RedisMedium stores entries under.
func WithNamespace(ns string) MediumOption {
	return func(c *mediumConfig) {
		if ns != "" {
			c.namespace = ns
		}
	}
}

func newMediumConfig(opts []MediumOption) mediumConfig {
	cfg := mediumConfig{
		root:      "statekit",
		namespace: "statekit:",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
