package storage

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/jmgilman/go/statekit/errors"
)

const (
	// DefaultQuotaWarnBytes is the estimated footprint above which Set warns.
	DefaultQuotaWarnBytes int64 = 4 * 1024 * 1024

	// probeKey is written and removed once to check that the medium works.
	probeKey = "__storage_test__"

	component = "Storage"
)

// Operation results reported to an Observer.
const (
	ResultHit         = "hit"
	ResultMiss        = "miss"
	ResultOK          = "ok"
	ResultError       = "error"
	ResultUnavailable = "unavailable"
)

// Observer is notified of the outcome of every Storage operation.
// Implementations must be safe for concurrent use.
type Observer interface {
	StorageOperation(operation, result string)
}

// Usage describes the current footprint of the store.
type Usage struct {
	// Bytes is the approximate size of all keys and values.
	Bytes int64

	// Available reports whether the medium passed the availability probe.
	Available bool

	// Keys is the number of stored keys.
	Keys int
}

// Storage persists typed values under the declared keys.
//
// Every value is wrapped in a versioned envelope recording when it was
// written and, optionally, when it expires. Storage never returns errors:
// failures are reported through the errors.Handler and surface as an absent
// value or a false result. A Storage is safe for concurrent use.
type Storage struct {
	medium    Medium
	handler   *errors.Handler
	logger    *slog.Logger
	observer  Observer
	clock     func() time.Time
	warnBytes int64
	available bool
}

// Option configures a Storage.
type Option func(*Storage)

// WithHandler sets the handler failures are reported to.
func WithHandler(h *errors.Handler) Option {
	return func(s *Storage) {
		if h != nil {
			s.handler = h
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithQuotaWarnBytes sets the soft quota threshold. Zero or a negative value
// disables the warning.
func WithQuotaWarnBytes(n int64) Option {
	return func(s *Storage) {
		s.warnBytes = n
	}
}

// WithClock replaces the time source used for envelope timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Storage) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithObserver registers an observer notified of every operation.
func WithObserver(o Observer) Option {
	return func(s *Storage) {
		s.observer = o
	}
}

// New creates a Storage on top of medium and probes it once. If the probe
// fails, or medium is nil, the instance is permanently unavailable and every
// operation short-circuits without touching the medium again.
func New(ctx context.Context, medium Medium, opts ...Option) *Storage {
	s := &Storage{
		medium:    medium,
		logger:    slog.Default(),
		clock:     time.Now,
		warnBytes: DefaultQuotaWarnBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.handler == nil {
		s.handler = errors.NewHandler(errors.WithLogger(s.logger))
	}

	s.available = s.probe(ctx)
	if !s.available {
		s.logger.Warn("storage medium unavailable, operations disabled")
	}
	return s
}

func (s *Storage) probe(ctx context.Context) bool {
	if s.medium == nil {
		return false
	}
	if err := s.medium.Write(ctx, probeKey, probeKey); err != nil {
		s.logger.Debug("storage probe write failed", "error", err)
		return false
	}
	if err := s.medium.Delete(ctx, probeKey); err != nil {
		s.logger.Debug("storage probe delete failed", "error", err)
		return false
	}
	return true
}

// Available reports whether the medium passed the availability probe.
func (s *Storage) Available() bool {
	return s.available
}

// Get returns the value stored under key.
//
// The boolean is false when the storage is unavailable, the key is missing,
// the entry cannot be decoded into T, or the entry has expired. Expired
// entries are deleted as a side effect.
func Get[T any](ctx context.Context, s *Storage, key Key) (T, bool) {
	var zero T
	if !s.check(ctx, "get", key) {
		return zero, false
	}

	data, ok, err := s.medium.Read(ctx, key.String())
	if err != nil {
		s.fail(ctx, "get", errors.Wrapf(err, errors.CodeStorageNotAvailable,
			"Failed to get item from storage: %s", key), key)
		return zero, false
	}
	if !ok {
		s.observe("get", ResultMiss)
		return zero, false
	}

	env, err := parseEnvelope(data)
	if err != nil {
		s.fail(ctx, "get", errors.Wrapf(err, errors.CodeStorageNotAvailable,
			"Failed to get item from storage: %s", key), key)
		return zero, false
	}

	if env.expired(s.clock()) {
		s.logger.Debug("storage entry expired", "key", key.String(), "expires_at", *env.ExpiresAt)
		if err := s.medium.Delete(ctx, key.String()); err != nil {
			s.fail(ctx, "get", errors.Wrapf(err, errors.CodeStorageNotAvailable,
				"Failed to remove item from storage: %s", key), key)
			return zero, false
		}
		s.observe("get", ResultMiss)
		return zero, false
	}

	var v T
	if err := env.decode(&v); err != nil {
		s.fail(ctx, "get", errors.Wrapf(err, errors.CodeStorageNotAvailable,
			"Failed to get item from storage: %s", key), key)
		return zero, false
	}

	s.observe("get", ResultHit)
	return v, true
}

// SetOption configures a single Set call.
type SetOption func(*setOptions)

type setOptions struct {
	ttl *time.Duration
}

// WithTTL makes the entry expire d after it is written. A zero or negative
// duration produces an entry that is already expired.
func WithTTL(d time.Duration) SetOption {
	return func(o *setOptions) {
		o.ttl = &d
	}
}

// Set stores value under key and reports whether the write succeeded.
//
// If the estimated footprint after the write exceeds the soft quota, a
// STORAGE_QUOTA_EXCEEDED warning is reported and the write is still
// attempted.
func Set[T any](ctx context.Context, s *Storage, key Key, value T, opts ...SetOption) bool {
	if !s.check(ctx, "set", key) {
		return false
	}

	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	data, err := newEnvelope(value, s.clock(), o.ttl)
	if err != nil {
		s.fail(ctx, "set", errors.Wrapf(err, errors.CodeInvalidInput,
			"Failed to encode value for storage: %s", key), key)
		return false
	}

	s.warnQuota(ctx, key, data)

	if err := s.medium.Write(ctx, key.String(), data); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			s.fail(ctx, "set", errors.Wrap(err, errors.CodeStorageQuotaExceeded,
				"Storage quota exceeded"), key)
		} else {
			s.fail(ctx, "set", errors.Wrapf(err, errors.CodeStorageNotAvailable,
				"Failed to set item in storage: %s", key), key)
		}
		return false
	}

	s.observe("set", ResultOK)
	return true
}

func (s *Storage) warnQuota(ctx context.Context, key Key, data string) {
	if s.warnBytes <= 0 {
		return
	}

	current, err := s.sizeExcluding(ctx, key.String())
	if err != nil {
		s.handler.Handle(ctx, errors.Wrap(err, errors.CodeStorageNotAvailable,
			"Failed to calculate storage size"), s.context("getStorageSize", Key{}, nil))
		return
	}

	itemSize := int64(len(key.String()) + len(data))
	if current+itemSize > s.warnBytes {
		s.handler.Handle(ctx, errors.New(errors.CodeStorageQuotaExceeded,
			"Storage quota may be exceeded"), s.context("set", key, map[string]any{
			"currentSize": current,
			"itemSize":    itemSize,
		}))
	}
}

// sizeExcluding estimates the footprint of every entry except skip.
func (s *Storage) sizeExcluding(ctx context.Context, skip string) (int64, error) {
	if sz, ok := s.medium.(Sizer); ok {
		total, err := sz.Size(ctx)
		if err != nil {
			return 0, err
		}
		if skip == "" {
			return total, nil
		}
		old, ok, err := s.medium.Read(ctx, skip)
		if err != nil {
			return 0, err
		}
		if ok {
			total -= int64(len(skip) + len(old))
		}
		return total, nil
	}

	keys, err := s.medium.Enumerate(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, k := range keys {
		if k == skip {
			continue
		}
		v, ok, err := s.medium.Read(ctx, k)
		if err != nil {
			return 0, err
		}
		if ok {
			total += int64(len(k) + len(v))
		}
	}
	return total, nil
}

// Remove deletes key and reports whether the deletion succeeded.
// Removing a missing key succeeds.
func (s *Storage) Remove(ctx context.Context, key Key) bool {
	if !s.check(ctx, "remove", key) {
		return false
	}
	if err := s.medium.Delete(ctx, key.String()); err != nil {
		s.fail(ctx, "remove", errors.Wrapf(err, errors.CodeStorageNotAvailable,
			"Failed to remove item from storage: %s", key), key)
		return false
	}
	s.observe("remove", ResultOK)
	return true
}

// Clear deletes every entry and reports whether it succeeded.
func (s *Storage) Clear(ctx context.Context) bool {
	if !s.available {
		s.unavailable(ctx, "clear", Key{})
		return false
	}
	if err := s.medium.Clear(ctx); err != nil {
		s.fail(ctx, "clear", errors.Wrap(err, errors.CodeStorageNotAvailable,
			"Failed to clear storage"), Key{})
		return false
	}
	s.observe("clear", ResultOK)
	return true
}

// Has reports whether Get would return a value for key.
func (s *Storage) Has(ctx context.Context, key Key) bool {
	_, ok := Get[any](ctx, s, key)
	return ok
}

// Keys returns the stored keys in sorted order. It returns an empty slice,
// without reporting, when the storage is unavailable.
func (s *Storage) Keys(ctx context.Context) []string {
	if !s.available {
		s.observe("keys", ResultUnavailable)
		return []string{}
	}

	keys, err := s.medium.Enumerate(ctx)
	if err != nil {
		s.fail(ctx, "keys", errors.Wrap(err, errors.CodeStorageNotAvailable,
			"Failed to get storage keys"), Key{})
		return []string{}
	}

	keys = slices.DeleteFunc(keys, func(k string) bool { return k == probeKey })
	slices.Sort(keys)
	s.observe("keys", ResultOK)
	return keys
}

// Usage returns the approximate footprint of the store.
func (s *Storage) Usage(ctx context.Context) Usage {
	u := Usage{Available: s.available}
	if !s.available {
		return u
	}

	size, err := s.sizeExcluding(ctx, "")
	if err != nil {
		s.handler.Handle(ctx, errors.Wrap(err, errors.CodeStorageNotAvailable,
			"Failed to calculate storage size"), s.context("getStorageSize", Key{}, nil))
	} else {
		u.Bytes = size
	}
	u.Keys = len(s.Keys(ctx))
	return u
}

// check reports whether an operation on key may proceed, reporting the
// reason when it may not.
func (s *Storage) check(ctx context.Context, action string, key Key) bool {
	if !s.available {
		s.unavailable(ctx, action, key)
		return false
	}
	if key.IsZero() {
		s.fail(ctx, action, errors.New(errors.CodeInvalidInput, "Storage key is required"), key)
		return false
	}
	return true
}

func (s *Storage) unavailable(ctx context.Context, action string, key Key) {
	s.handler.Handle(ctx, errors.Wrap(ErrUnavailable, errors.CodeStorageNotAvailable,
		"Storage is not available"), s.context(action, key, nil))
	s.observe(action, ResultUnavailable)
}

func (s *Storage) fail(ctx context.Context, action string, err errors.AppError, key Key) {
	s.handler.Handle(ctx, err, s.context(action, key, nil))
	s.observe(action, ResultError)
}

func (s *Storage) context(action string, key Key, md map[string]any) errors.ErrorContext {
	ec := errors.ErrorContext{Component: component, Action: action}
	if !key.IsZero() {
		ec = ec.With("key", key.String())
	}
	for k, v := range md {
		ec = ec.With(k, v)
	}
	return ec
}

func (s *Storage) observe(operation, result string) {
	if s.observer != nil {
		s.observer.StorageOperation(operation, result)
	}
}
