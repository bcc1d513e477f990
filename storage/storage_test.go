package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/statekit/errors"
	"github.com/jmgilman/go/statekit/logging"
)

type recordingObserver struct {
	mu       sync.Mutex
	errs     []errors.AppError
	contexts []errors.ErrorContext
	ops      []string
}

func (r *recordingObserver) ErrorHandled(err errors.AppError, ec errors.ErrorContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.contexts = append(r.contexts, ec)
}

func (r *recordingObserver) StorageOperation(op, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op+":"+result)
}

func (r *recordingObserver) codes() []errors.ErrorCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]errors.ErrorCode, len(r.errs))
	for i, e := range r.errs {
		out[i] = e.Code()
	}
	return out
}

// fakeMedium wraps a real medium and lets tests inject failures.
type fakeMedium struct {
	Medium

	mu       sync.Mutex
	calls    int
	writeErr error
	readErr  error
	enumErr  error
}

func (f *fakeMedium) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeMedium) Read(ctx context.Context, key string) (string, bool, error) {
	f.count()
	if f.readErr != nil {
		return "", false, f.readErr
	}
	return f.Medium.Read(ctx, key)
}

func (f *fakeMedium) Write(ctx context.Context, key, value string) error {
	f.count()
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.Medium.Write(ctx, key, value)
}

func (f *fakeMedium) Delete(ctx context.Context, key string) error {
	f.count()
	return f.Medium.Delete(ctx, key)
}

func (f *fakeMedium) Enumerate(ctx context.Context) ([]string, error) {
	f.count()
	if f.enumErr != nil {
		return nil, f.enumErr
	}
	return f.Medium.Enumerate(ctx)
}

func (f *fakeMedium) Clear(ctx context.Context) error {
	f.count()
	return f.Medium.Clear(ctx)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStorage(t *testing.T, medium Medium, opts ...Option) (*Storage, *recordingObserver) {
	t.Helper()
	obs := &recordingObserver{}
	h := errors.NewHandler(errors.WithLogger(logging.Discard()), errors.WithObserver(obs))
	base := []Option{WithHandler(h), WithLogger(logging.Discard()), WithObserver(obs)}
	return New(context.Background(), medium, append(base, opts...)...), obs
}

type profile struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

func TestStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, obs := newTestStorage(t, NewMemoryMedium())
	require.True(t, s.Available())

	want := profile{Name: "ana", Roles: []string{"admin"}}
	require.True(t, Set(ctx, s, KeyAuthUser, want))

	got, ok := Get[profile](ctx, s, KeyAuthUser)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.True(t, Set(ctx, s, KeyIsAdmin, true))
	admin, ok := Get[bool](ctx, s, KeyIsAdmin)
	require.True(t, ok)
	assert.True(t, admin)

	assert.Empty(t, obs.codes())
}

func TestStorage_GetMissing(t *testing.T) {
	s, obs := newTestStorage(t, NewMemoryMedium())

	v, ok := Get[string](context.Background(), s, KeyTheme)
	assert.False(t, ok)
	assert.Empty(t, v)
	assert.Empty(t, obs.codes())
	assert.Contains(t, obs.ops, "get:miss")
}

func TestStorage_Expiration(t *testing.T) {
	tests := []struct {
		name    string
		ttl     time.Duration
		advance time.Duration
		present bool
	}{
		{name: "zero ttl expires immediately", ttl: 0, advance: 0, present: false},
		{name: "negative ttl", ttl: -time.Second, advance: 0, present: false},
		{name: "before expiry", ttl: time.Minute, advance: 59 * time.Second, present: true},
		{name: "at expiry", ttl: time.Minute, advance: time.Minute, present: false},
		{name: "after expiry", ttl: time.Minute, advance: time.Hour, present: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			clock := newTestClock()
			medium := NewMemoryMedium()
			s, obs := newTestStorage(t, medium, WithClock(clock.Now))

			require.True(t, Set(ctx, s, KeyLastRoute, "/projects", WithTTL(tt.ttl)))
			clock.Advance(tt.advance)

			v, ok := Get[string](ctx, s, KeyLastRoute)
			assert.Equal(t, tt.present, ok)
			if tt.present {
				assert.Equal(t, "/projects", v)
			}

			// Expired entries are removed by the read.
			_, stored, err := medium.Read(ctx, KeyLastRoute.String())
			require.NoError(t, err)
			assert.Equal(t, tt.present, stored)
			assert.Empty(t, obs.codes())
		})
	}
}

func TestStorage_NoTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	s, _ := newTestStorage(t, NewMemoryMedium(), WithClock(clock.Now))

	require.True(t, Set(ctx, s, KeyLanguage, "es"))
	clock.Advance(24 * 365 * time.Hour)
	assert.True(t, s.Has(ctx, KeyLanguage))
}

func TestStorage_CorruptEntries(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "dark"},
		{name: "unknown version", data: `{"version":2,"value":"dark","writtenAt":"2024-03-01T12:00:00Z"}`},
		{name: "missing value", data: `{"version":1,"writtenAt":"2024-03-01T12:00:00Z"}`},
		{name: "wrong type", data: `{"version":1,"value":{"a":1},"writtenAt":"2024-03-01T12:00:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			medium := NewMemoryMedium()
			s, obs := newTestStorage(t, medium)
			require.NoError(t, medium.Write(ctx, KeyTheme.String(), tt.data))

			_, ok := Get[string](ctx, s, KeyTheme)
			assert.False(t, ok)
			require.Equal(t, []errors.ErrorCode{errors.CodeStorageNotAvailable}, obs.codes())
			assert.Equal(t, "Storage", obs.contexts[0].Component)
			assert.Equal(t, "get", obs.contexts[0].Action)
			assert.Equal(t, "app_theme", obs.contexts[0].Metadata["key"])
		})
	}
}

func TestStorage_ZeroKey(t *testing.T) {
	ctx := context.Background()
	s, obs := newTestStorage(t, NewMemoryMedium())

	assert.False(t, Set(ctx, s, Key{}, "x"))
	_, ok := Get[string](ctx, s, Key{})
	assert.False(t, ok)
	assert.False(t, s.Remove(ctx, Key{}))

	assert.Equal(t, []errors.ErrorCode{
		errors.CodeInvalidInput,
		errors.CodeInvalidInput,
		errors.CodeInvalidInput,
	}, obs.codes())
}

func TestStorage_UnencodableValue(t *testing.T) {
	ctx := context.Background()
	s, obs := newTestStorage(t, NewMemoryMedium())

	assert.False(t, Set(ctx, s, KeyTheme, func() {}))
	assert.Equal(t, []errors.ErrorCode{errors.CodeInvalidInput}, obs.codes())
}

func TestStorage_Unavailable(t *testing.T) {
	ctx := context.Background()
	medium := &fakeMedium{Medium: NewMemoryMedium(), writeErr: fmt.Errorf("disk on fire")}
	s, obs := newTestStorage(t, medium)

	require.False(t, s.Available())
	callsAfterProbe := medium.calls
	assert.Equal(t, 1, callsAfterProbe)

	_, ok := Get[string](ctx, s, KeyTheme)
	assert.False(t, ok)
	assert.False(t, Set(ctx, s, KeyTheme, "dark"))
	assert.False(t, s.Remove(ctx, KeyTheme))
	assert.False(t, s.Clear(ctx))
	assert.False(t, s.Has(ctx, KeyTheme))
	assert.Empty(t, s.Keys(ctx))

	assert.Equal(t, callsAfterProbe, medium.calls, "medium must not be touched again")

	// Keys short-circuits without reporting.
	codes := obs.codes()
	require.Len(t, codes, 5)
	for _, c := range codes {
		assert.Equal(t, errors.CodeStorageNotAvailable, c)
	}
	for _, e := range obs.errs {
		assert.ErrorIs(t, e, ErrUnavailable)
		assert.Equal(t, "Storage is not available", e.Message())
	}
	for _, ec := range obs.contexts {
		assert.Equal(t, "Storage", ec.Component)
		assert.NotEmpty(t, ec.Action)
	}
	assert.Equal(t, "app_theme", obs.contexts[0].Metadata["key"])

	u := s.Usage(ctx)
	assert.Equal(t, Usage{}, u)
}

func TestStorage_NilMedium(t *testing.T) {
	s, _ := newTestStorage(t, nil)
	assert.False(t, s.Available())
	assert.False(t, Set(context.Background(), s, KeyTheme, "dark"))
}

func TestStorage_WriteFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    errors.ErrorCode
		message string
	}{
		{
			name:    "quota exceeded",
			err:     fmt.Errorf("full: %w", ErrQuotaExceeded),
			code:    errors.CodeStorageQuotaExceeded,
			message: "Storage quota exceeded",
		},
		{
			name:    "generic failure",
			err:     fmt.Errorf("io error"),
			code:    errors.CodeStorageNotAvailable,
			message: "Failed to set item in storage: app_theme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			medium := &fakeMedium{Medium: NewMemoryMedium()}
			s, obs := newTestStorage(t, medium)
			require.True(t, s.Available())

			medium.writeErr = tt.err
			assert.False(t, Set(ctx, s, KeyTheme, "dark"))

			require.Equal(t, []errors.ErrorCode{tt.code}, obs.codes())
			assert.Equal(t, tt.message, obs.errs[0].Message())
			assert.ErrorIs(t, obs.errs[0], tt.err)
			assert.Contains(t, obs.ops, "set:error")
		})
	}
}

func TestStorage_HardQuotaFromMedium(t *testing.T) {
	ctx := context.Background()
	s, obs := newTestStorage(t, NewMemoryMedium(WithMaxBytes(200)), WithQuotaWarnBytes(0))

	assert.False(t, Set(ctx, s, KeyAuthToken, strings.Repeat("x", 500)))
	assert.Equal(t, []errors.ErrorCode{errors.CodeStorageQuotaExceeded}, obs.codes())
}

func TestStorage_QuotaWarning(t *testing.T) {
	ctx := context.Background()
	s, obs := newTestStorage(t, NewMemoryMedium(), WithQuotaWarnBytes(256))

	require.True(t, Set(ctx, s, KeyTheme, "dark"))
	assert.Empty(t, obs.codes())

	// The warning is logged but the write still happens.
	big := strings.Repeat("x", 300)
	require.True(t, Set(ctx, s, KeyAuthToken, big))
	require.Equal(t, []errors.ErrorCode{errors.CodeStorageQuotaExceeded}, obs.codes())
	assert.Equal(t, "Storage quota may be exceeded", obs.errs[0].Message())
	assert.Equal(t, "set", obs.contexts[0].Action)
	assert.Contains(t, obs.contexts[0].Metadata, "currentSize")
	assert.Contains(t, obs.contexts[0].Metadata, "itemSize")

	v, ok := Get[string](ctx, s, KeyAuthToken)
	require.True(t, ok)
	assert.Equal(t, big, v)
}

func TestStorage_QuotaWarningExcludesReplacedValue(t *testing.T) {
	ctx := context.Background()
	s, obs := newTestStorage(t, NewMemoryMedium(), WithQuotaWarnBytes(200))

	v := strings.Repeat("x", 100)
	require.True(t, Set(ctx, s, KeyAuthToken, v))
	require.True(t, Set(ctx, s, KeyAuthToken, v))
	assert.Empty(t, obs.codes())
}

func TestStorage_QuotaWarningWithoutSizer(t *testing.T) {
	ctx := context.Background()
	// fakeMedium hides the Sizer implementation of the wrapped medium.
	medium := &fakeMedium{Medium: NewMemoryMedium()}
	clock := newTestClock()
	s, obs := newTestStorage(t, medium, WithQuotaWarnBytes(200), WithClock(clock.Now))

	require.True(t, Set(ctx, s, KeyTheme, strings.Repeat("a", 60)))
	assert.Empty(t, obs.codes())
	require.True(t, Set(ctx, s, KeyLanguage, strings.Repeat("b", 60)))
	assert.Equal(t, []errors.ErrorCode{errors.CodeStorageQuotaExceeded}, obs.codes())
}

func TestStorage_RemoveClearHasKeys(t *testing.T) {
	ctx := context.Background()
	s, obs := newTestStorage(t, NewMemoryMedium())

	require.True(t, Set(ctx, s, KeyTheme, "dark"))
	require.True(t, Set(ctx, s, KeyAuthToken, "token"))
	require.True(t, Set(ctx, s, KeyLanguage, "en"))

	assert.Equal(t, []string{"app_language", "app_theme", "auth_token"}, s.Keys(ctx))
	assert.True(t, s.Has(ctx, KeyTheme))

	assert.True(t, s.Remove(ctx, KeyTheme))
	assert.False(t, s.Has(ctx, KeyTheme))
	assert.True(t, s.Remove(ctx, KeyTheme), "removing a missing key succeeds")

	u := s.Usage(ctx)
	assert.True(t, u.Available)
	assert.Equal(t, 2, u.Keys)
	assert.Positive(t, u.Bytes)

	assert.True(t, s.Clear(ctx))
	assert.Empty(t, s.Keys(ctx))
	assert.Equal(t, Usage{Available: true}, s.Usage(ctx))
	assert.Empty(t, obs.codes())
}

func TestStorage_KeysFailure(t *testing.T) {
	ctx := context.Background()
	medium := &fakeMedium{Medium: NewMemoryMedium()}
	s, obs := newTestStorage(t, medium)

	medium.enumErr = fmt.Errorf("listing failed")
	assert.Empty(t, s.Keys(ctx))
	require.Equal(t, []errors.ErrorCode{errors.CodeStorageNotAvailable}, obs.codes())
	assert.Equal(t, "Failed to get storage keys", obs.errs[0].Message())
}

func TestStorage_ReadFailure(t *testing.T) {
	ctx := context.Background()
	medium := &fakeMedium{Medium: NewMemoryMedium()}
	s, obs := newTestStorage(t, medium)

	medium.readErr = fmt.Errorf("bad sector")
	_, ok := Get[string](ctx, s, KeyTheme)
	assert.False(t, ok)
	require.Equal(t, []errors.ErrorCode{errors.CodeStorageNotAvailable}, obs.codes())
	assert.Equal(t, "Failed to get item from storage: app_theme", obs.errs[0].Message())
}

func TestStorage_EnvelopeLayout(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	medium := NewMemoryMedium()
	s, _ := newTestStorage(t, medium, WithClock(clock.Now))

	require.True(t, Set(ctx, s, KeyTheme, "dark", WithTTL(time.Hour)))

	raw, ok, err := medium.Read(ctx, KeyTheme.String())
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{
		"version": 1,
		"value": "dark",
		"writtenAt": "2024-03-01T12:00:00Z",
		"expiresAt": "2024-03-01T13:00:00Z"
	}`, raw)
}
