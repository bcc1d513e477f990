package errors

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu      sync.Mutex
	handled []AppError
	ctxs    []ErrorContext
}

func (o *recordingObserver) ErrorHandled(err AppError, ec ErrorContext) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handled = append(o.handled, err)
	o.ctxs = append(o.ctxs, ec)
}

type panickingObserver struct{}

func (panickingObserver) ErrorHandled(AppError, ErrorContext) { panic("observer exploded") }

type panickingHandler struct{ slog.Handler }

func (panickingHandler) Handle(context.Context, slog.Record) error { panic("log sink exploded") }

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	obs := &recordingObserver{}
	h := NewHandler(WithLogger(newTestLogger(&buf)), WithObserver(obs))

	ec := ErrorContext{Component: "Storage", Action: "get", Metadata: map[string]any{"key": "app_theme"}}
	got := h.Handle(context.Background(), NewStatusError(503, ""), ec)

	require.Equal(t, CodeServer, got.Code())
	require.Len(t, obs.handled, 1)
	require.Same(t, got, obs.handled[0])
	require.Equal(t, ec, obs.ctxs[0])

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "ERROR", entry["level"])
	require.Equal(t, "error handled", entry["msg"])
	require.Equal(t, "SERVER_ERROR", entry["code"])
	require.Equal(t, "critical", entry["severity"])
	require.Equal(t, map[string]any{
		"component": "Storage",
		"action":    "get",
		"key":       "app_theme",
	}, entry["context"])
}

func TestHandler_LogLevelFollowsSeverity(t *testing.T) {
	tests := []struct {
		code  ErrorCode
		level string
	}{
		{CodeNotFound, "INFO"},
		{CodeForbidden, "WARN"},
		{CodeConflict, "ERROR"},
		{CodeNetwork, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			var buf bytes.Buffer
			h := NewHandler(WithLogger(newTestLogger(&buf)))
			h.Handle(context.Background(), New(tt.code, "x"), ErrorContext{})

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			require.Equal(t, tt.level, entry["level"])
			require.NotContains(t, entry, "context")
		})
	}
}

func TestHandler_ReportingNeverPanics(t *testing.T) {
	h := NewHandler(
		WithLogger(slog.New(panickingHandler{slog.NewTextHandler(&bytes.Buffer{}, nil)})),
		WithObserver(panickingObserver{}),
	)

	var got AppError
	require.NotPanics(t, func() {
		got = h.Handle(nil, "not an error", ErrorContext{})
	})
	require.Equal(t, CodeUnknown, got.Code())
}

func TestHandler_UserMessage(t *testing.T) {
	h := NewHandler()
	require.Equal(t, "es", h.Locale())
	require.Equal(t, "El almacenamiento no está disponible.", h.UserMessage(New(CodeStorageNotAvailable, "")))
	require.Empty(t, h.UserMessage(nil))

	en := NewHandler(WithLocale("en-US"))
	require.Equal(t, "Storage is not available.", en.UserMessage(New(CodeStorageNotAvailable, "")))
}

func TestHandler_Retry(t *testing.T) {
	h := NewHandler()
	require.True(t, h.ShouldRetry(New(CodeTimeout, "")))
	require.False(t, h.ShouldRetry(New(CodeValidation, "")))
	require.Equal(t, 8*time.Second, h.RetryDelay(4))

	fast := NewHandler(WithBackoff(Backoff{Initial: time.Millisecond, Max: 5 * time.Millisecond}))
	require.Equal(t, 4*time.Millisecond, fast.RetryDelay(3))
	require.Equal(t, 5*time.Millisecond, fast.RetryDelay(10))
}

func TestHandler_NilOptionsIgnored(t *testing.T) {
	h := NewHandler(WithLogger(nil), WithMessages(nil))
	require.NotNil(t, h.logger)
	require.NotNil(t, h.messages)
}
