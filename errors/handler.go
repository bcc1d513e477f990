package errors

import (
	"context"
	"log/slog"
	"time"
)

// Observer receives every error that passes through a Handler.
// Implementations must be safe for concurrent use.
type Observer interface {
	ErrorHandled(err AppError, ec ErrorContext)
}

// Handler is the central failure boundary. It normalizes raw failures, logs
// them at a level derived from their severity, and answers retry and
// user-message questions for the components that use it.
//
// A Handler is safe for concurrent use.
type Handler struct {
	logger   *slog.Logger
	locale   string
	messages *Messages
	backoff  Backoff
	observer Observer
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the logger used for error reports.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithLocale sets the BCP 47 locale used by UserMessage.
func WithLocale(locale string) HandlerOption {
	return func(h *Handler) {
		h.locale = locale
	}
}

// WithMessages replaces the user-facing message catalog.
func WithMessages(m *Messages) HandlerOption {
	return func(h *Handler) {
		if m != nil {
			h.messages = m
		}
	}
}

// WithBackoff replaces the retry delay schedule.
func WithBackoff(b Backoff) HandlerOption {
	return func(h *Handler) {
		h.backoff = b
	}
}

// WithObserver registers an observer notified of every handled error.
func WithObserver(o Observer) HandlerOption {
	return func(h *Handler) {
		h.observer = o
	}
}

// NewHandler creates a Handler. Without options it logs to slog.Default(),
// answers in Spanish and uses DefaultBackoff.
func NewHandler(opts ...HandlerOption) *Handler {
	h := &Handler{
		logger:   slog.Default(),
		locale:   "es",
		messages: DefaultMessages(),
		backoff:  DefaultBackoff,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle normalizes raw, reports it and returns the normalized error.
// Reporting is best effort: a misbehaving log handler or observer never
// prevents the normalized error from being returned.
func (h *Handler) Handle(ctx context.Context, raw any, ec ErrorContext) AppError {
	appErr := Normalize(raw)
	h.report(ctx, appErr, ec)
	return appErr
}

func (h *Handler) report(ctx context.Context, appErr AppError, ec ErrorContext) {
	defer func() { _ = recover() }()

	if ctx == nil {
		ctx = context.Background()
	}

	severity := appErr.Severity()
	attrs := []slog.Attr{
		slog.String("code", string(appErr.Code())),
		slog.String("severity", string(severity)),
		slog.String("message", appErr.Message()),
		slog.Time("occurred_at", appErr.OccurredAt()),
	}
	if !ec.IsZero() {
		attrs = append(attrs, slog.Any("context", ec))
	}
	if d := appErr.Details(); d != nil {
		attrs = append(attrs, slog.Any("details", d))
	}
	if cause := appErr.Unwrap(); cause != nil {
		attrs = append(attrs, slog.String("cause", cause.Error()))
	}
	h.logger.LogAttrs(ctx, severity.Level(), "error handled", attrs...)

	if h.observer != nil {
		h.observer.ErrorHandled(appErr, ec)
	}
}

// UserMessage returns a non-empty, localized message for err.
func (h *Handler) UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return h.messages.Lookup(h.locale, err)
}

// ShouldRetry reports whether err is eligible for automatic retry.
func (h *Handler) ShouldRetry(err error) bool {
	return ShouldRetry(err)
}

// RetryDelay returns the wait before retry attempt n.
func (h *Handler) RetryDelay(attempt int) time.Duration {
	return h.backoff.Delay(attempt)
}

// Locale returns the locale used for user-facing messages.
func (h *Handler) Locale() string {
	return h.locale
}
