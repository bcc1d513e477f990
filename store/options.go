package store

import (
	"log/slog"
	"time"

	"github.com/jmgilman/go/statekit/errors"
)

const (
	// DefaultErrorClearTimeout is how long an error stays recorded before it
	// is cleared automatically.
	DefaultErrorClearTimeout = 5 * time.Second

	// DefaultMaxRetries is the attempt budget of ExecuteActionWithRetry.
	DefaultMaxRetries = 3

	defaultName = "Store"
)

type config struct {
	name              string
	handler           *errors.Handler
	logger            *slog.Logger
	observer          Observer
	autoClearError    bool
	errorClearTimeout time.Duration
	initialLoading    bool
	maxRetries        int
}

func newConfig(opts []Option) config {
	cfg := config{
		name:              defaultName,
		logger:            slog.Default(),
		autoClearError:    true,
		errorClearTimeout: DefaultErrorClearTimeout,
		maxRetries:        DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.handler == nil {
		cfg.handler = errors.NewHandler(errors.WithLogger(cfg.logger))
	}
	return cfg
}

// Option configures a Store.
type Option func(*config)

// WithName sets the name used as the component of error contexts and in
// diagnostics.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithHandler sets the handler failures are classified and reported by.
func WithHandler(h *errors.Handler) Option {
	return func(c *config) {
		if h != nil {
			c.handler = h
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers an observer notified of action outcomes.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

// WithAutoClearError enables or disables clearing recorded errors after the
// error clear timeout. Enabled by default.
func WithAutoClearError(enabled bool) Option {
	return func(c *config) {
		c.autoClearError = enabled
	}
}

// WithErrorClearTimeout sets how long an error stays recorded when auto-clear
// is enabled. Non-positive values are ignored.
func WithErrorClearTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.errorClearTimeout = d
		}
	}
}

// WithInitialLoading sets the loading flag of a new store.
func WithInitialLoading(loading bool) Option {
	return func(c *config) {
		c.initialLoading = loading
	}
}

// WithMaxRetries sets the default attempt budget of the retrying actions.
// Non-positive values are ignored.
func WithMaxRetries(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}
