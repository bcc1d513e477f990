// Package config loads statekit configuration from YAML and builds the
// configured components.
package config

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/jmgilman/go/statekit/errors"
	"github.com/jmgilman/go/statekit/logging"
	"github.com/jmgilman/go/statekit/storage"
	"github.com/jmgilman/go/statekit/store"
)

// Backend selects the storage medium.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendLocal  Backend = "local"
	BackendRedis  Backend = "redis"
)

// Config is the root configuration.
type Config struct {
	Log     logging.Config `yaml:"log"`
	Errors  ErrorsConfig   `yaml:"errors"`
	Store   StoreConfig    `yaml:"store"`
	Storage StorageConfig  `yaml:"storage"`
	Metrics MetricsConfig  `yaml:"metrics"`
}

// ErrorsConfig configures the error handler.
type ErrorsConfig struct {
	// Locale is the BCP 47 tag of user-facing messages.
	Locale  string        `yaml:"locale"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig configures the retry delay schedule.
type BackoffConfig struct {
	Initial time.Duration `yaml:"initial"`
	Max     time.Duration `yaml:"max"`
}

// StoreConfig configures entity stores.
type StoreConfig struct {
	// AutoClearError defaults to true when unset.
	AutoClearError    *bool         `yaml:"autoClearError"`
	ErrorClearTimeout time.Duration `yaml:"errorClearTimeout"`
	MaxRetries        int           `yaml:"maxRetries"`
}

// StorageConfig configures persistent storage.
type StorageConfig struct {
	Backend Backend `yaml:"backend"`

	// Dir is the base directory of the local backend.
	Dir string `yaml:"dir"`

	RedisURL      string `yaml:"redisURL"`
	RedisPassword string `yaml:"redisPassword"`

	// Namespace prefixes every key of the redis backend.
	Namespace string `yaml:"namespace"`

	// QuotaWarnBytes is the soft quota. A negative value disables the warning.
	QuotaWarnBytes int64 `yaml:"quotaWarnBytes"`

	// MaxBytes is the hard quota enforced by the medium. Zero disables it.
	MaxBytes int64 `yaml:"maxBytes"`
}

// MetricsConfig configures the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// redacted replaces secrets in printed configurations.
const redacted = "***"

// Redacted returns a copy of the configuration that is safe to print, with
// any Redis password masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Storage.RedisPassword != "" {
		out.Storage.RedisPassword = redacted
	}
	return &out
}

// LoadDotEnv loads environment variables from the given .env files (".env"
// when none is given). Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from a YAML file.
// ${VAR} references are expanded from the environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// SetDefaults applies default values to unset fields in the configuration.
func (c *Config) SetDefaults() {
	def := logging.DefaultConfig()
	if c.Log.Level == "" {
		c.Log.Level = def.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Format
	}

	if c.Errors.Locale == "" {
		c.Errors.Locale = "es"
	}
	if c.Errors.Backoff.Initial == 0 {
		c.Errors.Backoff.Initial = errors.DefaultBackoff.Initial
	}
	if c.Errors.Backoff.Max == 0 {
		c.Errors.Backoff.Max = errors.DefaultBackoff.Max
	}

	if c.Store.AutoClearError == nil {
		enabled := true
		c.Store.AutoClearError = &enabled
	}
	if c.Store.ErrorClearTimeout == 0 {
		c.Store.ErrorClearTimeout = store.DefaultErrorClearTimeout
	}
	if c.Store.MaxRetries == 0 {
		c.Store.MaxRetries = store.DefaultMaxRetries
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendMemory
	}
	if c.Storage.Namespace == "" {
		c.Storage.Namespace = "statekit:"
	}
	if c.Storage.QuotaWarnBytes == 0 {
		c.Storage.QuotaWarnBytes = storage.DefaultQuotaWarnBytes
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case logging.FormatText, logging.FormatJSON, logging.FormatTint:
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	if _, err := language.Parse(c.Errors.Locale); err != nil {
		return fmt.Errorf("invalid locale %q: %w", c.Errors.Locale, err)
	}
	if c.Errors.Backoff.Initial <= 0 {
		return fmt.Errorf("backoff initial delay must be greater than 0")
	}
	if c.Errors.Backoff.Max < c.Errors.Backoff.Initial {
		return fmt.Errorf("backoff max delay must not be less than the initial delay")
	}

	if c.Store.ErrorClearTimeout <= 0 {
		return fmt.Errorf("error clear timeout must be greater than 0")
	}
	if c.Store.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be greater than 0")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendLocal:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage dir is required for the local backend")
		}
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage redisURL is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s", c.Storage.Backend)
	}
	if c.Storage.MaxBytes < 0 {
		return fmt.Errorf("storage maxBytes must not be negative")
	}
	return nil
}

// NewLogger builds the configured logger writing to w.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	return logging.New(c.Log, w)
}

// NewHandler builds the configured error handler. Extra options are applied
// after the configured ones.
func (c *Config) NewHandler(logger *slog.Logger, opts ...errors.HandlerOption) *errors.Handler {
	base := []errors.HandlerOption{
		errors.WithLogger(logger),
		errors.WithLocale(c.Errors.Locale),
		errors.WithBackoff(errors.Backoff{
			Initial: c.Errors.Backoff.Initial,
			Max:     c.Errors.Backoff.Max,
		}),
	}
	return errors.NewHandler(append(base, opts...)...)
}

// NewMedium builds the configured storage medium. A redis medium owns its
// client; close it with Close when done.
func (c *Config) NewMedium(ctx context.Context) (storage.Medium, error) {
	opts := []storage.MediumOption{
		storage.WithMaxBytes(c.Storage.MaxBytes),
		storage.WithNamespace(c.Storage.Namespace),
	}

	switch c.Storage.Backend {
	case BackendMemory:
		return storage.NewMemoryMedium(opts...), nil
	case BackendLocal:
		if err := os.MkdirAll(c.Storage.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage dir: %w", err)
		}
		return storage.NewLocalMedium(c.Storage.Dir, opts...), nil
	case BackendRedis:
		rdb, err := storage.DialRedis(ctx, c.Storage.RedisURL, c.Storage.RedisPassword)
		if err != nil {
			return nil, err
		}
		return storage.NewRedisMedium(rdb, opts...), nil
	default:
		return nil, fmt.Errorf("invalid storage backend: %s", c.Storage.Backend)
	}
}

// NewStorage builds the configured medium and a Storage on top of it.
// Extra options are applied after the configured ones.
func (c *Config) NewStorage(ctx context.Context, h *errors.Handler, logger *slog.Logger, opts ...storage.Option) (*storage.Storage, storage.Medium, error) {
	medium, err := c.NewMedium(ctx)
	if err != nil {
		return nil, nil, err
	}
	base := []storage.Option{
		storage.WithHandler(h),
		storage.WithLogger(logger),
		storage.WithQuotaWarnBytes(c.Storage.QuotaWarnBytes),
	}
	return storage.New(ctx, medium, append(base, opts...)...), medium, nil
}

// StoreOptions returns the store options matching the configuration.
func (c *Config) StoreOptions(h *errors.Handler, logger *slog.Logger) []store.Option {
	autoClear := true
	if c.Store.AutoClearError != nil {
		autoClear = *c.Store.AutoClearError
	}
	return []store.Option{
		store.WithHandler(h),
		store.WithLogger(logger),
		store.WithAutoClearError(autoClear),
		store.WithErrorClearTimeout(c.Store.ErrorClearTimeout),
		store.WithMaxRetries(c.Store.MaxRetries),
	}
}
