package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisMedium stores entries as plain Redis strings under a key prefix.
type RedisMedium struct {
	rdb       redis.UniversalClient
	namespace string
	maxBytes  int64
}

// NewRedisMedium creates a medium on top of an existing Redis client.
// Entries live under the configured namespace (default "statekit:"), so
// several applications can share one database.
func NewRedisMedium(rdb redis.UniversalClient, opts ...MediumOption) *RedisMedium {
	cfg := newMediumConfig(opts)
	return &RedisMedium{
		rdb:       rdb,
		namespace: cfg.namespace,
		maxBytes:  cfg.maxBytes,
	}
}

// DialRedis creates a Redis client from a redis:// URL and verifies the connection.
func DialRedis(ctx context.Context, url, password string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if password != "" {
		opts.Password = password
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// Client returns the underlying Redis client.
func (m *RedisMedium) Client() redis.UniversalClient {
	return m.rdb
}

// Read returns the value stored under key.
func (m *RedisMedium) Read(ctx context.Context, key string) (string, bool, error) {
	val, err := m.rdb.Get(ctx, m.namespace+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %q failed: %w", key, err)
	}
	return val, true, nil
}

// Write stores value under key without expiration; expiry is tracked by the
// envelope so that every medium behaves the same.
func (m *RedisMedium) Write(ctx context.Context, key, value string) error {
	if m.maxBytes > 0 {
		used, err := m.size(ctx, key)
		if err != nil {
			return err
		}
		if used+int64(len(key)+len(value)) > m.maxBytes {
			return fmt.Errorf("%w: writing %d bytes to %q with %d of %d bytes used",
				ErrQuotaExceeded, len(value), key, used, m.maxBytes)
		}
	}

	if err := m.rdb.Set(ctx, m.namespace+key, value, 0).Err(); err != nil {
		// Redis rejects writes with an OOM reply once maxmemory is reached.
		if strings.HasPrefix(err.Error(), "OOM") {
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return fmt.Errorf("redis set %q failed: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are ignored.
func (m *RedisMedium) Delete(ctx context.Context, key string) error {
	if err := m.rdb.Del(ctx, m.namespace+key).Err(); err != nil {
		return fmt.Errorf("redis del %q failed: %w", key, err)
	}
	return nil
}

// Enumerate returns every key in the namespace.
func (m *RedisMedium) Enumerate(ctx context.Context) ([]string, error) {
	full, err := m.scan(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(full))
	for i, k := range full {
		keys[i] = strings.TrimPrefix(k, m.namespace)
	}
	return keys, nil
}

// Clear removes every key in the namespace.
func (m *RedisMedium) Clear(ctx context.Context) error {
	full, err := m.scan(ctx)
	if err != nil {
		return err
	}
	if len(full) == 0 {
		return nil
	}
	if err := m.rdb.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis clear failed: %w", err)
	}
	return nil
}

// Size returns the total number of key and value bytes in the namespace.
func (m *RedisMedium) Size(ctx context.Context) (int64, error) {
	return m.size(ctx, "")
}

func (m *RedisMedium) size(ctx context.Context, skip string) (int64, error) {
	full, err := m.scan(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, k := range full {
		key := strings.TrimPrefix(k, m.namespace)
		if skip != "" && key == skip {
			continue
		}
		n, err := m.rdb.StrLen(ctx, k).Result()
		if err != nil {
			return 0, fmt.Errorf("redis strlen %q failed: %w", key, err)
		}
		total += int64(len(key)) + n
	}
	return total, nil
}

func (m *RedisMedium) scan(ctx context.Context) ([]string, error) {
	var keys []string
	iter := m.rdb.Scan(ctx, 0, escapeGlob(m.namespace)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}
	return keys, nil
}

// escapeGlob escapes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the underlying client.
func (m *RedisMedium) Close() error {
	return m.rdb.Close()
}
