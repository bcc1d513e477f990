package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

// envelopeVersion is bumped whenever the persisted layout changes.
const envelopeVersion = 1

// envelope is the persisted wrapper around every stored value.
type envelope struct {
	Version   int             `json:"version"`
	Value     json.RawMessage `json:"value"`
	WrittenAt time.Time       `json:"writtenAt"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
}

func newEnvelope(value any, now time.Time, ttl *time.Duration) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}

	env := envelope{
		Version:   envelopeVersion,
		Value:     raw,
		WrittenAt: now.UTC(),
	}
	if ttl != nil {
		exp := now.Add(*ttl).UTC()
		env.ExpiresAt = &exp
	}

	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to encode envelope: %w", err)
	}
	return string(data), nil
}

func parseEnvelope(data string) (envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return envelope{}, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if env.Version != envelopeVersion {
		return envelope{}, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	if len(env.Value) == 0 {
		return envelope{}, fmt.Errorf("envelope has no value")
	}
	return env, nil
}

// expired reports whether the entry must no longer be returned at now.
// An entry is expired from the instant its expiration is reached.
func (e envelope) expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

func (e envelope) decode(v any) error {
	if err := json.Unmarshal(e.Value, v); err != nil {
		return fmt.Errorf("failed to decode value: %w", err)
	}
	return nil
}
