package errors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{10, 10 * time.Second},
		{1000, 10 * time.Second},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, RetryDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestBackoff_Monotonic(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 1; attempt <= 64; attempt++ {
		d := RetryDelay(attempt)
		require.GreaterOrEqual(t, d, prev)
		prev = d
	}
}

func TestBackoff_Custom(t *testing.T) {
	b := Backoff{Initial: 10 * time.Millisecond, Max: 25 * time.Millisecond}
	require.Equal(t, 10*time.Millisecond, b.Delay(1))
	require.Equal(t, 20*time.Millisecond, b.Delay(2))
	require.Equal(t, 25*time.Millisecond, b.Delay(3))

	require.Equal(t, time.Duration(0), Backoff{}.Delay(3))

	uncapped := Backoff{Initial: time.Second}
	require.Positive(t, uncapped.Delay(200))
}
