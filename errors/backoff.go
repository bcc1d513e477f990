package errors

import (
	"math"
	"time"
)

// Backoff describes an exponential delay schedule between retry attempts.
// The delay for attempt n (starting at 1) is Initial * 2^(n-1), capped at Max.
type Backoff struct {
	// Initial is the delay before the first retry.
	Initial time.Duration
	// Max caps the delay for any attempt.
	Max time.Duration
}

// DefaultBackoff waits 1s, 2s, 4s, 8s and then 10s for every later attempt.
var DefaultBackoff = Backoff{
	Initial: 1 * time.Second,
	Max:     10 * time.Second,
}

// Delay returns the wait before retry attempt n. Attempts below 1 are treated as 1.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if b.Initial <= 0 {
		return 0
	}
	delay := b.Initial
	for i := 1; i < attempt; i++ {
		if (b.Max > 0 && delay >= b.Max) || delay > math.MaxInt64/2 {
			break
		}
		delay *= 2
	}
	if b.Max > 0 && delay > b.Max {
		return b.Max
	}
	return delay
}

// RetryDelay returns the delay before retry attempt n using DefaultBackoff.
func RetryDelay(attempt int) time.Duration {
	return DefaultBackoff.Delay(attempt)
}
