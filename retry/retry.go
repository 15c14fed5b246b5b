// Package retry re-runs an operation after transient failures, backing off
// exponentially between attempts. The registry's catalog fetchers use it to
// ride out provider rate limits and upstream 5xx during a refresh.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config is one retry schedule.
type Config struct {
	// MaxAttempts bounds total tries, the first included.
	MaxAttempts int

	// InitialDelay is the wait after the first failed attempt.
	InitialDelay time.Duration

	// MaxDelay caps the growing backoff.
	MaxDelay time.Duration

	// Multiplier scales the delay after each failed attempt.
	Multiplier float64
}

// DefaultConfig is the schedule for catalog fetches. Each attempt carries its
// own 10 s HTTP timeout, so three tries with sub-second backoff keep a full
// registry refresh bounded even when every source is rate limiting.
var DefaultConfig = Config{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	Multiplier:   2.0,
}

// IsRetryable classifies an error as transient or final.
type IsRetryable func(error) bool

// WithRetry runs fn until it succeeds, returns a final error, exhausts
// config.MaxAttempts, or ctx ends. The last error is wrapped so callers can
// still match it with errors.Is.
func WithRetry[T any](
	ctx context.Context,
	config Config,
	isRetryable IsRetryable,
	fn func() (T, error),
) (T, error) {
	var zero T
	var lastErr error
	delay := config.InitialDelay

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("context cancelled: %w", err)
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return zero, err
		}
		if attempt == config.MaxAttempts-1 {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		delay = time.Duration(float64(delay) * config.Multiplier)
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return zero, fmt.Errorf("gave up after %d attempts: %w", config.MaxAttempts, lastErr)
}
