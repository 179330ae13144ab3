package step

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry runs the inner Step; on failure it sleeps delay (if nonzero) and
// retries. If all attempts fail, the last error is surfaced. Idempotency of
// inner is the caller's responsibility (spec.md §4.7). Grounded on the
// teacher's exponential-backoff retry loop in
// internal/session/loop.go (newRetryBackoff), generalized to a fixed delay
// here; RetryWithBackoff below offers the teacher's jittered-backoff shape
// for callers that want it.
func Retry[I, O any](inner Step[I, O], attempts int, delay time.Duration) Step[I, O] {
	if attempts < 1 {
		attempts = 1
	}
	return Func[I, O](func(ctx context.Context, input I) (O, error) {
		var zero O
		var lastErr error
		for attempt := 0; attempt < attempts; attempt++ {
			out, err := inner.Run(ctx, input)
			if err == nil {
				return out, nil
			}
			lastErr = err
			if attempt < attempts-1 && delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return zero, ctx.Err()
				}
			}
		}
		return zero, lastErr
	})
}

// BackoffConfig configures RetryWithBackoff's exponential-with-jitter
// schedule, mirroring internal/session/loop.go's newRetryBackoff.
type BackoffConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	MaxRetries      uint64
}

// DefaultBackoffConfig matches the teacher's retry constants.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		MaxElapsedTime:  2 * time.Minute,
		MaxRetries:      3,
	}
}

// RetryWithBackoff retries inner using jittered exponential backoff instead
// of Retry's fixed delay, for Steps (notably provider/LLM calls) where a
// thundering-herd retry pattern would be harmful.
func RetryWithBackoff[I, O any](inner Step[I, O], cfg BackoffConfig) Step[I, O] {
	return Func[I, O](func(ctx context.Context, input I) (O, error) {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = cfg.InitialInterval
		b.MaxInterval = cfg.MaxInterval
		b.MaxElapsedTime = cfg.MaxElapsedTime
		bo := backoff.WithContext(backoff.WithMaxRetries(b, cfg.MaxRetries), ctx)

		var zero O
		var out O
		err := backoff.Retry(func() error {
			var runErr error
			out, runErr = inner.Run(ctx, input)
			return runErr
		}, bo)
		if err != nil {
			return zero, err
		}
		return out, nil
	})
}
