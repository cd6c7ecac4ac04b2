package retry

import (
	"context"
	"time"
)

// Config controls the retry loop.
type Config struct {
	// MaxRetries is the number of re-attempts after the first failure, so
	// the wrapped function runs at most MaxRetries+1 times.
	MaxRetries int

	// OnRetry, if set, is invoked before each backoff wait with the
	// one-based number of the upcoming retry and the error that caused it.
	OnRetry func(attempt int, err error)

	// DelayFn overrides the category-specific schedule. Tests use this to
	// avoid real sleeps.
	DelayFn func(err error, attempt int) time.Duration
}

// DefaultConfig retries transient failures three times.
var DefaultConfig = Config{MaxRetries: 3}

// Do runs fn until it succeeds, fails with a non-retryable error, or
// exhausts MaxRetries+1 attempts. The last error is returned as-is so
// callers can still classify it. Waits are context-aware: cancellation
// during a backoff aborts the loop with ctx.Err().
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	delayFn := cfg.DelayFn
	if delayFn == nil {
		delayFn = Delay
	}

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !Retryable(err) {
			return zero, err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delayFn(err, attempt)):
		}
	}

	return zero, lastErr
}
