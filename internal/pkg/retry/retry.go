// internal/pkg/retry/retry.go
package retry

import (
	"context"
	"errors"
	"time"
)

// Hinted is implemented by errors that carry a server-suggested wait, such
// as a Retry-After header. A hint longer than the backoff wins.
type Hinted interface {
	RetryAfter() time.Duration
}

// Policy bounds how an operation is retried.
type Policy struct {
	// MaxAttempts counts the first call, so 4 means up to three retries.
	MaxAttempts int
	// Backoff returns the wait before the retry that follows the given
	// failed attempt (1-based).
	Backoff func(attempt int) time.Duration
	// MaxHint caps the wait a Hinted error can impose. Zero means no cap.
	MaxHint time.Duration
	// Retryable decides whether an error is worth another attempt.
	Retryable func(err error) bool
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// Linear waits base multiplied by the attempt number.
func Linear(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

// Do runs fn until it succeeds, fails with a non-retryable error, the
// attempts run out, or ctx is cancelled. The last error is returned.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == maxAttempts || p.Retryable == nil || !p.Retryable(err) {
			break
		}

		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		var h Hinted
		if errors.As(err, &h) {
			hint := h.RetryAfter()
			if p.MaxHint > 0 && hint > p.MaxHint {
				hint = p.MaxHint
			}
			if hint > wait {
				wait = hint
			}
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
