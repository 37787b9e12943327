package research

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryPolicy controls the backoff behavior applied to external port calls.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Multiplier:  2.0,
	}
}

// Retry executes op, retrying transient failures with exponential backoff and
// jitter. A FatalError aborts immediately. Errors carrying neither marker are
// treated as transient, since raw network errors usually arrive unwrapped.
// After MaxAttempts the last underlying error is surfaced to the caller.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := backoffSleep(ctx, policy, attempt); err != nil {
				return zero, err
			}
		}

		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if IsFatal(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		lastErr = err
	}

	return zero, fmt.Errorf("operation failed after %d attempts: %w", policy.MaxAttempts, lastErr)
}

func backoffSleep(ctx context.Context, policy RetryPolicy, attempt int) error {
	delay := policy.BaseDelay
	for i := 2; i < attempt; i++ {
		delay = time.Duration(float64(delay) * policy.Multiplier)
	}
	// Jitter up to 25% keeps concurrent per-step retries from synchronizing.
	delay += time.Duration(rand.Int63n(int64(delay)/4 + 1))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
