// Package backoff provides bounded retry with configurable delay schedules.
package backoff

import (
	"context"
	"fmt"
	"time"
)

// Strategy is a delay schedule. A retry loop makes len(Delays)+1 attempts,
// waiting Delays[i] between attempt i+1 and attempt i+2.
type Strategy struct {
	Delays []time.Duration
}

// Linear builds a schedule where the wait after attempt n is n*base,
// bounding the loop to the given total number of attempts.
func Linear(attempts int, base time.Duration) Strategy {
	if attempts < 1 {
		attempts = 1
	}
	delays := make([]time.Duration, 0, attempts-1)
	for i := 1; i < attempts; i++ {
		delays = append(delays, time.Duration(i)*base)
	}
	return Strategy{Delays: delays}
}

// Attempts reports the total number of attempts the strategy allows.
func (s Strategy) Attempts() int {
	return len(s.Delays) + 1
}

type RetryFunc func(ctx context.Context, attempt int) error

// Retry runs fn up to Attempts() times, sleeping the scheduled delay between
// attempts. The first nil error wins; context cancellation aborts the wait.
func Retry(ctx context.Context, strategy Strategy, fn RetryFunc) error {
	return RetryWithCallback(ctx, strategy, fn, nil)
}

func RetryWithCallback(ctx context.Context, strategy Strategy, fn RetryFunc, onRetry func(attempt int, err error, delay time.Duration)) error {
	var lastErr error

	attempts := strategy.Attempts()
	for i := 0; i < attempts; i++ {
		if err := fn(ctx, i+1); err != nil {
			lastErr = err

			if i == attempts-1 {
				break
			}

			if onRetry != nil {
				onRetry(i+1, err, strategy.Delays[i])
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(strategy.Delays[i]):
			}
			continue
		}
		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
