package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotichart/internal/services"
)

// RetryPolicy controls how rate-limited calls are retried.
type RetryPolicy struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // backoff when the server sends no Retry-After
	MaxDelay   time.Duration

	sleep func(context.Context, time.Duration) error
}

// do calls fn, retrying while it returns a [*services.RateLimitError].
//
// Exhausting the retries returns the last rate limit error, which callers treat as fatal.
func (p RetryPolicy) do(ctx context.Context, op string, fn func() error) error {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 1; ; attempt++ {
		err := fn()

		var rl *services.RateLimitError
		if !errors.As(err, &rl) {
			return err
		}
		if attempt > p.MaxRetries {
			return fmt.Errorf("%s: rate limited after %d attempts: %w", op, attempt, err)
		}

		wait := rl.RetryAfter
		if wait <= 0 {
			wait = p.backoff(attempt)
		}
		if p.MaxDelay > 0 && wait > p.MaxDelay {
			wait = p.MaxDelay
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	d := base << (attempt - 1)
	if d <= 0 || (p.MaxDelay > 0 && d > p.MaxDelay) {
		return p.MaxDelay
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
