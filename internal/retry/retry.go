// Package retry runs an operation under bounded exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/blinderchief/visiolingua/internal/domain"
)

// Default schedule: three attempts, sleeping 2s then 4s between them.
const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 2 * time.Second
)

// Policy describes when and how long to wait before repeating a failed call.
// The delay before attempt n+1 is BaseDelay * 2^(n-1); there is no sleep after the last attempt.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	// Retryable classifies failures worth repeating. Nil repeats nothing.
	Retryable func(error) bool
	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// RateLimited returns the default policy, repeating only rate-limit failures.
func RateLimited() Policy {
	return Policy{
		Attempts:  DefaultAttempts,
		BaseDelay: DefaultBaseDelay,
		Retryable: domain.IsRateLimited,
	}
}

// Do runs fn until it succeeds, fails with a non-retryable error, or attempts run out.
// The last error is returned unchanged so callers can classify it.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts || p.Retryable == nil || !p.Retryable(err) {
			return err
		}

		delay := p.delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return fmt.Errorf("%w (retry interrupted: %w)", err, serr)
		}
	}
	return err
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// MaxSleep returns the total time spent sleeping when every attempt fails.
func (p Policy) MaxSleep() time.Duration {
	var total time.Duration
	for attempt := 1; attempt < max(p.Attempts, 1); attempt++ {
		total += p.delay(attempt)
	}
	return total
}

func (p Policy) delay(attempt int) time.Duration {
	return p.BaseDelay << (attempt - 1)
}

func timerSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
