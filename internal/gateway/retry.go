package gateway

import (
	"context"
	"time"
)

// RetryPolicy drives the write-path retry loop: a bounded number of
// attempts with a linearly increasing delay between them, and a hook fired
// exactly once when every attempt has failed. Keeping the policy as a
// value makes the schedule testable independently of the gateway.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Sleep is injectable for tests; nil means time.Sleep.
	Sleep func(time.Duration)
	// OnExhausted runs once after the final attempt fails.
	OnExhausted func(ctx context.Context)
}

// DefaultRetryPolicy matches the reference behavior: 3 attempts, waits
// growing by one second per retry.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Do runs op until it succeeds or attempts are exhausted. The delay before
// retry N (1-based) is BaseDelay*N. Returns the last error on exhaustion.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if ctx.Err() != nil {
			err = ctx.Err()
			break
		}
		sleep(p.BaseDelay * time.Duration(attempt))
	}

	if p.OnExhausted != nil {
		p.OnExhausted(ctx)
	}
	return err
}
