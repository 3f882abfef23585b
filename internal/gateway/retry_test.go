package gateway

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicy_SucceedsWithoutRetry(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: func(time.Duration) {
		t.Fatal("no sleep expected on first-attempt success")
	}}

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryPolicy_LinearBackoffThenExhaustion(t *testing.T) {
	var delays []time.Duration
	exhausted := 0
	boom := errors.New("boom")

	p := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep:       func(d time.Duration) { delays = append(delays, d) },
		OnExhausted: func(context.Context) { exhausted++ },
	}

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	// Delay grows by one base unit per retry.
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Fatalf("unexpected delays: %v", delays)
	}
	// Scenario: 3 consecutive failures queue the write exactly once.
	if exhausted != 1 {
		t.Fatalf("OnExhausted should fire exactly once, got %d", exhausted)
	}
}

func TestRetryPolicy_RecoversMidway(t *testing.T) {
	exhausted := 0
	calls := 0

	p := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Sleep:       func(time.Duration) {},
		OnExhausted: func(context.Context) { exhausted++ },
	}

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exhausted != 0 {
		t.Fatal("OnExhausted must not fire on eventual success")
	}
}

func TestRetryPolicy_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: func(time.Duration) {}}

	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no further attempts after cancel, got %d", calls)
	}
}
