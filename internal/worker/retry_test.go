package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicy_SucceedsAfterTransientFailures(t *testing.T) {
	policy := RetryPolicy{Retries: 2, Backoff: time.Millisecond}
	calls := 0

	attempts, err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryPolicy_GivesUp(t *testing.T) {
	policy := RetryPolicy{Retries: 1, Backoff: time.Millisecond}
	attempts, err := policy.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("503")
	})
	if err == nil || err.Error() != "503" {
		t.Errorf("expected last error, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryPolicy_PermanentStops(t *testing.T) {
	policy := RetryPolicy{Retries: 5, Backoff: time.Millisecond}
	sentinel := errors.New("invalid api key")

	attempts, err := policy.Do(context.Background(), func(ctx context.Context) error {
		return Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("expected sentinel, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryPolicy_PerAttemptTimeout(t *testing.T) {
	policy := RetryPolicy{Retries: 1, Timeout: 10 * time.Millisecond}

	start := time.Now()
	attempts, err := policy.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
	if time.Since(start) > time.Second {
		t.Error("timeouts did not bound the call")
	}
}

func TestRetryPolicy_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := RetryPolicy{Retries: 3, Backoff: time.Second}
	attempts, err := policy.Do(ctx, func(ctx context.Context) error {
		return ctx.Err()
	})
	if err == nil {
		t.Error("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected to stop after 1 attempt, got %d", attempts)
	}
}
