package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "embedding:openai"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}
	if limiter.Allow("embedding:openai") {
		t.Error("expected tokens exhausted for embedding:openai")
	}
	if !limiter.Allow("llm:anthropic") {
		t.Error("expected a fresh bucket for llm:anthropic")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("k") {
			t.Fatalf("call %d denied by unlimited limiter", i)
		}
	}
}

func TestLimiter_NilNeverBlocks(t *testing.T) {
	var limiter *Limiter
	if err := limiter.Wait(context.Background(), "k"); err != nil {
		t.Errorf("nil limiter returned %v", err)
	}
	if !limiter.Allow("k") {
		t.Error("nil limiter denied")
	}
}

func TestLimiter_SetRate(t *testing.T) {
	limiter := NewLimiter(100, 10)
	limiter.SetRate("slow", 1, 1)

	if !limiter.Allow("slow") {
		t.Error("expected first call allowed")
	}
	if limiter.Allow("slow") {
		t.Error("expected second call denied for slow key")
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)

	start := time.Now()
	if err := limiter.WaitWithDelay(context.Background(), "example.com", 50*time.Millisecond); err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("expected at least the additional delay")
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	_ = limiter.Wait(context.Background(), "k")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "k"); err == nil {
		t.Error("expected context error while waiting for a token")
	}
}

func TestHostKey(t *testing.T) {
	if got := HostKey("https://doi.org/10.1000/xyz"); got != "doi.org" {
		t.Errorf("got %q", got)
	}
	if got := HostKey("embedding:openai"); got == "" {
		t.Error("expected non-empty fallback key")
	}
}
