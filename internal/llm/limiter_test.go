package llm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingProvider struct {
	calls atomic.Int32
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	p.calls.Add(1)
	return &CompletionResponse{Text: "ok"}, nil
}

func (p *countingProvider) IsAvailable(ctx context.Context) bool { return true }

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 1 {
		t.Errorf("expected default burst 1 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if !limiter.Allow("openai") {
		t.Fatal("first call should be allowed")
	}
	if limiter.Allow("openai") {
		t.Error("second immediate call should be throttled")
	}
	// Buckets are per provider
	if !limiter.Allow("anthropic") {
		t.Error("other provider should have its own bucket")
	}
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	limiter := NewLimiter(0.1, 1)
	_ = limiter.Allow("ollama")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "ollama"); err == nil {
		t.Error("expected wait to fail once the context deadline is shorter than the refill")
	}
}

func TestLimiter_ZeroRateIsUnlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 50; i++ {
		if !limiter.Allow("openai") {
			t.Fatalf("call %d throttled with pacing disabled", i)
		}
	}
}

func TestLimiter_SetProviderRate(t *testing.T) {
	limiter := NewLimiter(1, 1)
	limiter.SetProviderRate("ollama", 1000, 10)

	for i := 0; i < 10; i++ {
		if !limiter.Allow("ollama") {
			t.Fatalf("call %d throttled within custom burst", i)
		}
	}
}

func TestRateLimited(t *testing.T) {
	inner := &countingProvider{}
	p := RateLimited(inner, NewLimiter(1000, 1))

	for i := 0; i < 3; i++ {
		if _, err := p.Complete(context.Background(), CompletionRequest{Prompt: "x"}); err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
	}
	if got := inner.calls.Load(); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
	if p.Name() != "counting" {
		t.Errorf("wrapper should keep the provider name, got %s", p.Name())
	}

	if RateLimited(nil, NewLimiter(1, 1)) != nil {
		t.Error("wrapping a nil provider should stay nil")
	}
}
