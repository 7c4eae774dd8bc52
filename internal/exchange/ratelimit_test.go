package exchange

import (
	"context"
	"testing"
	"time"
)

func TestNewRateLimiterAppliesConfiguredLimits(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimits{
		OrderBurst: 2, OrderPerSecond: 1000,
		CancelBurst: 3, CancelPerSecond: 1000,
		MarketBurst: 4, MarketPerSecond: 1000,
	})

	if rl.Order.capacity != 2 {
		t.Errorf("Order.capacity = %v, want 2", rl.Order.capacity)
	}
	if rl.Cancel.capacity != 3 {
		t.Errorf("Cancel.capacity = %v, want 3", rl.Cancel.capacity)
	}
	if rl.Market.capacity != 4 {
		t.Errorf("Market.capacity = %v, want 4", rl.Market.capacity)
	}
}

func TestNewRateLimiterFallsBackToDefaultsWhenUnset(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimits{})

	if rl.Order.capacity != 50 || rl.Order.rate != 10 {
		t.Errorf("Order = %v/%v, want default 50/10", rl.Order.capacity, rl.Order.rate)
	}
	if rl.Market.capacity != 100 || rl.Market.rate != 20 {
		t.Errorf("Market = %v/%v, want default 100/20", rl.Market.capacity, rl.Market.rate)
	}
}

func TestTokenBucketWaitBlocksUntilRefill(t *testing.T) {
	t.Parallel()

	tb := NewTokenBucket(1, 100)
	ctx := context.Background()

	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	start := time.Now()
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("second Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("expected second Wait to block for a refill, elapsed %v", elapsed)
	}
}

func TestTokenBucketWaitRespectsContextCancellation(t *testing.T) {
	t.Parallel()

	tb := NewTokenBucket(1, 0.001)
	ctx, cancel := context.WithCancel(context.Background())

	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	cancel()
	if err := tb.Wait(ctx); err == nil {
		t.Error("expected Wait to return an error after context cancellation")
	}
}
