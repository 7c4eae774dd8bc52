// ratelimit.go implements token-bucket rate limiting for the spot
// exchange's REST API, carried forward from the teacher's Polymarket CLOB
// TokenBucket (continuous refill, per-category buckets), with burst/rate
// values driven by the configured exchange's published limits instead of
// fixed constants.
package exchange

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is a token-bucket rate limiter with continuous refill.
// Callers block in Wait until a token is available or the context is
// cancelled.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
}

// NewTokenBucket creates a rate limiter with the given burst capacity and
// refill rate in tokens per second.
func NewTokenBucket(capacity, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     ratePerSecond,
		lastTime: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.lastTime).Seconds()
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTime = now

		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}

		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RateLimiter groups token buckets by REST endpoint category.
type RateLimiter struct {
	Order  *TokenBucket // PutLimitOrder / PutMarketOrder
	Cancel *TokenBucket // CancelOrder
	Market *TokenBucket // ExchangeInfo / LatestPrices / Balances reads
}

// RateLimits carries the exchange's published per-category limits, each
// expressed as a burst capacity and a steady-state requests-per-second
// rate. Zero-valued fields fall back to conservative defaults in
// NewRateLimiter, so a config that only overrides one category leaves the
// others at their defaults.
type RateLimits struct {
	OrderBurst, OrderPerSecond   float64
	CancelBurst, CancelPerSecond float64
	MarketBurst, MarketPerSecond float64
}

func (l RateLimits) withDefaults() RateLimits {
	if l.OrderBurst <= 0 || l.OrderPerSecond <= 0 {
		l.OrderBurst, l.OrderPerSecond = 50, 10
	}
	if l.CancelBurst <= 0 || l.CancelPerSecond <= 0 {
		l.CancelBurst, l.CancelPerSecond = 50, 10
	}
	if l.MarketBurst <= 0 || l.MarketPerSecond <= 0 {
		l.MarketBurst, l.MarketPerSecond = 100, 20
	}
	return l
}

// NewRateLimiter creates rate limiters from the exchange's published
// per-category limits (see RateLimits), rather than fixed constants, since
// every exchange advertises its own order/cancel/market-data ceilings.
func NewRateLimiter(limits RateLimits) *RateLimiter {
	limits = limits.withDefaults()
	return &RateLimiter{
		Order:  NewTokenBucket(limits.OrderBurst, limits.OrderPerSecond),
		Cancel: NewTokenBucket(limits.CancelBurst, limits.CancelPerSecond),
		Market: NewTokenBucket(limits.MarketBurst, limits.MarketPerSecond),
	}
}
