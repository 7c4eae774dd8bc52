package execution

import (
	"context"
	"log/slog"
	"time"

	"github.com/patronarby/triarb/internal/exchange"
	"github.com/patronarby/triarb/internal/safeguard"
	"github.com/patronarby/triarb/internal/types"
)

// Cancelator periodically sweeps open orders and cancels any that have
// lived past their TTL, grounded on original_source's OrderCancelator.
type Cancelator struct {
	api    exchange.API
	ttl    time.Duration
	period time.Duration
	logger *slog.Logger
}

// NewCancelator builds a Cancelator. Zero period/ttl fall back to 5s/30s.
func NewCancelator(api exchange.API, ttl, period time.Duration, logger *slog.Logger) *Cancelator {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if period <= 0 {
		period = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cancelator{
		api:    api,
		ttl:    ttl,
		period: period,
		logger: logger.With("component", "execution.Cancelator"),
	}
}

// Run ticks every period until ctx is cancelled, sweeping stale open
// orders on each tick.
func (c *Cancelator) Run(ctx context.Context) {
	c.logger.Info("running", "orderTtl", c.ttl, "period", c.period)
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			safeguard.Run(c.logger, "Cancelator.sweep", func() { c.sweep(ctx) })
		}
	}
}

func (c *Cancelator) sweep(ctx context.Context) {
	open, err := c.api.OpenOrders(ctx)
	if err != nil {
		c.logger.Error("failed to fetch open orders", "error", err)
		return
	}

	now := types.NowMs()
	stale := 0
	for _, order := range open {
		if _, _, ok := types.ParseClientOrderID(order.ClientOrderID); !ok {
			continue
		}
		if now-order.CreatedAtMs <= c.ttl.Milliseconds() {
			continue
		}
		stale++
		if err := c.api.CancelOrder(ctx, order.Symbol, order.ClientOrderID); err != nil {
			c.logger.Error("failed to cancel stale order", "order", order.ClientOrderID, "error", err)
			continue
		}
		c.logger.Info("cancelled stale order", "order", order.ClientOrderID, "ageMs", now-order.CreatedAtMs)
	}
	if stale > 0 {
		c.logger.Info("cancellation sweep complete", "cancelled", stale, "totalOpen", len(open))
	}
}
