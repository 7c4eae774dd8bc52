package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/patronarby/triarb/internal/balances"
	"github.com/patronarby/triarb/internal/exchange"
	"github.com/patronarby/triarb/internal/safeguard"
)

// balanceUpdater refreshes the balances registry from the exchange every
// period: a wholesale balances snapshot plus the latest market prices used
// to value non-stable coins in USD.
type balanceUpdater struct {
	api      exchange.API
	registry *balances.Registry
	period   time.Duration
	logger   *slog.Logger
}

func newBalanceUpdater(api exchange.API, registry *balances.Registry, period time.Duration, logger *slog.Logger) *balanceUpdater {
	if period <= 0 {
		period = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &balanceUpdater{api: api, registry: registry, period: period, logger: logger.With("component", "engine.balanceUpdater")}
}

func (u *balanceUpdater) Run(ctx context.Context) {
	u.logger.Info("running", "period", u.period)
	safeguard.Run(u.logger, "balanceUpdater.tick", func() { u.tick(ctx) })

	ticker := time.NewTicker(u.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			safeguard.Run(u.logger, "balanceUpdater.tick", func() { u.tick(ctx) })
		}
	}
}

func (u *balanceUpdater) tick(ctx context.Context) {
	bal, err := u.api.Balances(ctx)
	if err != nil {
		u.logger.Error("failed to fetch balances", "error", err)
	} else {
		u.registry.UpdateBalances(bal)
	}

	prices, err := u.api.LatestPrices(ctx)
	if err != nil {
		u.logger.Error("failed to fetch latest prices", "error", err)
		return
	}
	u.registry.UpdateRates(prices)
}
