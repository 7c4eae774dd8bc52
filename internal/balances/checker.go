package balances

import (
	"context"
	"log/slog"
	"time"
)

// StopTradingSetter is the subset of busx.Bus the Checker needs; kept as
// an interface here so this package never imports busx (avoiding an
// import cycle, since busx carries no knowledge of balances).
type StopTradingSetter interface {
	SetStopTrading(bool)
	StopTrading() bool
}

// Checker watches the portfolio's USD-equivalent value every period and
// latches a stop-loss once it falls stopLossRatio below the first reading
// observed after startup, clearing it automatically once the value
// recovers. Grounded on the teacher's risk.Manager.Run periodic-ticker
// loop and kill-switch latch/clear pattern.
type Checker struct {
	registry      *Registry
	bus           StopTradingSetter
	coinsOfInterest []string
	stopLossRatio float64
	period        time.Duration
	logger        *slog.Logger

	hasInitial     bool
	initialBalance float64
	stopLoss       float64
}

// NewChecker builds a Checker. coinsOfInterest lists the coins whose USD
// value is summed on each tick.
func NewChecker(registry *Registry, bus StopTradingSetter, coinsOfInterest []string, stopLossRatio float64, period time.Duration, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		registry:        registry,
		bus:             bus,
		coinsOfInterest: coinsOfInterest,
		stopLossRatio:   stopLossRatio,
		period:          period,
		logger:          logger.With("component", "balances.Checker"),
	}
}

// Run ticks every c.period until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick performs one evaluation. Kept as a separate method (not inlined in Run)
// so tests can drive it deterministically without a real ticker.
func (c *Checker) tick() {
	if c.registry.IsEmpty() {
		return
	}

	current := c.sumBalanceUSD()

	if !c.hasInitial {
		c.hasInitial = true
		c.initialBalance = current
		c.stopLoss = current * (1 - c.stopLossRatio)
		c.logger.Info("latched initial portfolio value", "initialBalanceUsd", current, "stopLossUsd", c.stopLoss)
		return
	}

	if current <= c.stopLoss {
		if !c.bus.StopTrading() {
			c.logger.Error("stop-loss breached, halting new trades", "currentUsd", current, "stopLossUsd", c.stopLoss)
		}
		c.bus.SetStopTrading(true)
		return
	}

	if c.bus.StopTrading() {
		c.logger.Warn("portfolio recovered above stop-loss, resuming trading", "currentUsd", current, "stopLossUsd", c.stopLoss)
	}
	c.bus.SetStopTrading(false)
}

func (c *Checker) sumBalanceUSD() float64 {
	var total float64
	for _, coin := range c.coinsOfInterest {
		if v, ok := c.registry.BalanceUSD(coin); ok {
			total += v
		}
	}
	return total
}
