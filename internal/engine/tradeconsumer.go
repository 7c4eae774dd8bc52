package engine

import (
	"context"
	"log/slog"

	"github.com/patronarby/triarb/internal/busx"
	"github.com/patronarby/triarb/internal/trade"
)

// tradeConsumer drains positiveCycles and forwards each batch to the trade
// manager, matching the Bus→TradeManager leg of the pipeline.
type tradeConsumer struct {
	bus     *busx.Bus
	manager *trade.Manager
	logger  *slog.Logger
}

func newTradeConsumer(bus *busx.Bus, manager *trade.Manager, logger *slog.Logger) *tradeConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &tradeConsumer{bus: bus, manager: manager, logger: logger.With("component", "engine.tradeConsumer")}
}

func (c *tradeConsumer) Run(ctx context.Context) {
	c.logger.Info("running")
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-c.bus.PositiveCycles():
			if !ok {
				return
			}
			c.manager.ProcessBatch(ctx, batch)
		}
	}
}
