package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/patronarby/triarb/internal/arbitrage"
	"github.com/patronarby/triarb/internal/busx"
	"github.com/patronarby/triarb/internal/safeguard"
	"github.com/patronarby/triarb/internal/types"
)

// startupGrace mirrors the teacher's brief pause before a freshly started
// worker begins consuming, giving the first book-tops time to arrive.
const startupGrace = 500 * time.Millisecond

// ArbitrageLoop drains the bus's tickers queue and re-evaluates every
// triangle touching the ticker's market, publishing the full batch to
// allCycles for telemetry and any positive-profit subset to
// positiveCycles for the trade manager.
type ArbitrageLoop struct {
	bus       *busx.Bus
	evaluator *arbitrage.Evaluator
	logger    *slog.Logger
}

// NewArbitrageLoop builds an ArbitrageLoop over bus and evaluator.
func NewArbitrageLoop(bus *busx.Bus, evaluator *arbitrage.Evaluator, logger *slog.Logger) *ArbitrageLoop {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArbitrageLoop{bus: bus, evaluator: evaluator, logger: logger.With("component", "engine.ArbitrageLoop")}
}

// Run consumes tickers until ctx is cancelled or the queue closes.
func (l *ArbitrageLoop) Run(ctx context.Context) {
	l.logger.Info("running")

	select {
	case <-time.After(startupGrace):
	case <-ctx.Done():
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ticker, ok := <-l.bus.Tickers():
			if !ok {
				return
			}
			safeguard.Run(l.logger, "ArbitrageLoop.evaluate", func() { l.evaluate(ctx, ticker) })
		}
	}
}

func (l *ArbitrageLoop) evaluate(ctx context.Context, ticker types.Ticker) {
	chains := l.evaluator.Find(map[string]struct{}{ticker.Market: {}})
	if len(chains) == 0 {
		return
	}

	l.bus.PutAllCycles(chains)

	positive := make([]types.Chain, 0, len(chains))
	for _, chain := range chains {
		if chain.Profit > 0 {
			positive = append(positive, chain)
		}
	}
	if len(positive) == 0 {
		return
	}
	if err := l.bus.PutPositiveCycles(ctx, positive); err != nil {
		l.logger.Debug("positive cycle batch dropped", "error", err)
	}
}
