package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/patronarby/triarb/internal/busx"
	"github.com/patronarby/triarb/internal/safeguard"
	"github.com/patronarby/triarb/internal/store"
	"github.com/patronarby/triarb/internal/types"
)

// flushInterval bounds how long a partially-filled batch waits for more
// records before it is written out anyway.
const flushInterval = 2 * time.Second

// ChainTelemetryDrainer drains the bus's storeCycles queue, the
// TradeManager's per-chain verdicts, batching up to maxBatch records
// before persisting them to a ChainDAO and updating Prometheus counters.
type ChainTelemetryDrainer struct {
	bus      *busx.Bus
	dao      store.ChainDAO
	maxBatch int
	logger   *slog.Logger
}

// NewChainTelemetryDrainer builds a drainer. maxBatch <= 0 falls back to 100.
func NewChainTelemetryDrainer(bus *busx.Bus, dao store.ChainDAO, maxBatch int, logger *slog.Logger) *ChainTelemetryDrainer {
	if maxBatch <= 0 {
		maxBatch = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChainTelemetryDrainer{
		bus:      bus,
		dao:      dao,
		maxBatch: maxBatch,
		logger:   logger.With("component", "telemetry.ChainTelemetryDrainer"),
	}
}

// Run drains storeCycles until ctx is cancelled, flushing on a full batch
// or on the periodic timer, whichever comes first.
func (d *ChainTelemetryDrainer) Run(ctx context.Context) {
	d.logger.Info("running", "maxBatch", d.maxBatch)
	batch := make([]types.Chain, 0, d.maxBatch)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.flush(context.Background(), batch)
			return
		case chain, ok := <-d.bus.StoreCycles():
			if !ok {
				d.flush(context.Background(), batch)
				return
			}
			safeguard.Run(d.logger, "ChainTelemetryDrainer.process", func() {
				IncChainProcessed(chain.Comment)
				batch = append(batch, chain)
				if len(batch) >= d.maxBatch {
					d.flush(ctx, batch)
					batch = batch[:0]
				}
			})
		case <-ticker.C:
			if len(batch) > 0 {
				safeguard.Run(d.logger, "ChainTelemetryDrainer.flush", func() {
					d.flush(ctx, batch)
					batch = batch[:0]
				})
			}
		}
	}
}

func (d *ChainTelemetryDrainer) flush(ctx context.Context, batch []types.Chain) {
	if len(batch) == 0 {
		return
	}
	now := time.Now()
	for _, chain := range batch {
		if err := d.dao.Save(ctx, store.ChainFromType(chain, now)); err != nil {
			d.logger.Error("failed to persist chain", "chain", chain.ToChain(), "error", err)
		}
	}
	SetStoreFlushBatchSize(len(batch))
	d.logger.Debug("flushed batch", "size", len(batch))
}

// AllCyclesDrainer drains the bus's allCycles queue, every evaluated batch
// regardless of profitability, updating Prometheus gauges with the best
// ROI/profit seen in each batch. It does not persist anything; allCycles
// exists purely for observability (spec's ARBITRAGE_EVALUATOR_PUBLISH_ALL).
type AllCyclesDrainer struct {
	bus    *busx.Bus
	logger *slog.Logger
}

// NewAllCyclesDrainer builds a drainer over the bus's allCycles queue.
func NewAllCyclesDrainer(bus *busx.Bus, logger *slog.Logger) *AllCyclesDrainer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AllCyclesDrainer{bus: bus, logger: logger.With("component", "telemetry.AllCyclesDrainer")}
}

// Run drains allCycles until ctx is cancelled or the queue closes.
func (d *AllCyclesDrainer) Run(ctx context.Context) {
	d.logger.Info("running")
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-d.bus.AllCycles():
			if !ok {
				return
			}
			safeguard.Run(d.logger, "AllCyclesDrainer.observe", func() { d.observe(batch) })
		}
	}
}

func (d *AllCyclesDrainer) observe(batch []types.Chain) {
	if len(batch) == 0 {
		return
	}
	for _, chain := range batch {
		IncChainEvaluated(chain.ROI > 0)
	}
	best := bestOf(batch)
	SetBestOfBatch(best.ROI, best.ProfitUSD)
}

// bestOf returns the highest-ROI chain in a batch. batch must be non-empty.
func bestOf(batch []types.Chain) types.Chain {
	best := batch[0]
	for _, chain := range batch[1:] {
		if chain.ROI > best.ROI {
			best = chain
		}
	}
	return best
}
