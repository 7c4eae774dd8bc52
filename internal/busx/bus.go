// Package busx is the in-process communication fabric between arbitrage
// workers. It provides typed, bounded, multi-producer/multi-consumer FIFOs
// plus a process-wide StopTrading flag. Workers never hold direct
// references into one another's mutable state — the Bus is the only
// channel of communication, matching the teacher engine's goroutine
// wiring (internal channels, no shared structs) generalized to five named
// queues instead of ad hoc per-feed channels.
package busx

import (
	"context"
	"sync/atomic"

	"github.com/patronarby/triarb/internal/types"
)

// Default queue capacities. Tuned generously since book-top feeds can
// burst; TELEMETRY queues are intentionally larger since they tolerate
// lossy delivery.
const (
	DefaultTickersCapacity        = 4096
	DefaultPositiveCyclesCapacity = 256
	DefaultStoreCyclesCapacity    = 1024
	DefaultAllCyclesCapacity      = 2048
	DefaultFireOrdersCapacity     = 512
)

// Sentinel is pushed onto FireOrders to terminate the OrderExecutor pool:
// each worker that reads it re-enqueues it once for its peers, then exits.
var Sentinel = types.Order{ClientOrderID: "__SENTINEL__"}

// IsSentinel reports whether an order is the pool shutdown sentinel.
func IsSentinel(o types.Order) bool {
	return o.ClientOrderID == Sentinel.ClientOrderID
}

// Bus is the shared message fabric. All queues are FIFO within
// themselves; no ordering is implied across queues.
type Bus struct {
	tickers        chan types.Ticker
	positiveCycles chan []types.Chain
	storeCycles    chan types.Chain
	allCycles      chan []types.Chain
	fireOrders     chan types.Order

	stopTrading atomic.Bool
}

// Config lets callers size each queue; a zero Config uses the defaults.
type Config struct {
	TickersCapacity        int
	PositiveCyclesCapacity int
	StoreCyclesCapacity    int
	AllCyclesCapacity      int
	FireOrdersCapacity     int
}

func (c Config) withDefaults() Config {
	if c.TickersCapacity <= 0 {
		c.TickersCapacity = DefaultTickersCapacity
	}
	if c.PositiveCyclesCapacity <= 0 {
		c.PositiveCyclesCapacity = DefaultPositiveCyclesCapacity
	}
	if c.StoreCyclesCapacity <= 0 {
		c.StoreCyclesCapacity = DefaultStoreCyclesCapacity
	}
	if c.AllCyclesCapacity <= 0 {
		c.AllCyclesCapacity = DefaultAllCyclesCapacity
	}
	if c.FireOrdersCapacity <= 0 {
		c.FireOrdersCapacity = DefaultFireOrdersCapacity
	}
	return c
}

// New creates a Bus with the given queue capacities.
func New(cfg Config) *Bus {
	cfg = cfg.withDefaults()
	return &Bus{
		tickers:        make(chan types.Ticker, cfg.TickersCapacity),
		positiveCycles: make(chan []types.Chain, cfg.PositiveCyclesCapacity),
		storeCycles:    make(chan types.Chain, cfg.StoreCyclesCapacity),
		allCycles:      make(chan []types.Chain, cfg.AllCyclesCapacity),
		fireOrders:     make(chan types.Order, cfg.FireOrdersCapacity),
	}
}

// PutTicker blocks until the ticker is enqueued or ctx is done. Producers
// (the exchange listener) must not block indefinitely; the caller is
// expected to pass a context tied to process shutdown.
func (b *Bus) PutTicker(ctx context.Context, t types.Ticker) error {
	select {
	case b.tickers <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tickers returns the consumer side of the tickers queue.
func (b *Bus) Tickers() <-chan types.Ticker {
	return b.tickers
}

// PutPositiveCycles enqueues one batch (one evaluator invocation's worth)
// of positive-profit chains. Blocks the producer on saturation.
func (b *Bus) PutPositiveCycles(ctx context.Context, batch []types.Chain) error {
	if len(batch) == 0 {
		return nil
	}
	select {
	case b.positiveCycles <- batch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PositiveCycles returns the consumer side of the positiveCycles queue.
func (b *Bus) PositiveCycles() <-chan []types.Chain {
	return b.positiveCycles
}

// PutStoreCycle enqueues one annotated chain for telemetry persistence.
// Blocks the producer on saturation (spec: all queues except allCycles
// must block the producer).
func (b *Bus) PutStoreCycle(ctx context.Context, c types.Chain) error {
	select {
	case b.storeCycles <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StoreCycles returns the consumer side of the storeCycles queue.
func (b *Bus) StoreCycles() <-chan types.Chain {
	return b.storeCycles
}

// PutAllCycles enqueues a full evaluation batch for telemetry. This is the
// one queue that never blocks the producer: on saturation the oldest
// pending batch is dropped to make room, exactly as spec.md mandates.
func (b *Bus) PutAllCycles(batch []types.Chain) {
	if len(batch) == 0 {
		return
	}
	select {
	case b.allCycles <- batch:
		return
	default:
	}
	// Full: drop the oldest pending batch, then retry once. If a racing
	// consumer drained it in the meantime the retry still succeeds because
	// there is now free capacity.
	select {
	case <-b.allCycles:
	default:
	}
	select {
	case b.allCycles <- batch:
	default:
		// Lost the race against another producer; drop this batch rather
		// than block — telemetry is explicitly allowed to be lossy.
	}
}

// AllCycles returns the consumer side of the allCycles queue.
func (b *Bus) AllCycles() <-chan []types.Chain {
	return b.allCycles
}

// PutFireOrder enqueues an order for the executor pool. Blocks the
// producer on saturation.
func (b *Bus) PutFireOrder(ctx context.Context, o types.Order) error {
	select {
	case b.fireOrders <- o:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FireOrders returns the consumer side of the fireOrders queue.
func (b *Bus) FireOrders() <-chan types.Order {
	return b.fireOrders
}

// ShutdownExecutors pushes the pool-termination sentinel. Any one executor
// that reads it re-enqueues it once for the remaining peers.
func (b *Bus) ShutdownExecutors() {
	select {
	case b.fireOrders <- Sentinel:
	default:
	}
}

// StopTrading reports whether the stop-loss flag is currently engaged.
func (b *Bus) StopTrading() bool {
	return b.stopTrading.Load()
}

// SetStopTrading sets or clears the stop-loss flag. Only BalancesChecker
// should call this with true/false based on its periodic portfolio check.
func (b *Bus) SetStopTrading(v bool) {
	b.stopTrading.Store(v)
}
