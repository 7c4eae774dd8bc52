// Package execution runs the OrderExecutor worker pool and the
// OrderCancelator, grounded on original_source's trade.OrderExecutor and
// exchange.OrderCancelator: a pool of identical consumers draining
// fireOrders down to a single exchange call each, plus a ticking sweep
// that cancels orders that have lived past their TTL.
package execution

import (
	"context"
	"log/slog"

	"github.com/patronarby/triarb/internal/busx"
	"github.com/patronarby/triarb/internal/exchange"
	"github.com/patronarby/triarb/internal/safeguard"
	"github.com/patronarby/triarb/internal/store"
	"github.com/patronarby/triarb/internal/types"
)

// DefaultTimeInForce is the order qualifier passed to PutLimitOrder when
// the executor is built with an empty timeInForce.
const DefaultTimeInForce = "GTC"

// Executor is one worker in the OrderExecutor pool. Workers share nothing
// but the bus, the exchange API, and the order DAO, all of which are
// already safe for concurrent use.
type Executor struct {
	id          int
	bus         *busx.Bus
	api         exchange.API
	orders      store.OrderDAO
	timeInForce string
	logger      *slog.Logger
}

// NewExecutor builds one pool worker. timeInForce defaults to GTC when empty.
func NewExecutor(id int, bus *busx.Bus, api exchange.API, orders store.OrderDAO, timeInForce string, logger *slog.Logger) *Executor {
	if timeInForce == "" {
		timeInForce = DefaultTimeInForce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		id:          id,
		bus:         bus,
		api:         api,
		orders:      orders,
		timeInForce: timeInForce,
		logger:      logger.With("component", "execution.Executor", "worker", id),
	}
}

// Run drains fireOrders until ctx is cancelled or the pool-shutdown
// sentinel arrives, whichever happens first. Receiving the sentinel
// re-enqueues it once so every other worker also sees it and exits.
func (e *Executor) Run(ctx context.Context) {
	e.logger.Debug("starting")
	defer e.logger.Debug("stopping")

	for {
		select {
		case <-ctx.Done():
			return
		case order, ok := <-e.bus.FireOrders():
			if !ok {
				return
			}
			if busx.IsSentinel(order) {
				e.bus.ShutdownExecutors()
				return
			}
			safeguard.Run(e.logger, "Executor.process", func() { e.process(ctx, order) })
		}
	}
}

func (e *Executor) process(ctx context.Context, order types.Order) {
	order.FiredAtMs = types.NowMs()

	e.logger.Info("placing order", "order", order.String())
	result, err := e.api.PutLimitOrder(ctx, order, e.timeInForce)
	if err != nil {
		order.Status = types.OrderStatusError
		order.Comment = err.Error()
		e.logger.Error("failed to place order", "order", order.ClientOrderID, "error", err)
	} else {
		result.FiredAtMs = order.FiredAtMs
		order = result
	}

	if err := e.orders.Save(ctx, store.OrderFromType(order)); err != nil {
		e.logger.Error("failed to persist order", "order", order.ClientOrderID, "error", err)
	}
}

// RunPool launches n identical Executor workers and blocks until every one
// has returned (i.e. until ctx is cancelled or the sentinel has
// propagated through the whole pool).
func RunPool(ctx context.Context, n int, bus *busx.Bus, api exchange.API, orders store.OrderDAO, timeInForce string, logger *slog.Logger) {
	if n <= 0 {
		n = 1
	}
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		worker := NewExecutor(i+1, bus, api, orders, timeInForce, logger)
		go func() {
			worker.Run(ctx)
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}
}
