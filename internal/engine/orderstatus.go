package engine

import (
	"context"
	"log/slog"

	"github.com/patronarby/triarb/internal/safeguard"
	"github.com/patronarby/triarb/internal/store"
	"github.com/patronarby/triarb/internal/types"
)

// orderStatusSync applies the authenticated user feed's fill/status events
// onto the persisted order record, so a FILLED or CANCELED event from the
// exchange overwrites the NEW status the executor originally stored.
type orderStatusSync struct {
	events <-chan types.OrderStatusEvent
	orders store.OrderDAO
	logger *slog.Logger
}

func newOrderStatusSync(events <-chan types.OrderStatusEvent, orders store.OrderDAO, logger *slog.Logger) *orderStatusSync {
	if logger == nil {
		logger = slog.Default()
	}
	return &orderStatusSync{events: events, orders: orders, logger: logger.With("component", "engine.orderStatusSync")}
}

func (s *orderStatusSync) Run(ctx context.Context) {
	s.logger.Info("running")
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-s.events:
			if !ok {
				return
			}
			safeguard.Run(s.logger, "orderStatusSync.apply", func() { s.apply(ctx, evt) })
		}
	}
}

func (s *orderStatusSync) apply(ctx context.Context, evt types.OrderStatusEvent) {
	rec, found, err := s.orders.Get(ctx, evt.ClientOrderID)
	if err != nil {
		s.logger.Error("failed to load order for status update", "clientOrderId", evt.ClientOrderID, "error", err)
		return
	}
	if !found {
		s.logger.Debug("status event for unknown order, ignoring", "clientOrderId", evt.ClientOrderID)
		return
	}

	rec.Status = string(evt.Status)
	if err := s.orders.Save(ctx, rec); err != nil {
		s.logger.Error("failed to persist order status update", "clientOrderId", evt.ClientOrderID, "error", err)
	}
}
