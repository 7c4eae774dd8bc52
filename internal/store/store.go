// Package store persists fired orders and evaluated chains. OrderDAO and
// ChainDAO are deliberately thin so either implementation can be swapped in
// without touching callers; the JSONFile* stores are grounded on the teacher's
// store.Store atomic write-then-rename technique, the Gorm* stores on
// ChoSanghyuk-blackholedex's gorm-based recorder.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/patronarby/triarb/internal/types"
)

// OrderRecord is the persisted shape of one fired order, decimal fields
// kept as strings so JSON round-trips exactly and SQL columns stay
// portable across drivers.
type OrderRecord struct {
	ClientOrderID  string
	Side           string
	Symbol         string
	Quantity       string
	Price          string
	CreatedAtMs    int64
	FiredAtMs      int64
	Status         string
	ArbitrageHash8 uint32
	Comment        string
}

// OrderFromType converts a types.Order into its persisted representation.
func OrderFromType(o types.Order) OrderRecord {
	return OrderRecord{
		ClientOrderID:  o.ClientOrderID,
		Side:           string(o.Side),
		Symbol:         o.Symbol,
		Quantity:       o.Quantity.String(),
		Price:          o.Price.String(),
		CreatedAtMs:    o.CreatedAtMs,
		FiredAtMs:      o.FiredAtMs,
		Status:         string(o.Status),
		ArbitrageHash8: o.ArbitrageHash8,
		Comment:        o.Comment,
	}
}

// ToType converts a persisted record back into a types.Order.
func (r OrderRecord) ToType() types.Order {
	qty, _ := decimal.NewFromString(r.Quantity)
	price, _ := decimal.NewFromString(r.Price)
	return types.Order{
		ClientOrderID:  r.ClientOrderID,
		Side:           types.Side(r.Side),
		Symbol:         r.Symbol,
		Quantity:       qty,
		Price:          price,
		CreatedAtMs:    r.CreatedAtMs,
		FiredAtMs:      r.FiredAtMs,
		Status:         types.OrderStatus(r.Status),
		ArbitrageHash8: r.ArbitrageHash8,
		Comment:        r.Comment,
	}
}

// ChainRecord is the persisted shape of one evaluated chain, annotated
// with the TradeManager's outcome comment.
type ChainRecord struct {
	MarketsSequence string
	InitialCoin     string
	ROI             float64
	Profit          float64
	ProfitUSD       float64
	TimeMs          int64
	Comment         string
	SavedAt         time.Time
}

// ChainFromType converts a types.Chain into its persisted representation.
func ChainFromType(c types.Chain, savedAt time.Time) ChainRecord {
	return ChainRecord{
		MarketsSequence: c.MarketsSequence(),
		InitialCoin:     c.InitialCoin,
		ROI:             c.ROI,
		Profit:          c.Profit,
		ProfitUSD:       c.ProfitUSD,
		TimeMs:          c.TimeMs,
		Comment:         c.Comment,
		SavedAt:         savedAt,
	}
}

// OrderDAO persists and retrieves order records.
type OrderDAO interface {
	Save(ctx context.Context, rec OrderRecord) error
	Get(ctx context.Context, clientOrderID string) (OrderRecord, bool, error)
}

// ChainDAO persists evaluated chains for telemetry/audit.
type ChainDAO interface {
	Save(ctx context.Context, rec ChainRecord) error
}
