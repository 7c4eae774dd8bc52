// Package exchange hosts everything that talks to the outside exchange:
// per-symbol trading filters, HMAC request signing, the REST order client
// and the book-top/user-data websocket feeds. Grounded on the teacher's
// exchange.Client/exchange.WSFeed/exchange.Auth, reshaped for a
// centralized spot exchange instead of Polymarket's CLOB, and on
// original_source's ExchangeLimitations contract.
package exchange

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/patronarby/triarb/internal/types"
)

// SymbolFilters are the per-market trading limits declared by the
// exchange's instrument info.
type SymbolFilters struct {
	MinPriceStep  decimal.Decimal
	MinVolumeStep decimal.Decimal
	MinNotional   decimal.Decimal
}

// Limitations rounds and validates orders against each market's declared
// filters, operating on exact decimal representation throughout so that
// downstream string serialization is lossless.
type Limitations struct {
	filters map[string]SymbolFilters
}

// NewLimitations builds a Limitations from symbol->filters, keyed by the
// same "BASEQUOTE" symbol used on Order.Symbol.
func NewLimitations(filters map[string]SymbolFilters) *Limitations {
	return &Limitations{filters: filters}
}

// Adjust rounds price down to a multiple of minPriceStep and quantity down
// to a multiple of minVolumeStep, in place, using exact decimal
// arithmetic. Symbols with no declared filter are left untouched.
func (l *Limitations) Adjust(o *types.Order) {
	f, ok := l.filters[o.Symbol]
	if !ok {
		return
	}
	if !f.MinPriceStep.IsZero() {
		o.Price = roundDownToStep(o.Price, f.MinPriceStep)
	}
	if !f.MinVolumeStep.IsZero() {
		o.Quantity = roundDownToStep(o.Quantity, f.MinVolumeStep)
	}
}

// roundDownToStep floors v to the nearest multiple of step using exact
// decimal division/truncation (never binary floats).
func roundDownToStep(v, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return v
	}
	multiples := v.Div(step).Truncate(0)
	return multiples.Mul(step)
}

// Check reports whether o satisfies the symbol's minNotional requirement.
// ok is false with a human-readable reason when it does not.
func (l *Limitations) Check(o types.Order) (ok bool, reason string) {
	f, known := l.filters[o.Symbol]
	if !known {
		return true, ""
	}
	notional := o.Quantity.Mul(o.Price)
	if !f.MinNotional.IsZero() && notional.LessThan(f.MinNotional) {
		return false, fmt.Sprintf("notional %s below minNotional %s for %s", notional.String(), f.MinNotional.String(), o.Symbol)
	}
	return true, ""
}
