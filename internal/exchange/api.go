package exchange

import (
	"context"

	"github.com/patronarby/triarb/internal/types"
)

// MarketInfo is one symbol's declared trading rules and canonical
// BASE/QUOTE market string.
type MarketInfo struct {
	Symbol  string
	Market  string
	Filters SymbolFilters
}

// API is the minimal outbound exchange surface the engine consumes,
// mirroring spec.md's external-interfaces section exactly.
type API interface {
	ExchangeInfo(ctx context.Context) ([]MarketInfo, error)
	AllMarkets(ctx context.Context) (map[string]string, error) // symbol -> BASE/QUOTE
	SymbolToBaseQuote(symbol string) (base, quote string, ok bool)

	TradeFees(ctx context.Context) (map[string]float64, error) // symbol -> taker fee
	DefaultTradeFee() float64

	Balances(ctx context.Context) (map[string]float64, error)
	LatestPrices(ctx context.Context) (map[string]float64, error) // market -> price

	PutLimitOrder(ctx context.Context, o types.Order, timeInForce string) (types.Order, error)
	PutMarketOrder(ctx context.Context, o types.Order) (types.Order, error)

	OpenOrders(ctx context.Context) ([]types.Order, error)
	CancelOrder(ctx context.Context, symbol, clientOrderID string) error
}
