package engine

import (
	"context"
	"testing"
	"time"

	"github.com/patronarby/triarb/internal/balances"
	"github.com/patronarby/triarb/internal/exchange"
	"github.com/patronarby/triarb/internal/types"
)

// stubAPI implements exchange.API with fixed balances/prices; every other
// method is unused by balanceUpdater and returns zero values.
type stubAPI struct {
	balances map[string]float64
	prices   map[string]float64
}

func (s *stubAPI) ExchangeInfo(ctx context.Context) ([]exchange.MarketInfo, error) { return nil, nil }
func (s *stubAPI) AllMarkets(ctx context.Context) (map[string]string, error)       { return nil, nil }
func (s *stubAPI) SymbolToBaseQuote(symbol string) (string, string, bool)          { return "", "", false }
func (s *stubAPI) TradeFees(ctx context.Context) (map[string]float64, error)       { return nil, nil }
func (s *stubAPI) DefaultTradeFee() float64                                        { return 0 }
func (s *stubAPI) Balances(ctx context.Context) (map[string]float64, error)        { return s.balances, nil }
func (s *stubAPI) LatestPrices(ctx context.Context) (map[string]float64, error)    { return s.prices, nil }
func (s *stubAPI) PutLimitOrder(ctx context.Context, o types.Order, tif string) (types.Order, error) {
	return o, nil
}
func (s *stubAPI) PutMarketOrder(ctx context.Context, o types.Order) (types.Order, error) {
	return o, nil
}
func (s *stubAPI) OpenOrders(ctx context.Context) ([]types.Order, error)         { return nil, nil }
func (s *stubAPI) CancelOrder(ctx context.Context, symbol, clientOrderID string) error {
	return nil
}

func TestBalanceUpdaterPopulatesRegistryOnFirstTick(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		balances: map[string]float64{"BTC": 1.5, "USDT": 1000},
		prices:   map[string]float64{"BTCUSDT": 30000},
	}
	registry := balances.NewRegistry("USDT", discardLogger())
	updater := newBalanceUpdater(api, registry, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go updater.Run(ctx)

	deadline := time.After(time.Second)
	for registry.IsEmpty() {
		select {
		case <-deadline:
			t.Fatal("registry was never populated")
		case <-time.After(time.Millisecond):
		}
	}

	bal, ok := registry.Balance("BTC")
	if !ok || bal != 1.5 {
		t.Errorf("Balance(BTC) = %v, %v; want 1.5, true", bal, ok)
	}
	usd, ok := registry.BalanceUSD("BTC")
	if !ok || usd != 45000 {
		t.Errorf("BalanceUSD(BTC) = %v, %v; want 45000, true", usd, ok)
	}
}
