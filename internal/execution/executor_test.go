package execution

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/patronarby/triarb/internal/busx"
	"github.com/patronarby/triarb/internal/exchange"
	"github.com/patronarby/triarb/internal/store"
	"github.com/patronarby/triarb/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 100}))
}

// fakeAPI implements exchange.API with just enough behavior for executor
// and cancelator tests: records PutLimitOrder/CancelOrder calls and can be
// told to fail either call.
type fakeAPI struct {
	mu         sync.Mutex
	placed     []types.Order
	placeErr   error
	cancelled  []string
	cancelErr  error
	openOrders []types.Order
}

func (f *fakeAPI) ExchangeInfo(ctx context.Context) ([]exchange.MarketInfo, error) { return nil, nil }
func (f *fakeAPI) AllMarkets(ctx context.Context) (map[string]string, error)       { return nil, nil }
func (f *fakeAPI) SymbolToBaseQuote(symbol string) (string, string, bool)          { return "", "", false }
func (f *fakeAPI) TradeFees(ctx context.Context) (map[string]float64, error)       { return nil, nil }
func (f *fakeAPI) DefaultTradeFee() float64                                        { return 0 }
func (f *fakeAPI) Balances(ctx context.Context) (map[string]float64, error)        { return nil, nil }
func (f *fakeAPI) LatestPrices(ctx context.Context) (map[string]float64, error)    { return nil, nil }
func (f *fakeAPI) PutMarketOrder(ctx context.Context, o types.Order) (types.Order, error) {
	return o, nil
}

func (f *fakeAPI) PutLimitOrder(ctx context.Context, o types.Order, timeInForce string) (types.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return types.Order{}, f.placeErr
	}
	o.Status = types.OrderStatusNew
	f.placed = append(f.placed, o)
	return o, nil
}

func (f *fakeAPI) OpenOrders(ctx context.Context) ([]types.Order, error) {
	return f.openOrders, nil
}

func (f *fakeAPI) CancelOrder(ctx context.Context, symbol, clientOrderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, clientOrderID)
	return nil
}

func testOrder() types.Order {
	return types.Order{
		ClientOrderID: types.NewClientOrderID(123, 1),
		Side:          types.Buy,
		Symbol:        "BTCUSDT",
		Quantity:      decimal.RequireFromString("0.01"),
		Price:         decimal.RequireFromString("30000"),
		CreatedAtMs:   types.NowMs(),
	}
}

func TestExecutorPersistsSuccessfullyPlacedOrder(t *testing.T) {
	t.Parallel()

	bus := busx.New(busx.Config{})
	api := &fakeAPI{}
	orders, err := store.OpenJSONFileOrderStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenJSONFileOrderStore: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := NewExecutor(1, bus, api, orders, "", discardLogger())
	go e.Run(ctx)

	order := testOrder()
	if err := bus.PutFireOrder(ctx, order); err != nil {
		t.Fatalf("PutFireOrder: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		rec, ok, _ := orders.Get(ctx, order.ClientOrderID)
		if ok {
			if rec.Status != string(types.OrderStatusNew) {
				t.Errorf("persisted status = %s, want NEW", rec.Status)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("order was never persisted")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestExecutorMarksOrderAsErrorOnPlacementFailure(t *testing.T) {
	t.Parallel()

	bus := busx.New(busx.Config{})
	api := &fakeAPI{placeErr: errors.New("exchange rejected")}
	orders, err := store.OpenJSONFileOrderStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenJSONFileOrderStore: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := NewExecutor(1, bus, api, orders, "", discardLogger())
	go e.Run(ctx)

	order := testOrder()
	bus.PutFireOrder(ctx, order)

	deadline := time.After(time.Second)
	for {
		rec, ok, _ := orders.Get(ctx, order.ClientOrderID)
		if ok {
			if rec.Status != string(types.OrderStatusError) {
				t.Errorf("persisted status = %s, want ERROR", rec.Status)
			}
			if rec.Comment == "" {
				t.Error("expected the failure reason to be carried into the comment")
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("order was never persisted")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestExecutorExitsAndRepropagatesSentinel(t *testing.T) {
	t.Parallel()

	bus := busx.New(busx.Config{})
	api := &fakeAPI{}
	orders, _ := store.OpenJSONFileOrderStore(t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := NewExecutor(1, bus, api, orders, "", discardLogger())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	bus.ShutdownExecutors()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("executor did not exit after receiving the sentinel")
	}

	select {
	case o := <-bus.FireOrders():
		if !busx.IsSentinel(o) {
			t.Error("expected the re-enqueued message to be the sentinel")
		}
	default:
		t.Error("expected the sentinel to be re-enqueued for peer workers")
	}
}

func TestRunPoolReturnsAfterAllWorkersExit(t *testing.T) {
	t.Parallel()

	bus := busx.New(busx.Config{})
	api := &fakeAPI{}
	orders, _ := store.OpenJSONFileOrderStore(t.TempDir())

	done := make(chan struct{})
	go func() {
		RunPool(context.Background(), 3, bus, api, orders, "", discardLogger())
		close(done)
	}()

	bus.ShutdownExecutors()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPool did not return after the sentinel drained the whole pool")
	}
}
