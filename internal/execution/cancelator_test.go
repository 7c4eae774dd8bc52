package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/patronarby/triarb/internal/types"
)

var errTestCancelFailed = errors.New("cancel failed")

func TestSweepCancelsOnlyStaleRecognizedOrders(t *testing.T) {
	t.Parallel()

	now := types.NowMs()
	api := &fakeAPI{openOrders: []types.Order{
		{ClientOrderID: types.NewClientOrderID(1, 1), Symbol: "BTCUSDT", CreatedAtMs: now - 60_000},
		{ClientOrderID: types.NewClientOrderID(2, 2), Symbol: "ETHUSDT", CreatedAtMs: now}, // fresh, not stale
		{ClientOrderID: "manual-order-from-elsewhere", Symbol: "LTCUSDT", CreatedAtMs: now - 60_000}, // doesn't match our shape
	}}

	c := NewCancelator(api, 30*time.Second, time.Second, discardLogger())
	c.sweep(context.Background())

	if len(api.cancelled) != 1 {
		t.Fatalf("cancelled %d orders, want 1: %v", len(api.cancelled), api.cancelled)
	}
	if api.cancelled[0] != types.NewClientOrderID(1, 1) {
		t.Errorf("cancelled %s, want the stale recognized order", api.cancelled[0])
	}
}

func TestSweepContinuesAfterIndividualCancelFailure(t *testing.T) {
	t.Parallel()

	now := types.NowMs()
	api := &fakeAPI{
		openOrders: []types.Order{
			{ClientOrderID: types.NewClientOrderID(1, 1), Symbol: "BTCUSDT", CreatedAtMs: now - 60_000},
			{ClientOrderID: types.NewClientOrderID(2, 2), Symbol: "ETHUSDT", CreatedAtMs: now - 60_000},
		},
		cancelErr: errTestCancelFailed,
	}

	c := NewCancelator(api, 30*time.Second, time.Second, discardLogger())
	// Should not panic or stop early despite every cancel failing.
	c.sweep(context.Background())

	if len(api.cancelled) != 0 {
		t.Errorf("expected no successful cancellations, got %v", api.cancelled)
	}
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	c := NewCancelator(api, time.Second, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
