package balances

import (
	"testing"
	"time"
)

type fakeBus struct {
	stop bool
}

func (f *fakeBus) SetStopTrading(v bool) { f.stop = v }
func (f *fakeBus) StopTrading() bool     { return f.stop }

// TestStopLossLatchAndRecover is seed scenario 6: StopLossRatio=0.2, first
// tick registers initial=100; second tick value=79 -> stopTrading true;
// third tick value=81 -> stopTrading false.
func TestStopLossLatchAndRecover(t *testing.T) {
	t.Parallel()

	r := NewRegistry("USDT", nil)
	bus := &fakeBus{}
	checker := NewChecker(r, bus, []string{"USDT"}, 0.2, time.Second, nil)

	r.UpdateBalances(map[string]float64{"USDT": 100})
	checker.tick()
	if bus.StopTrading() {
		t.Fatal("stopTrading must not be set on the latching tick")
	}
	if checker.stopLoss != 80 {
		t.Fatalf("stopLoss = %v, want 80 (100 * (1-0.2))", checker.stopLoss)
	}

	r.UpdateBalances(map[string]float64{"USDT": 79})
	checker.tick()
	if !bus.StopTrading() {
		t.Error("stopTrading should be true once value (79) falls to or below stopLoss (80)")
	}

	r.UpdateBalances(map[string]float64{"USDT": 81})
	checker.tick()
	if bus.StopTrading() {
		t.Error("stopTrading should clear once value (81) recovers above stopLoss (80)")
	}
}

func TestCheckerSkipsWhileRegistryEmpty(t *testing.T) {
	t.Parallel()

	r := NewRegistry("USDT", nil)
	bus := &fakeBus{}
	checker := NewChecker(r, bus, []string{"USDT"}, 0.2, time.Second, nil)

	checker.tick()
	if checker.hasInitial {
		t.Error("checker should skip entirely while the registry is empty, never latching an initial value")
	}
}
