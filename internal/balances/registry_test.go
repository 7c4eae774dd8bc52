package balances

import "testing"

func TestRegistryIsEmptyUntilFirstUpdate(t *testing.T) {
	t.Parallel()

	r := NewRegistry("", nil)
	if !r.IsEmpty() {
		t.Error("a freshly constructed Registry should be empty")
	}
	r.UpdateBalances(map[string]float64{"BTC": 1})
	if r.IsEmpty() {
		t.Error("Registry should no longer be empty after UpdateBalances")
	}
}

func TestReduceIsOptimisticAndDiscardedOnRefresh(t *testing.T) {
	t.Parallel()

	r := NewRegistry("", nil)
	r.UpdateBalances(map[string]float64{"BTC": 10})
	r.Reduce("BTC", 3)
	if got, _ := r.Balance("BTC"); got != 7 {
		t.Errorf("Balance(BTC) = %v, want 7 after reduce", got)
	}

	r.Reduce("BTC", 100)
	if got, _ := r.Balance("BTC"); got != -93 {
		t.Errorf("Balance(BTC) = %v, want -93 (negative balances are tolerated)", got)
	}

	r.UpdateBalances(map[string]float64{"BTC": 10})
	if got, _ := r.Balance("BTC"); got != 10 {
		t.Errorf("Balance(BTC) = %v, want 10: wholesale refresh must discard prior reductions", got)
	}
}

func TestBalanceUSDForStableAndNonStableCoin(t *testing.T) {
	t.Parallel()

	r := NewRegistry("USDT", nil)
	r.UpdateBalances(map[string]float64{"USDT": 500, "BTC": 2})
	r.UpdateRates(map[string]float64{"BTCUSDT": 60000})

	if v, ok := r.BalanceUSD("USDT"); !ok || v != 500 {
		t.Errorf("BalanceUSD(USDT) = (%v, %v), want (500, true)", v, ok)
	}
	if v, ok := r.BalanceUSD("BTC"); !ok || v != 120000 {
		t.Errorf("BalanceUSD(BTC) = (%v, %v), want (120000, true)", v, ok)
	}
	if _, ok := r.BalanceUSD("ETH"); ok {
		t.Error("BalanceUSD(ETH) should be false: balance unknown")
	}
}

func TestBalanceUSDUndefinedWithoutRate(t *testing.T) {
	t.Parallel()

	r := NewRegistry("USDT", nil)
	r.UpdateBalances(map[string]float64{"ETH": 10})
	if _, ok := r.BalanceUSD("ETH"); ok {
		t.Error("BalanceUSD(ETH) should be false when no ETHUSDT rate is known")
	}
}
