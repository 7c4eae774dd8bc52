package types

import "testing"

func step(market string, side Side, price, volume float64) ChainStep {
	return ChainStep{Market: market, Side: side, Price: price, Volume: volume}
}

func TestChainStepSpendingAndReceivedCoin(t *testing.T) {
	t.Parallel()

	buy := step("BTC/USDT", Buy, 55200, 2.01)
	if got := buy.SpendingCoin(); got != "USDT" {
		t.Errorf("buy.SpendingCoin() = %q, want USDT", got)
	}
	if got := buy.ReceivedCoin(); got != "BTC" {
		t.Errorf("buy.ReceivedCoin() = %q, want BTC", got)
	}
	if got := buy.ProposedVolume(); got != 55200*2.01 {
		t.Errorf("buy.ProposedVolume() = %v, want %v", got, 55200*2.01)
	}
	if got := buy.ReceivedVolume(); got != 2.01 {
		t.Errorf("buy.ReceivedVolume() = %v, want 2.01", got)
	}

	sell := step("BTC/USDT", Sell, 55100, 1.22)
	if got := sell.SpendingCoin(); got != "BTC" {
		t.Errorf("sell.SpendingCoin() = %q, want BTC", got)
	}
	if got := sell.ReceivedCoin(); got != "USDT" {
		t.Errorf("sell.ReceivedCoin() = %q, want USDT", got)
	}
	if got := sell.ProposedVolume(); got != 1.22 {
		t.Errorf("sell.ProposedVolume() = %v, want 1.22", got)
	}
	if got := sell.ReceivedVolume(); got != 55100*1.22 {
		t.Errorf("sell.ReceivedVolume() = %v, want %v", got, 55100*1.22)
	}
}

func TestChainHash8StableAcrossROIAndTime(t *testing.T) {
	t.Parallel()

	steps := [3]ChainStep{
		step("BTC/USDT", Buy, 1, 1),
		step("ETH/BTC", Buy, 1, 1),
		step("ETH/USDT", Sell, 1, 1),
	}
	a := NewChain("USDT", steps, 0.01, 1, 1, 1000)
	b := NewChain("USDT", steps, 0.05, 5, 5, 2000)

	if a.Hash8() != b.Hash8() {
		t.Errorf("Hash8 should be stable across ROI/time, got %d vs %d", a.Hash8(), b.Hash8())
	}
	if a.Hash8() >= 100_000_000 {
		t.Errorf("Hash8 must be < 1e8, got %d", a.Hash8())
	}
	if a.UID() == b.UID() {
		t.Errorf("UID should differ across time, got equal %q", a.UID())
	}
	if !a.IsForSameChain(b) {
		t.Error("chains with same market sequence should be IsForSameChain")
	}
}

func TestClientOrderIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := NewClientOrderID(12345678, 2)
	if id != "12345678_order_2" {
		t.Fatalf("NewClientOrderID = %q, want 12345678_order_2", id)
	}
	hash8, leg, ok := ParseClientOrderID(id)
	if !ok || hash8 != 12345678 || leg != 2 {
		t.Errorf("ParseClientOrderID(%q) = (%d, %d, %v), want (12345678, 2, true)", id, hash8, leg, ok)
	}

	if _, _, ok := ParseClientOrderID("not-an-order-id"); ok {
		t.Error("ParseClientOrderID should reject ids without the separator")
	}
	if _, _, ok := ParseClientOrderID("123_order_9"); ok {
		t.Error("ParseClientOrderID should reject leg indices outside 1..3")
	}
}

func TestDifferentMarketSequenceDifferentHash8(t *testing.T) {
	t.Parallel()

	a := NewChain("USDT", [3]ChainStep{
		step("BTC/USDT", Buy, 1, 1), step("ETH/BTC", Buy, 1, 1), step("ETH/USDT", Sell, 1, 1),
	}, 0, 0, 0, 0)
	b := NewChain("USDT", [3]ChainStep{
		step("LTC/USDT", Buy, 1, 1), step("ETH/LTC", Buy, 1, 1), step("ETH/USDT", Sell, 1, 1),
	}, 0, 0, 0, 0)

	if a.Hash8() == b.Hash8() {
		t.Error("distinct market sequences should (overwhelmingly likely) hash differently")
	}
}
