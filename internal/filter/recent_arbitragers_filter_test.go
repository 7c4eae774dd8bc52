package filter

import (
	"testing"
	"time"

	"github.com/patronarby/triarb/internal/types"
)

func testChain(roi float64) types.Chain {
	steps := [3]types.ChainStep{
		{Market: "BTC/USDT", Side: types.Buy},
		{Market: "ETH/BTC", Side: types.Buy},
		{Market: "ETH/USDT", Side: types.Sell},
	}
	return types.NewChain("USDT", steps, roi, 0, 0, 0)
}

func TestFirstObservationIsNeverContained(t *testing.T) {
	t.Parallel()

	f := New(time.Hour)
	if f.RegisterAndContained(testChain(0.01)) {
		t.Error("a chain's first observation must not be reported as contained")
	}
}

func TestSameKeyWithinTTLIsContained(t *testing.T) {
	t.Parallel()

	f := New(time.Hour)
	c := testChain(0.01)
	f.RegisterAndContained(c)
	if !f.RegisterAndContained(c) {
		t.Error("the same chain observed again within the TTL should be contained")
	}
}

func TestSameKeyAfterTTLIsNotContained(t *testing.T) {
	t.Parallel()

	f := New(10 * time.Millisecond)
	c := testChain(0.01)
	f.RegisterAndContained(c)
	time.Sleep(20 * time.Millisecond)
	if f.RegisterAndContained(c) {
		t.Error("a chain observed again after the TTL has elapsed should not be contained")
	}
}

func TestDifferentROIIsDifferentKey(t *testing.T) {
	t.Parallel()

	f := New(time.Hour)
	f.RegisterAndContained(testChain(0.01))
	if f.RegisterAndContained(testChain(0.02)) {
		t.Error("a chain with a different ROI should be tracked as a distinct key")
	}
}

func TestEvictStaleRemovesOldEntries(t *testing.T) {
	t.Parallel()

	f := New(10 * time.Millisecond)
	f.RegisterAndContained(testChain(0.01))
	if f.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", f.Size())
	}
	time.Sleep(20 * time.Millisecond)
	f.EvictStale()
	if f.Size() != 0 {
		t.Errorf("Size() = %d, want 0 after EvictStale past the TTL", f.Size())
	}
}
