// Package balances tracks the portfolio's coin balances and USD exchange
// rates, and watches for a stop-loss breach. The mutex-guarded
// wholesale-replace/optimistic-reduce contract is grounded on
// original_source's BalancesRegistry; the periodic watcher goroutine is
// grounded on the teacher's risk.Manager run loop.
package balances

import (
	"log/slog"
	"strings"
	"sync"
)

// DefaultUSDCoin is the unit of account balanceUsd expresses amounts in
// when a coin is not itself a USD-equivalent.
const DefaultUSDCoin = "USDT"

func isUSDCoin(coin string) bool {
	return strings.Contains(coin, "USD")
}

// Registry maintains coin balances and market rates under a single mutex.
// Reads return value snapshots; reductions are optimistic and are
// deliberately discarded on the next wholesale refresh, per spec: this is
// drift containment, not a bug.
type Registry struct {
	usdCoin string
	logger  *slog.Logger

	mu       sync.Mutex
	balances map[string]float64
	rates    map[string]float64
	empty    bool
}

// NewRegistry builds an empty Registry. usdCoin defaults to DefaultUSDCoin
// when empty. logger may be nil.
func NewRegistry(usdCoin string, logger *slog.Logger) *Registry {
	if usdCoin == "" {
		usdCoin = DefaultUSDCoin
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		usdCoin:  usdCoin,
		logger:   logger.With("component", "balances.Registry"),
		balances: make(map[string]float64),
		rates:    make(map[string]float64),
		empty:    true,
	}
}

// UpdateBalances wholesale-replaces the balance map, discarding any prior
// optimistic reductions.
func (r *Registry) UpdateBalances(balances map[string]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances = cloneMap(balances)
	r.empty = false
}

// UpdateRates wholesale-replaces the market->price map.
func (r *Registry) UpdateRates(rates map[string]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates = cloneMap(rates)
}

// Reduce subtracts amount from coin's balance. A resulting negative
// balance is tolerated and stored as-is (a transient optimistic drift,
// corrected by the next UpdateBalances).
func (r *Registry) Reduce(coin string, amount float64) {
	r.mu.Lock()
	r.balances[coin] -= amount
	result := r.balances[coin]
	r.mu.Unlock()
	if result < 0 {
		r.logger.Warn("balance went negative after optimistic reduce", "coin", coin, "balance", result)
	}
}

// Balance returns coin's current balance and whether it has ever been
// reported by UpdateBalances.
func (r *Registry) Balance(coin string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	amount, ok := r.balances[coin]
	return amount, ok
}

// BalanceUSD converts coin's balance into the registry's USD unit of
// account. ok is false when the coin's balance is unknown, or when a
// non-stable coin's conversion rate is absent.
func (r *Registry) BalanceUSD(coin string) (value float64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	amount, known := r.balances[coin]
	if !known {
		return 0, false
	}
	if isUSDCoin(coin) {
		return amount, true
	}
	rate, rateKnown := r.rates[coin+r.usdCoin]
	if !rateKnown {
		return 0, false
	}
	return amount * rate, true
}

// IsEmpty is true until the first UpdateBalances call.
func (r *Registry) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.empty
}

// Snapshot returns a copy of the current balance map.
func (r *Registry) Snapshot() map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneMap(r.balances)
}

func cloneMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
