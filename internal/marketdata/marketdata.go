// Package marketdata holds the latest book-top per market plus the
// precomputed triangular-cycle index used to restrict evaluation to the
// cycles touched by a just-updated market. The concurrency shape mirrors
// the teacher's market.Book: a single RWMutex guarding a map, snapshot
// reads, no live references handed out.
package marketdata

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patronarby/triarb/internal/types"
)

// usdEquivalents is the fixed, ordered list of USD-equivalent coins probed
// by GetUsdPrice, mirroring the original source's stable-coin list order
// (most liquid first).
var usdEquivalents = []string{"USDT", "USDC", "BUSD", "USD"}

// IsUSDCoin reports whether coin is treated as a USD-equivalent unit of
// account, matching original_source's registry._is_usd_coin substring
// check generalized to the fixed list above.
func IsUSDCoin(coin string) bool {
	for _, u := range usdEquivalents {
		if coin == u {
			return true
		}
	}
	return false
}

// CoinCycle is the coin-only description of a triangular path A->B->C->A.
type CoinCycle [3]string

// MarketCycle is a coin cycle realized as the three markets actually
// quoted on the exchange, in traversal order.
type MarketCycle [3]string

type entry struct {
	ticker    types.Ticker
	updatedAt time.Time
}

// MarketData is the book-top cache plus precomputed triangle index. Safe
// for concurrent use.
type MarketData struct {
	allowlist map[string]struct{} // nil means "no restriction"

	mu      sync.RWMutex
	tickers map[string]entry

	// Precomputed at construction; read-only thereafter, so no lock is
	// needed to read these.
	marketPaths    map[string]map[string]struct{} // coin -> set(market)
	paths3         map[CoinCycle]MarketCycle
	marketToCycles map[string]map[CoinCycle]struct{}
}

// New builds a MarketData from the exchange's full symbol->BASE/QUOTE
// table and an optional coin allowlist (nil/empty means unrestricted).
// It eagerly computes marketPaths, paths3 and marketToCycles so that
// Put/FilterCyclesByMarkets never pay enumeration cost at runtime.
func New(symbolToMarket map[string]string, allowlist []string) *MarketData {
	md := &MarketData{
		tickers:        make(map[string]entry),
		marketPaths:    make(map[string]map[string]struct{}),
		paths3:         make(map[CoinCycle]MarketCycle),
		marketToCycles: make(map[string]map[CoinCycle]struct{}),
	}
	if len(allowlist) > 0 {
		md.allowlist = make(map[string]struct{}, len(allowlist))
		for _, c := range allowlist {
			md.allowlist[c] = struct{}{}
		}
	}

	markets := make([]string, 0, len(symbolToMarket))
	for _, market := range symbolToMarket {
		base, quote, ok := strings.Cut(market, "/")
		if !ok {
			continue
		}
		if !md.allowed(base) || !md.allowed(quote) {
			continue
		}
		markets = append(markets, market)
	}
	sort.Strings(markets)

	for _, market := range markets {
		base, quote, _ := strings.Cut(market, "/")
		md.addPath(base, market)
		md.addPath(quote, market)
	}

	md.buildPaths3(markets)
	return md
}

func (md *MarketData) allowed(coin string) bool {
	if md.allowlist == nil {
		return true
	}
	_, ok := md.allowlist[coin]
	return ok
}

func (md *MarketData) addPath(coin, market string) {
	set, ok := md.marketPaths[coin]
	if !ok {
		set = make(map[string]struct{})
		md.marketPaths[coin] = set
	}
	set[market] = struct{}{}
}

// buildPaths3 enumerates every A->B->C->A coin cycle reachable through the
// known markets: A->B from marketPaths[A], B->C from marketPaths[B],
// closing C->A required to exist as a market. Coin repeats are rejected
// except the closing A, and degenerate edges (a market touching the same
// coin on both sides, or reusing the same market for two legs) are
// rejected, per spec.
func (md *MarketData) buildPaths3(markets []string) {
	edgesOf := func(coin string) []string {
		set := md.marketPaths[coin]
		out := make([]string, 0, len(set))
		for m := range set {
			out = append(out, m)
		}
		sort.Strings(out)
		return out
	}
	otherCoin := func(market, coin string) string {
		base, quote, _ := strings.Cut(market, "/")
		if base == coin {
			return quote
		}
		if quote == coin {
			return base
		}
		return ""
	}

	for coinA := range md.marketPaths {
		for _, m1 := range edgesOf(coinA) {
			coinB := otherCoin(m1, coinA)
			if coinB == "" || coinB == coinA {
				continue
			}
			for _, m2 := range edgesOf(coinB) {
				if m2 == m1 {
					continue
				}
				coinC := otherCoin(m2, coinB)
				if coinC == "" || coinC == coinA || coinC == coinB {
					continue
				}
				for _, m3 := range edgesOf(coinC) {
					if m3 == m1 || m3 == m2 {
						continue
					}
					closesToA := otherCoin(m3, coinC)
					if closesToA != coinA {
						continue
					}
					coinCycle := CoinCycle{coinA, coinB, coinC}
					marketCycle := MarketCycle{m1, m2, m3}
					if _, exists := md.paths3[coinCycle]; exists {
						continue
					}
					md.paths3[coinCycle] = marketCycle
					for _, m := range marketCycle {
						set, ok := md.marketToCycles[m]
						if !ok {
							set = make(map[CoinCycle]struct{})
							md.marketToCycles[m] = set
						}
						set[coinCycle] = struct{}{}
					}
				}
			}
		}
	}
}

// Put replaces the stored book-top for t.Market, stamping the per-market
// last-update time. Tickers for markets outside the allowlist (i.e. not
// present in the precomputed index) are silently rejected.
func (md *MarketData) Put(t types.Ticker) {
	if !md.marketKnown(t.Market) {
		return
	}
	md.mu.Lock()
	md.tickers[t.Market] = entry{ticker: t, updatedAt: time.Now()}
	md.mu.Unlock()
}

// marketKnown reports whether the market survived allowlist filtering at
// construction time, i.e. appears in marketPaths for either side.
func (md *MarketData) marketKnown(market string) bool {
	base, quote, ok := strings.Cut(market, "/")
	if !ok {
		return false
	}
	if set, ok := md.marketPaths[base]; ok {
		if _, ok := set[market]; ok {
			return true
		}
	}
	if set, ok := md.marketPaths[quote]; ok {
		if _, ok := set[market]; ok {
			return true
		}
	}
	return false
}

// Get returns a point-in-time copy of the ticker map, safe to range over
// without holding any lock.
func (md *MarketData) Get() map[string]types.Ticker {
	md.mu.RLock()
	defer md.mu.RUnlock()
	out := make(map[string]types.Ticker, len(md.tickers))
	for market, e := range md.tickers {
		out[market] = e.ticker
	}
	return out
}

// GetOne returns the current ticker for a single market, if present.
func (md *MarketData) GetOne(market string) (types.Ticker, bool) {
	md.mu.RLock()
	defer md.mu.RUnlock()
	e, ok := md.tickers[market]
	if !ok {
		return types.Ticker{}, false
	}
	return e.ticker, true
}

// FilterCyclesByMarkets returns every precomputed market cycle touching
// any of the given markets, restricting evaluation to O(cycles touching
// those markets) instead of all known cycles.
func (md *MarketData) FilterCyclesByMarkets(markets map[string]struct{}) []MarketCycle {
	seen := make(map[CoinCycle]struct{})
	var out []MarketCycle
	for m := range markets {
		for cycle := range md.marketToCycles[m] {
			if _, dup := seen[cycle]; dup {
				continue
			}
			seen[cycle] = struct{}{}
			out = append(out, md.paths3[cycle])
		}
	}
	return out
}

// GetUsdPrice probes the ticker map for coin/<stable> or <stable>/coin
// across the fixed ordered usdEquivalents list, returning the best-bid on
// a direct quote or the reciprocal of the best-ask on an inverse quote.
// ok is false if coin is not quoted against any known stable.
func (md *MarketData) GetUsdPrice(coin string) (price float64, ok bool) {
	if IsUSDCoin(coin) {
		return 1, true
	}
	md.mu.RLock()
	defer md.mu.RUnlock()
	for _, stable := range usdEquivalents {
		if e, found := md.tickers[coin+"/"+stable]; found {
			return e.ticker.BestBid, true
		}
		if e, found := md.tickers[stable+"/"+coin]; found && e.ticker.BestAsk > 0 {
			return 1 / e.ticker.BestAsk, true
		}
	}
	return 0, false
}

// LastUpdated returns when market's ticker was last written, or the zero
// time if it has never been observed.
func (md *MarketData) LastUpdated(market string) time.Time {
	md.mu.RLock()
	defer md.mu.RUnlock()
	return md.tickers[market].updatedAt
}

// Markets returns every market that survived allowlist filtering at
// construction, regardless of whether a ticker has been observed yet.
func (md *MarketData) Markets() []string {
	seen := make(map[string]struct{})
	for _, set := range md.marketPaths {
		for m := range set {
			seen[m] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
