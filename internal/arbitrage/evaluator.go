// Package arbitrage evaluates triangular cycles against the current
// book-top snapshot, deriving ROI, executable size, and USD profit for
// each fully-quoted triangle. The sizing algorithm is grounded on
// original_source's ArbyUtils.calc_and_return_max_available_triangle_volume:
// every step's available spend is projected back into the initial coin's
// unit through the prior legs' price ratios, the minimum across the three
// legs is taken, and that minimum is propagated forward to re-derive each
// step's own volume.
package arbitrage

import (
	"log/slog"

	"github.com/patronarby/triarb/internal/marketdata"
	"github.com/patronarby/triarb/internal/types"
)

// FeeTable maps a concatenated symbol (e.g. "BTCUSDT") to its taker fee as
// a fraction (0.001 == 10bps). DefaultFee is used for symbols absent from
// the table.
type FeeTable struct {
	Fees       map[string]float64
	DefaultFee float64
}

func (t FeeTable) feeFor(market string) float64 {
	symbol := symbolOf(market)
	if f, ok := t.Fees[symbol]; ok {
		return f
	}
	return t.DefaultFee
}

func symbolOf(market string) string {
	base, quote, ok := cut(market)
	if !ok {
		return market
	}
	return base + quote
}

func cut(market string) (base, quote string, ok bool) {
	for i := 0; i < len(market); i++ {
		if market[i] == '/' {
			return market[:i], market[i+1:], true
		}
	}
	return "", "", false
}

// PositiveCallback is invoked once per chain whose profit is strictly
// positive, in the order the evaluator produced them.
type PositiveCallback func(types.Chain)

// Evaluator is pure with respect to MarketData: it never writes to it, and
// a single instance is safe for sequential (not concurrent) invocation
// from one arbitrage loop goroutine, per spec.
type Evaluator struct {
	md       *marketdata.MarketData
	fees     FeeTable
	logger   *slog.Logger
	onFound  PositiveCallback
}

// New builds an Evaluator over md, pricing legs with fees and invoking
// onPositive for every chain whose profit is strictly positive. onPositive
// may be nil.
func New(md *marketdata.MarketData, fees FeeTable, logger *slog.Logger, onPositive PositiveCallback) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{md: md, fees: fees, logger: logger.With("component", "arbitrage.Evaluator"), onFound: onPositive}
}

// Find evaluates every precomputed triangle touching any of the given
// markets and returns the full batch (positive or not). Cycles with a
// missing ticker on any leg are skipped entirely.
func (e *Evaluator) Find(markets map[string]struct{}) []types.Chain {
	cycles := e.md.FilterCyclesByMarkets(markets)
	chains := make([]types.Chain, 0, len(cycles))
	for _, cycle := range cycles {
		chain, ok := e.evaluateCycle(cycle)
		if !ok {
			continue
		}
		chains = append(chains, chain)
		if chain.Profit > 0 && e.onFound != nil {
			e.onFound(chain)
		}
	}
	return chains
}

// evaluateCycle prices one market cycle, or returns ok=false if any leg's
// ticker is currently unknown.
func (e *Evaluator) evaluateCycle(cycle marketdata.MarketCycle) (types.Chain, bool) {
	initialCoin := initialCoinOf(cycle)

	var steps [3]types.ChainStep
	coin := initialCoin
	for i, market := range cycle {
		ticker, ok := e.md.GetOne(market)
		if !ok {
			return types.Chain{}, false
		}
		step, nextCoin, ok := e.priceStep(market, coin, ticker)
		if !ok {
			return types.Chain{}, false
		}
		steps[i] = step
		coin = nextCoin
	}

	roi := computeROI(steps)
	sizeSteps(&steps)

	profit := steps[0].ProposedVolume() * roi
	usdPrice, usdOK := e.md.GetUsdPrice(initialCoin)
	var profitUSD float64
	if marketdata.IsUSDCoin(initialCoin) {
		profitUSD = profit
	} else if usdOK {
		profitUSD = profit * usdPrice
	}

	chain := types.NewChain(initialCoin, steps, roi, profit, profitUSD, types.NowMs())
	return chain, true
}

// initialCoinOf picks the coin that steps[2] must deliver back to, i.e.
// the coin shared between cycle[2] and cycle[0] that is not shared between
// cycle[0] and cycle[1] — equivalently, the coin absent from cycle[1].
func initialCoinOf(cycle marketdata.MarketCycle) string {
	b0, q0, _ := cut(cycle[0])
	b1, q1, _ := cut(cycle[1])
	for _, c := range []string{b0, q0} {
		if c != b1 && c != q1 {
			return c
		}
	}
	return b0
}

// priceStep derives the ChainStep that spends fromCoin on market, and
// returns the coin it receives in exchange.
func (e *Evaluator) priceStep(market, fromCoin string, t types.Ticker) (types.ChainStep, string, bool) {
	base, quote, ok := cut(market)
	if !ok {
		return types.ChainStep{}, "", false
	}
	fee := e.fees.feeFor(market)

	switch fromCoin {
	case quote:
		// Spending quote to acquire base: BUY.
		if t.BestAsk <= 0 || t.BestAskQty <= 0 {
			return types.ChainStep{}, "", false
		}
		step := types.ChainStep{
			Market: market,
			Side:   types.Buy,
			Price:  t.BestAsk * (1 + fee),
			Volume: t.BestAskQty,
		}
		return step, base, true
	case base:
		// Spending base to acquire quote: SELL.
		if t.BestBid <= 0 || t.BestBidQty <= 0 {
			return types.ChainStep{}, "", false
		}
		price := t.BestBid * (1 - fee)
		step := types.ChainStep{
			Market: market,
			Side:   types.Sell,
			Price:  price,
			Volume: t.BestBidQty * price,
		}
		return step, quote, true
	default:
		return types.ChainStep{}, "", false
	}
}

// computeROI implements roi = 1 - Π f_i where f_i = price for BUY and
// 1/price for SELL.
func computeROI(steps [3]types.ChainStep) float64 {
	product := 1.0
	for _, s := range steps {
		if s.IsBuy() {
			product *= s.Price
		} else {
			product *= 1 / s.Price
		}
	}
	return 1 - product
}

// sizeSteps solves for the maximum executable initialCoin volume across
// all three legs and re-derives each step's Volume in place. If any leg's
// raw Volume is zero, all three are zeroed.
func sizeSteps(steps *[3]types.ChainStep) {
	for _, s := range steps {
		if s.Volume <= 0 {
			steps[0].Volume, steps[1].Volume, steps[2].Volume = 0, 0, 0
			return
		}
	}

	// Project each leg's own proposedVolume (already denominated in the
	// coin it spends) back into the initial coin's unit via the prior
	// legs' price ratios.
	capInInitialCoin := steps[0].ProposedVolume()
	runningFactor := 1.0 // converts an amount of steps[i]'s spending coin into the initial coin
	for i := 1; i < 3; i++ {
		prev := steps[i-1]
		if prev.IsBuy() {
			runningFactor *= prev.Price
		} else {
			runningFactor /= prev.Price
		}
		cap := steps[i].ProposedVolume() * runningFactor
		if cap < capInInitialCoin {
			capInInitialCoin = cap
		}
	}

	// Propagate the binding initial-coin budget forward, re-deriving each
	// step's base-currency Volume from the amount of its own spending coin
	// available at that point in the chain.
	spendAmount := capInInitialCoin
	for i := range steps {
		s := &steps[i]
		if s.IsBuy() {
			s.Volume = spendAmount / s.Price
		} else {
			s.Volume = spendAmount
		}
		// Advance spendAmount to the next step's spending-coin amount,
		// which equals this step's received amount under the new volume.
		if s.IsBuy() {
			spendAmount = s.Volume // receivedVolume == volume for BUY
		} else {
			spendAmount = s.Volume * s.Price // receivedVolume == volume*price for SELL
		}
	}
}
