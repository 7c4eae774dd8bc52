// Package types defines the shared vocabulary used across every layer of
// the arbitrage engine: tickers, chain steps, chains, and orders. It has no
// dependency on any internal package so it can be imported from anywhere.
package types

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a single leg of a chain, or of an exchange order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Ticker is an immutable best-bid/best-ask snapshot for one market.
// Market is canonicalized as "BASE/QUOTE".
type Ticker struct {
	Market        string
	BestBid       float64
	BestBidQty    float64
	BestAsk       float64
	BestAskQty    float64
	ObservedAtMs  int64
}

// Base returns the market's base coin (the left side of "BASE/QUOTE").
func (t Ticker) Base() string {
	b, _, _ := strings.Cut(t.Market, "/")
	return b
}

// Quote returns the market's quote coin (the right side of "BASE/QUOTE").
func (t Ticker) Quote() string {
	_, q, _ := strings.Cut(t.Market, "/")
	return q
}

// ChainStep is one leg of a triangular chain. Price is always quoted in the
// market's own quote currency; Volume is always denominated in the market's
// base currency, regardless of Side.
type ChainStep struct {
	Market string
	Side   Side
	Price  float64
	Volume float64
}

// IsBuy reports whether the step acquires base currency.
func (s ChainStep) IsBuy() bool {
	return s.Side == Buy
}

// SpendingCoin is the coin this step actually debits from the portfolio:
// quote on a BUY (we pay quote to receive base), base on a SELL.
func (s ChainStep) SpendingCoin() string {
	base, quote, ok := strings.Cut(s.Market, "/")
	if !ok {
		return ""
	}
	if s.IsBuy() {
		return quote
	}
	return base
}

// ReceivedCoin is the coin this step credits to the portfolio.
func (s ChainStep) ReceivedCoin() string {
	base, quote, ok := strings.Cut(s.Market, "/")
	if !ok {
		return ""
	}
	if s.IsBuy() {
		return base
	}
	return quote
}

// ProposedVolume is the volume of the coin this step actually spends:
// volume*price on a BUY (we spend that much quote), volume on a SELL.
func (s ChainStep) ProposedVolume() float64 {
	if s.IsBuy() {
		return s.Volume * s.Price
	}
	return s.Volume
}

// ReceivedVolume is the volume of the coin this step actually acquires.
func (s ChainStep) ReceivedVolume() float64 {
	if s.IsBuy() {
		return s.Volume
	}
	return s.Volume * s.Price
}

func (s ChainStep) String() string {
	return fmt.Sprintf("[%s %v %s @ %v]", s.Side, s.Volume, s.Market, s.Price)
}

// Chain is a single evaluated triangular cycle A->B->C->A, carrying exactly
// three steps plus the derived profitability figures.
type Chain struct {
	InitialCoin string
	Steps       [3]ChainStep
	ROI         float64
	Profit      float64
	ProfitUSD   float64
	TimeMs      int64
	Comment     string
}

// NewChain builds a chain stamped with the caller-supplied nowMs (epoch
// milliseconds).
func NewChain(initialCoin string, steps [3]ChainStep, roi, profit, profitUSD float64, nowMs int64) Chain {
	return Chain{
		InitialCoin: initialCoin,
		Steps:       steps,
		ROI:         roi,
		Profit:      profit,
		ProfitUSD:   profitUSD,
		TimeMs:      nowMs,
	}
}

// MarketsSequence is the ordered list of markets this chain trades through,
// e.g. "BTCUSDT-ETHBTC-ETHUSDT". It is the stable part of the chain's
// identity: two observations of the same cycle (even at different ROI or
// time) share the same MarketsSequence.
func (c Chain) MarketsSequence() string {
	parts := make([]string, len(c.Steps))
	for i, s := range c.Steps {
		parts[i] = strings.ReplaceAll(s.Market, "/", "")
	}
	return strings.Join(parts, "-")
}

// Hash8 is the chain's stable 8-decimal-digit identity, derived from its
// market sequence alone (not ROI/time), so that repeated observations of
// the same cycle always produce the same clientOrderId prefix.
func (c Chain) Hash8() uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(c.MarketsSequence()))
	return h.Sum32() % 100_000_000
}

// UID is Hash8 plus TimeMs, making each observation of a chain unique even
// when the same cycle recurs.
func (c Chain) UID() string {
	return fmt.Sprintf("%d_%d", c.Hash8(), c.TimeMs)
}

// ToChain renders the cycle as "[A/B -> B/C -> C/A]", mirroring the
// original source's AChain.to_chain for log readability.
func (c Chain) ToChain() string {
	parts := make([]string, len(c.Steps))
	for i, s := range c.Steps {
		parts[i] = s.Market
	}
	return "[" + strings.Join(parts, " -> ") + "]"
}

// IsForSameChain reports whether two chains trade through the same ordered
// market sequence, ignoring ROI/profit/time.
func (c Chain) IsForSameChain(other Chain) bool {
	return c.MarketsSequence() == other.MarketsSequence()
}

func (c Chain) String() string {
	return fmt.Sprintf("%s, roi=%.4f%%, profit=%.7f ($%.7f)", c.ToChain(), c.ROI*100, c.Profit, c.ProfitUSD)
}

// OrderStatus is the lifecycle state of a submitted order.
type OrderStatus string

const (
	OrderStatusNew     OrderStatus = "NEW"
	OrderStatusFilled  OrderStatus = "FILLED"
	OrderStatusPartial OrderStatus = "PARTIALLY_FILLED"
	OrderStatusCanceled OrderStatus = "CANCELED"
	OrderStatusError   OrderStatus = "ERROR"
)

// clientOrderIDSep separates a chain's hash8 prefix from its 1-based leg
// index in an order's ClientOrderID, e.g. "12345678_order_2".
const clientOrderIDSep = "_order_"

// Order is one leg of a fired chain. ClientOrderID encodes Hash8 as the
// prefix before the literal separator "_order_" then the 1-based step
// index, which is how downstream exchange events get correlated back to
// the chain that produced them.
type Order struct {
	ClientOrderID  string
	Side           Side
	Symbol         string
	Quantity       decimal.Decimal
	Price          decimal.Decimal
	CreatedAtMs    int64
	FiredAtMs      int64
	Status         OrderStatus
	ArbitrageHash8 uint32
	Comment        string
	Raw            string
}

// NewClientOrderID builds the canonical "<hash8>_order_<legIndex>" id.
// legIndex is 1-based per spec.
func NewClientOrderID(hash8 uint32, legIndex int) string {
	return fmt.Sprintf("%d%s%d", hash8, clientOrderIDSep, legIndex)
}

// ParseClientOrderID extracts hash8 and the 1-based leg index from a
// ClientOrderID built by NewClientOrderID. ok is false if the id does not
// match the "<hash8>_order_<n>" shape.
func ParseClientOrderID(id string) (hash8 uint32, legIndex int, ok bool) {
	prefix, suffix, found := strings.Cut(id, clientOrderIDSep)
	if !found {
		return 0, 0, false
	}
	var h uint64
	if _, err := fmt.Sscanf(prefix, "%d", &h); err != nil {
		return 0, 0, false
	}
	var n int
	if _, err := fmt.Sscanf(suffix, "%d", &n); err != nil {
		return 0, 0, false
	}
	if n < 1 || n > 3 {
		return 0, 0, false
	}
	return uint32(h), n, true
}

// ProposedVolumeDecimal mirrors ChainStep.ProposedVolume for the rounded,
// decimal-typed Order, used when reducing a balance by exactly what an
// adjusted order will spend.
func (o Order) ProposedVolumeDecimal() decimal.Decimal {
	if o.Side == Buy {
		return o.Quantity.Mul(o.Price)
	}
	return o.Quantity
}

func (o Order) String() string {
	return fmt.Sprintf("Order{%s %s %s qty=%s price=%s status=%s}",
		o.ClientOrderID, o.Side, o.Symbol, o.Quantity.String(), o.Price.String(), o.Status)
}

// OrderStatusEvent is a demultiplexed own-order event from the exchange's
// user-data feed, keyed by ClientOrderID for correlation with a Chain.
type OrderStatusEvent struct {
	ClientOrderID string
	ExchangeOrderID string
	Status        OrderStatus
	FilledQty     decimal.Decimal
	AvgPrice      decimal.Decimal
	TransactionTimeMs int64
	Raw           string
}

// NowMs returns the current wall-clock time in epoch milliseconds, matching
// the original source's current_time_ms().
func NowMs() int64 {
	return time.Now().UnixMilli()
}
