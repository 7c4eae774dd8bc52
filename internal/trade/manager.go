// Package trade implements the gating and order-construction pipeline that
// turns a batch of evaluated chains into fired orders, grounded on
// original_source's trade.TradeManager: sort, optionally keep only the best
// chain, gate each survivor through a sequence of annotated checks, shrink
// volumes to the available balance, build and round orders, and finally
// shuffle and submit.
package trade

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/patronarby/triarb/internal/balances"
	"github.com/patronarby/triarb/internal/busx"
	"github.com/patronarby/triarb/internal/exchange"
	"github.com/patronarby/triarb/internal/filter"
	"github.com/patronarby/triarb/internal/types"
)

// Config tunes the per-batch behavior. Zero values fall back to
// conservative defaults via withDefaults.
type Config struct {
	ProfitThresholdUSD      float64
	MaxBalanceRatioPerOrder float64
	SortByROI               bool
	FireOnlyTop             bool
}

func (c Config) withDefaults() Config {
	if c.MaxBalanceRatioPerOrder <= 0 {
		c.MaxBalanceRatioPerOrder = 0.3
	}
	return c
}

// Manager is the TradeManager worker: it consumes batches of positive
// chains from the bus, gates and sizes each one, and fires the resulting
// orders, reducing the balances registry optimistically as it goes.
type Manager struct {
	bus         *busx.Bus
	limitations *exchange.Limitations
	registry    *balances.Registry
	dedup       *filter.RecentArbitragersFilter
	cfg         Config
	logger      *slog.Logger
}

// New builds a Manager. dedup may be shared with nothing else; it is owned
// by the Manager for its lifetime.
func New(bus *busx.Bus, limitations *exchange.Limitations, registry *balances.Registry, dedup *filter.RecentArbitragersFilter, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		bus:         bus,
		limitations: limitations,
		registry:    registry,
		dedup:       dedup,
		cfg:         cfg.withDefaults(),
		logger:      logger.With("component", "trade.Manager"),
	}
}

// ProcessBatch runs the full per-batch state machine over a slice of
// evaluated chains, as read from the positiveCycles queue, and forwards
// every chain (commented with its outcome) onto storeCycles. ctx governs
// both order submission and the final telemetry forwarding.
func (m *Manager) ProcessBatch(ctx context.Context, batch []types.Chain) {
	ranked := m.rank(batch)

	for i := range ranked {
		chain := &ranked[i]
		if m.cfg.FireOnlyTop && i > 0 {
			chain.Comment = "Not the top-ranked arbitrage in this batch, skipping"
			continue
		}
		chain.Comment = m.process(ctx, chain)
	}

	for _, chain := range ranked {
		if err := m.bus.PutStoreCycle(ctx, chain); err != nil {
			m.logger.Debug("store cycle dropped", "error", err)
			return
		}
	}
}

func (m *Manager) rank(batch []types.Chain) []types.Chain {
	ranked := make([]types.Chain, len(batch))
	copy(ranked, batch)
	sort.SliceStable(ranked, func(i, j int) bool {
		if m.cfg.SortByROI {
			return ranked[i].ROI > ranked[j].ROI
		}
		return ranked[i].Profit > ranked[j].Profit
	})
	return ranked
}

// process runs the gating chain for a single chain and returns the
// human-readable outcome comment. It never panics: any unexpected failure
// is recovered, logged, and reported as a skip so one bad chain cannot take
// down the whole batch.
func (m *Manager) process(ctx context.Context, chain *types.Chain) (comment string) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("recovered panic while processing chain", "chain", chain.ToChain(), "panic", r)
			comment = fmt.Sprintf("internal error: %v", r)
		}
	}()

	if m.bus.StopTrading() {
		return "Stop trading flag is set, ignoring arbitrage chain"
	}

	if m.dedup.RegisterAndContained(*chain) {
		return "Won't process as considering as duplication (same arbitrage within a short time frame)"
	}

	if chain.ProfitUSD < m.cfg.ProfitThresholdUSD {
		m.logger.Info("profit below threshold, skipping", "chain", chain.ToChain(), "profitUsd", chain.ProfitUSD, "thresholdUsd", m.cfg.ProfitThresholdUSD)
		return "Arbitrage profit is too low"
	}

	if ok, reason := m.allBalancesAboveZero(chain); !ok {
		return reason
	}

	m.shrinkVolumesToBalances(chain)

	orders := m.buildOrders(chain)
	for i := range orders {
		m.limitations.Adjust(&orders[i])
	}

	if ok, reason := m.meetsExchangeFilters(orders); !ok {
		m.logger.Warn("chain rejected by exchange filters", "chain", chain.ToChain(), "reason", reason)
		return reason
	}

	m.submit(ctx, chain, orders)
	return "Orders created successfully"
}

func (m *Manager) allBalancesAboveZero(chain *types.Chain) (bool, string) {
	for _, step := range chain.Steps {
		bal, _ := m.registry.Balance(step.SpendingCoin())
		if bal <= 0 {
			return false, fmt.Sprintf("%s balance is 0 or below: %v", step.SpendingCoin(), bal)
		}
	}
	return true, "All balances are fine"
}

// shrinkVolumesToBalances scales every step's volume down by the same
// factor when any one leg's proposed spend would exceed
// MaxBalanceRatioPerOrder of the available balance of its spending coin,
// preserving the chain's relative proportions across all three legs.
func (m *Manager) shrinkVolumesToBalances(chain *types.Chain) {
	if m.registry.IsEmpty() {
		return
	}

	maxRatio := 0.0
	for _, step := range chain.Steps {
		bal, ok := m.registry.Balance(step.SpendingCoin())
		if !ok || bal == 0 {
			continue
		}
		ratio := step.ProposedVolume() / bal
		if ratio > m.cfg.MaxBalanceRatioPerOrder && ratio > maxRatio {
			maxRatio = ratio
		}
	}

	if maxRatio == 0 {
		return
	}

	shrinkFactor := maxRatio / m.cfg.MaxBalanceRatioPerOrder
	m.logger.Warn("cutting order volumes because of insufficient balance", "chain", chain.ToChain(), "factor", shrinkFactor)
	for i := range chain.Steps {
		chain.Steps[i].Volume /= shrinkFactor
	}
}

func (m *Manager) buildOrders(chain *types.Chain) []types.Order {
	orders := make([]types.Order, 0, len(chain.Steps))
	hash8 := chain.Hash8()
	now := types.NowMs()
	for i, step := range chain.Steps {
		price := breakEvenPrice(step, chain.ROI, len(chain.Steps))
		orders = append(orders, types.Order{
			ClientOrderID:  types.NewClientOrderID(hash8, i+1),
			Side:           step.Side,
			Symbol:         symbolFromMarket(step.Market),
			Quantity:       decimal.NewFromFloat(step.Volume),
			Price:          decimal.NewFromFloat(price),
			CreatedAtMs:    now,
			Status:         types.OrderStatusNew,
			ArbitrageHash8: hash8,
		})
	}
	return orders
}

// breakEvenPrice nudges a leg's price in the direction that would realize
// the chain's measured ROI, split evenly across the chain's legs: up for a
// BUY, down for a SELL, so that executing all legs near these prices
// realizes roughly zero net slippage against the observed opportunity.
func breakEvenPrice(step types.ChainStep, roi float64, numSteps int) float64 {
	priceFactor := roi / float64(numSteps)
	if step.IsBuy() {
		return step.Price * (1 + priceFactor)
	}
	return step.Price * (1 - priceFactor)
}

func symbolFromMarket(market string) string {
	return strings.ReplaceAll(market, "/", "")
}

func (m *Manager) meetsExchangeFilters(orders []types.Order) (bool, string) {
	for _, order := range orders {
		if ok, reason := m.limitations.Check(order); !ok {
			return false, fmt.Sprintf("Order does not meet exchange filters (%s)", reason)
		}
	}
	return true, "Orders meet all filters"
}

// submit shuffles the three orders into a random execution order to spread
// balance contention across leg coins, fires each onto the bus, and
// optimistically reduces the spending coin's balance by what the order
// actually proposes to spend.
func (m *Manager) submit(ctx context.Context, chain *types.Chain, orders []types.Order) {
	shuffled := make([]int, len(orders))
	for i := range shuffled {
		shuffled[i] = i
	}
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	for _, idx := range shuffled {
		order := orders[idx]
		step := chain.Steps[idx]
		if err := m.bus.PutFireOrder(ctx, order); err != nil {
			m.logger.Error("failed to enqueue order", "order", order.ClientOrderID, "error", err)
			continue
		}
		m.registry.Reduce(step.SpendingCoin(), order.ProposedVolumeDecimal().InexactFloat64())
		m.logger.Debug("put order", "order", order.String())
	}
}
