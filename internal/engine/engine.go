// Package engine wires every worker in the triangular-arbitrage pipeline
// into a single lifecycle, grounded on the teacher's Engine: one
// context.Context/cancel pair, one sync.WaitGroup, one goroutine per
// worker, New constructs and Stop tears down in reverse dependency order.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/patronarby/triarb/internal/arbitrage"
	"github.com/patronarby/triarb/internal/balances"
	"github.com/patronarby/triarb/internal/busx"
	"github.com/patronarby/triarb/internal/config"
	"github.com/patronarby/triarb/internal/exchange"
	"github.com/patronarby/triarb/internal/execution"
	"github.com/patronarby/triarb/internal/filter"
	"github.com/patronarby/triarb/internal/marketdata"
	"github.com/patronarby/triarb/internal/store"
	"github.com/patronarby/triarb/internal/telemetry"
	"github.com/patronarby/triarb/internal/trade"
)

// Engine owns every long-lived worker and the bus that connects them.
type Engine struct {
	cfg config.Config

	bus         *busx.Bus
	api         exchange.API
	md          *marketdata.MarketData
	evaluator   *arbitrage.Evaluator
	registry    *balances.Registry
	checker     *balances.Checker
	dedup       *filter.RecentArbitragersFilter
	tradeMgr    *trade.Manager
	limitations *exchange.Limitations

	tickerFeed *exchange.TickerFeed
	userFeed   *exchange.UserFeed

	orderDAO store.OrderDAO
	chainDAO store.ChainDAO

	arbLoop      *ArbitrageLoop
	tradeCons    *tradeConsumer
	balUpdater   *balanceUpdater
	statusSync   *orderStatusSync
	cancelator   *execution.Cancelator
	chainDrainer *telemetry.ChainTelemetryDrainer
	allDrainer   *telemetry.AllCyclesDrainer
	telemetrySrv *telemetry.Server

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs and wires every component from cfg. It contacts the
// exchange once (ExchangeInfo, AllMarkets, TradeFees) to build the static
// market index, the same way the teacher's engine derives API credentials
// before starting any worker.
func New(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "engine")

	auth := exchange.NewAuth(exchange.Credentials{APIKey: cfg.Exchange.APIKey, Secret: cfg.Exchange.APISecret})
	api := exchange.NewRESTClient(exchange.RESTClientConfig{
		BaseURL:    cfg.Exchange.RESTBaseURL,
		DryRun:     cfg.DryRun,
		DefaultFee: cfg.Exchange.DefaultFee,
		Timeout:    cfg.Exchange.Timeout,
		RateLimits: exchange.RateLimits{
			OrderBurst:      cfg.Exchange.RateLimits.OrderBurst,
			OrderPerSecond:  cfg.Exchange.RateLimits.OrderPerSecond,
			CancelBurst:     cfg.Exchange.RateLimits.CancelBurst,
			CancelPerSecond: cfg.Exchange.RateLimits.CancelPerSecond,
			MarketBurst:     cfg.Exchange.RateLimits.MarketBurst,
			MarketPerSecond: cfg.Exchange.RateLimits.MarketPerSecond,
		},
	}, auth, logger)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), cfg.Exchange.Timeout)
	defer bootCancel()

	marketInfos, err := api.ExchangeInfo(bootCtx)
	if err != nil {
		return nil, fmt.Errorf("fetch exchange info: %w", err)
	}
	symbolToMarket, err := api.AllMarkets(bootCtx)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	feeBySymbol, err := api.TradeFees(bootCtx)
	if err != nil {
		return nil, fmt.Errorf("fetch trade fees: %w", err)
	}

	filters := make(map[string]exchange.SymbolFilters, len(marketInfos))
	for _, info := range marketInfos {
		filters[info.Symbol] = info.Filters
	}

	md := marketdata.New(symbolToMarket, cfg.Arbitrage.Coins)
	limitations := exchange.NewLimitations(filters)
	fees := arbitrage.FeeTable{Fees: feeBySymbol, DefaultFee: api.DefaultTradeFee()}
	evaluator := arbitrage.New(md, fees, logger, nil)

	bus := busx.New(busx.Config{})
	registry := balances.NewRegistry(balances.DefaultUSDCoin, logger)
	dedup := filter.New(cfg.Arbitrage.DuplicationTimeframe)
	checker := balances.NewChecker(registry, bus, cfg.Arbitrage.Coins, cfg.Risk.StopLossRatio, cfg.Risk.BalanceCheckerPeriod, logger)

	tradeMgr := trade.New(bus, limitations, registry, dedup, trade.Config{
		ProfitThresholdUSD:      cfg.Trade.ProfitThresholdUSD,
		MaxBalanceRatioPerOrder: cfg.Trade.MaxBalanceRatioPerOrder,
		SortByROI:               cfg.Trade.SortArbitrageByROI,
		FireOnlyTop:             cfg.Trade.FireOnlyTopArbitrage,
	}, logger)

	tickerFeed := exchange.NewTickerFeed(cfg.Exchange.WSMarketURL, symbolToMarket, logger)
	userFeed := exchange.NewUserFeed(cfg.Exchange.WSUserURL, auth, logger)

	orderDAO, chainDAO, err := openStores(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	cancelator := execution.NewCancelator(api, cfg.Trade.CancelatorOrderTTL, cfg.Trade.CancelatorRunPeriod, logger)

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		cfg:          cfg,
		bus:          bus,
		api:          api,
		md:           md,
		evaluator:    evaluator,
		registry:     registry,
		checker:      checker,
		dedup:        dedup,
		tradeMgr:     tradeMgr,
		limitations:  limitations,
		tickerFeed:   tickerFeed,
		userFeed:     userFeed,
		orderDAO:     orderDAO,
		chainDAO:     chainDAO,
		arbLoop:      NewArbitrageLoop(bus, evaluator, logger),
		tradeCons:    newTradeConsumer(bus, tradeMgr, logger),
		balUpdater:   newBalanceUpdater(api, registry, cfg.Risk.BalanceUpdaterPeriod, logger),
		statusSync:   newOrderStatusSync(userFeed.OrderEvents(), orderDAO, logger),
		cancelator:   cancelator,
		chainDrainer: telemetry.NewChainTelemetryDrainer(bus, chainDAO, cfg.Telemetry.MaxBatchSize, logger),
		allDrainer:   telemetry.NewAllCyclesDrainer(bus, logger),
		telemetrySrv: telemetry.NewServer(cfg.Telemetry.ListenAddr, bus, logger),
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

func openStores(cfg config.StoreConfig) (store.OrderDAO, store.ChainDAO, error) {
	switch cfg.Backend {
	case "sqlite":
		db, err := store.OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store.NewGormOrderStore(db), store.NewGormChainStore(db), nil
	default:
		orders, err := store.OpenJSONFileOrderStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		chains, err := store.OpenJSONFileChainStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return orders, chains, nil
	}
}

// Start launches every worker and returns immediately.
func (e *Engine) Start() error {
	e.spawn(func(ctx context.Context) {
		if err := e.tickerFeed.Run(ctx); err != nil && ctx.Err() == nil {
			e.logger.Error("ticker feed exited", "error", err)
		}
	})
	e.spawn(func(ctx context.Context) {
		if err := e.userFeed.Run(ctx); err != nil && ctx.Err() == nil {
			e.logger.Error("user feed exited", "error", err)
		}
	})
	e.spawn(e.dispatchTickers)
	e.spawn(e.arbLoop.Run)
	e.spawn(e.tradeCons.Run)
	e.spawn(e.balUpdater.Run)
	e.spawn(e.checker.Run)
	e.spawn(e.statusSync.Run)
	e.spawn(e.cancelator.Run)
	e.spawn(e.chainDrainer.Run)
	e.spawn(e.allDrainer.Run)
	e.spawn(func(ctx context.Context) {
		n := e.cfg.Trade.OrderExecutors
		execution.RunPool(ctx, n, e.bus, e.api, e.orderDAO, e.cfg.Trade.LimitOrderTimeInForce, e.logger)
	})

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.telemetrySrv.Start(); err != nil {
			e.logger.Error("telemetry server exited", "error", err)
		}
	}()

	return nil
}

// spawn runs fn in its own goroutine tracked by the engine's WaitGroup,
// passing the engine's own context.
func (e *Engine) spawn(fn func(ctx context.Context)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn(e.ctx)
	}()
}

// dispatchTickers feeds each tick into the market-data cache and the bus,
// the Bus.tickers leg of the pipeline (exchange listener -> Bus.tickers).
func (e *Engine) dispatchTickers(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-e.tickerFeed.Tickers():
			if !ok {
				return
			}
			e.md.Put(t)
			if err := e.bus.PutTicker(ctx, t); err != nil {
				e.logger.Debug("ticker dropped from bus", "market", t.Market, "error", err)
			}
		}
	}
}

// Stop cancels every worker's context, waits for them to exit, and closes
// the telemetry server.
func (e *Engine) Stop() {
	e.logger.Info("shutting down...")
	e.cancel()

	if err := e.telemetrySrv.Stop(); err != nil {
		e.logger.Error("failed to stop telemetry server", "error", err)
	}

	e.wg.Wait()
	e.logger.Info("shutdown complete")
}

// Bus exposes the underlying bus for callers that need to inject ticks or
// inspect queues.
func (e *Engine) Bus() *busx.Bus { return e.bus }
