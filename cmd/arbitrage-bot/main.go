// Command arbitrage-bot runs the triangular-arbitrage engine end to end:
// book-top ingestion, cycle evaluation, balance-aware sizing, order
// execution, persistence, and Prometheus telemetry.
//
// Architecture:
//
//	internal/engine        — orchestrator: wires every worker and owns the lifecycle
//	internal/marketdata    — book-top cache and precomputed triangle index
//	internal/arbitrage     — cycle evaluation and sizing
//	internal/busx          — bounded inter-worker queues
//	internal/balances      — portfolio tracking and stop-loss
//	internal/filter        — duplicate-arbitrage suppression
//	internal/trade         — batch policy, sizing, order construction
//	internal/execution     — order placement workers and TTL cancellation
//	internal/exchange      — REST/websocket exchange client
//	internal/store         — order/chain persistence (JSON files or sqlite)
//	internal/telemetry     — Prometheus metrics and /healthz
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/patronarby/triarb/internal/config"
	"github.com/patronarby/triarb/internal/engine"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("ARBY_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	eng, err := engine.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	if err := eng.Start(); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE - no real orders will be placed")
	}

	logger.Info("arbitrage bot started",
		"coins", cfg.Arbitrage.Coins,
		"profit_threshold_usd", cfg.Trade.ProfitThresholdUSD,
		"order_executors", cfg.Trade.OrderExecutors,
		"store_backend", cfg.Store.Backend,
		"dry_run", cfg.DryRun,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	eng.Stop()
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
