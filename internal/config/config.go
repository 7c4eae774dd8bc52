// Package config defines all configuration for the arbitrage engine.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via ARBY_* environment variables, matching
// the teacher's viper-based Load/Validate pattern.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun    bool            `mapstructure:"dry_run"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Trade     TradeConfig     `mapstructure:"trade"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Store     StoreConfig     `mapstructure:"store"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ExchangeConfig holds connection and auth details for the exchange.
type ExchangeConfig struct {
	RESTBaseURL string          `mapstructure:"rest_base_url"`
	WSMarketURL string          `mapstructure:"ws_market_url"`
	WSUserURL   string          `mapstructure:"ws_user_url"`
	APIKey      string          `mapstructure:"api_key"`
	APISecret   string          `mapstructure:"api_secret"`
	DefaultFee  float64         `mapstructure:"default_fee"`
	Timeout     time.Duration   `mapstructure:"timeout"`
	RateLimits  RateLimitConfig `mapstructure:"rate_limits"`
}

// RateLimitConfig carries the exchange's own published per-category REST
// limits (burst capacity and sustained requests/sec). Left zero, each
// category falls back to a conservative default in exchange.NewRateLimiter.
type RateLimitConfig struct {
	OrderBurst      float64 `mapstructure:"order_burst"`
	OrderPerSecond  float64 `mapstructure:"order_per_second"`
	CancelBurst     float64 `mapstructure:"cancel_burst"`
	CancelPerSecond float64 `mapstructure:"cancel_per_second"`
	MarketBurst     float64 `mapstructure:"market_burst"`
	MarketPerSecond float64 `mapstructure:"market_per_second"`
}

// ArbitrageConfig tunes triangle discovery and cycle evaluation.
//
//   - Coins: the allowlist of coins eligible to anchor or appear in a
//     triangular cycle (spec's ARBITRAGE_COINS).
//   - DuplicationTimeframe: the RecentArbitragersFilter's TTL
//     (ARBITRAGE_DUPLICATION_TIMEFRAME_MS).
//   - FireChainASAP: loaded from config (ARBITRAGE_FIRE_CHAIN_ASAP) but not
//     read by any component; the ArbitrageLoop always forwards positive
//     chains per ticker, and there is no batching mode for it to switch.
type ArbitrageConfig struct {
	Coins                []string      `mapstructure:"coins"`
	DuplicationTimeframe time.Duration `mapstructure:"duplication_timeframe"`
	FireChainASAP        bool          `mapstructure:"fire_chain_asap"`
}

// TradeConfig tunes the TradeManager and OrderExecutor pool.
type TradeConfig struct {
	ProfitThresholdUSD      float64       `mapstructure:"profit_threshold_usd"`
	MaxBalanceRatioPerOrder float64       `mapstructure:"max_balance_ratio_per_order"`
	SortArbitrageByROI      bool          `mapstructure:"sort_arbitrage_by_roi"`
	FireOnlyTopArbitrage    bool          `mapstructure:"fire_only_top_arbitrage"`
	OrderExecutors          int           `mapstructure:"order_executors"`
	LimitOrderTimeInForce   string        `mapstructure:"limit_order_time_in_force"`
	CancelatorOrderTTL      time.Duration `mapstructure:"cancelator_order_ttl"`
	CancelatorRunPeriod     time.Duration `mapstructure:"cancelator_run_period"`
}

// RiskConfig controls portfolio-level monitoring.
//
//   - StopLossRatio: fraction of the latched initial portfolio value at or
//     below which StopTrading engages.
//   - BalanceUpdaterPeriod, BalanceCheckerPeriod: polling periods for the
//     two balance workers.
type RiskConfig struct {
	StopLossRatio        float64       `mapstructure:"stop_loss_ratio"`
	BalanceUpdaterPeriod time.Duration `mapstructure:"balance_updater_period"`
	BalanceCheckerPeriod time.Duration `mapstructure:"balance_checker_period"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // "json" or "sqlite"
	DataDir string `mapstructure:"data_dir"`
	DSN     string `mapstructure:"dsn"`
}

// TelemetryConfig tunes the telemetry drainers and status server.
type TelemetryConfig struct {
	MaxBatchSize int    `mapstructure:"max_batch_size"`
	ListenAddr   string `mapstructure:"listen_addr"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: ARBY_API_KEY, ARBY_API_SECRET.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ARBY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("ARBY_API_KEY"); key != "" {
		cfg.Exchange.APIKey = key
	}
	if secret := os.Getenv("ARBY_API_SECRET"); secret != "" {
		cfg.Exchange.APISecret = secret
	}
	if os.Getenv("ARBY_DRY_RUN") == "true" || os.Getenv("ARBY_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	cfg.withDefaults()

	return &cfg, nil
}

func (c *Config) withDefaults() {
	if c.Exchange.Timeout <= 0 {
		c.Exchange.Timeout = 10 * time.Second
	}
	if c.Arbitrage.DuplicationTimeframe <= 0 {
		c.Arbitrage.DuplicationTimeframe = 5 * time.Second
	}
	if c.Trade.MaxBalanceRatioPerOrder <= 0 {
		c.Trade.MaxBalanceRatioPerOrder = 0.3
	}
	if c.Trade.OrderExecutors <= 0 {
		c.Trade.OrderExecutors = 1
	}
	if c.Trade.LimitOrderTimeInForce == "" {
		c.Trade.LimitOrderTimeInForce = "GTC"
	}
	if c.Trade.CancelatorOrderTTL <= 0 {
		c.Trade.CancelatorOrderTTL = 30 * time.Second
	}
	if c.Trade.CancelatorRunPeriod <= 0 {
		c.Trade.CancelatorRunPeriod = 5 * time.Second
	}
	if c.Risk.StopLossRatio <= 0 {
		c.Risk.StopLossRatio = 0.1
	}
	if c.Risk.BalanceUpdaterPeriod <= 0 {
		c.Risk.BalanceUpdaterPeriod = 30 * time.Second
	}
	if c.Risk.BalanceCheckerPeriod <= 0 {
		c.Risk.BalanceCheckerPeriod = 60 * time.Second
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "json"
	}
	if c.Store.DataDir == "" {
		c.Store.DataDir = "./data"
	}
	if c.Telemetry.MaxBatchSize <= 0 {
		c.Telemetry.MaxBatchSize = 100
	}
	if c.Telemetry.ListenAddr == "" {
		c.Telemetry.ListenAddr = ":9090"
	}
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Exchange.RESTBaseURL == "" {
		return fmt.Errorf("exchange.rest_base_url is required")
	}
	if len(c.Arbitrage.Coins) < 3 {
		return fmt.Errorf("arbitrage.coins must list at least 3 coins to form a triangle")
	}
	if c.Trade.MaxBalanceRatioPerOrder <= 0 || c.Trade.MaxBalanceRatioPerOrder > 1 {
		return fmt.Errorf("trade.max_balance_ratio_per_order must be in (0, 1]")
	}
	if c.Trade.OrderExecutors <= 0 {
		return fmt.Errorf("trade.order_executors must be > 0")
	}
	switch c.Trade.LimitOrderTimeInForce {
	case "GTC", "IOC", "FOK", "GTX":
	default:
		return fmt.Errorf("trade.limit_order_time_in_force must be one of GTC, IOC, FOK, GTX")
	}
	if c.Risk.StopLossRatio <= 0 || c.Risk.StopLossRatio >= 1 {
		return fmt.Errorf("risk.stop_loss_ratio must be in (0, 1)")
	}
	switch c.Store.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("store.backend must be one of json, sqlite")
	}
	return nil
}
