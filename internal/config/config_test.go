package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testYAML = `
exchange:
  rest_base_url: https://api.example.com
  ws_market_url: wss://stream.example.com/market
  ws_user_url: wss://stream.example.com/user
arbitrage:
  coins: [BTC, ETH, USDT]
trade:
  profit_threshold_usd: 1.5
  max_balance_ratio_per_order: 0.25
  limit_order_time_in_force: IOC
risk:
  stop_loss_ratio: 0.2
store:
  backend: sqlite
  dsn: arby.db
`

func writeTestConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadParsesDeclaredFields(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeTestConfig(t, testYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Exchange.RESTBaseURL != "https://api.example.com" {
		t.Errorf("RESTBaseURL = %q", cfg.Exchange.RESTBaseURL)
	}
	if len(cfg.Arbitrage.Coins) != 3 {
		t.Errorf("Coins = %v, want 3 entries", cfg.Arbitrage.Coins)
	}
	if cfg.Trade.LimitOrderTimeInForce != "IOC" {
		t.Errorf("LimitOrderTimeInForce = %q, want IOC", cfg.Trade.LimitOrderTimeInForce)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("Backend = %q, want sqlite", cfg.Store.Backend)
	}
}

func TestLoadAppliesDefaultsForUnsetFields(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeTestConfig(t, testYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Trade.OrderExecutors != 1 {
		t.Errorf("OrderExecutors default = %d, want 1", cfg.Trade.OrderExecutors)
	}
	if cfg.Trade.CancelatorOrderTTL <= 0 {
		t.Error("CancelatorOrderTTL should have a non-zero default")
	}
	if cfg.Telemetry.MaxBatchSize != 100 {
		t.Errorf("MaxBatchSize default = %d, want 100", cfg.Telemetry.MaxBatchSize)
	}
}

func TestLoadEnvOverridesAPICredentials(t *testing.T) {
	t.Setenv("ARBY_API_KEY", "env-key")
	t.Setenv("ARBY_API_SECRET", "env-secret")

	cfg, err := Load(writeTestConfig(t, testYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Exchange.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env override", cfg.Exchange.APIKey)
	}
	if cfg.Exchange.APISecret != "env-secret" {
		t.Errorf("APISecret = %q, want env override", cfg.Exchange.APISecret)
	}
}

func TestValidateRejectsMissingRESTBaseURL(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.withDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for a missing exchange.rest_base_url")
	}
}

func TestValidateRejectsTooFewCoins(t *testing.T) {
	t.Parallel()

	cfg := &Config{Exchange: ExchangeConfig{RESTBaseURL: "https://x"}, Arbitrage: ArbitrageConfig{Coins: []string{"BTC", "ETH"}}}
	cfg.withDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error when fewer than 3 coins are configured")
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeTestConfig(t, testYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate returned an error for a well-formed config: %v", err)
	}
}
