package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/patronarby/triarb/internal/types"
)

// RESTClient is the REST implementation of API, adapted from the
// teacher's Polymarket Client: a resty client with per-category rate
// limiting, automatic retry on 5xx, HMAC request signing, and a DryRun
// switch that fabricates synthetic fills instead of calling the network.
type RESTClient struct {
	http       *resty.Client
	auth       *Auth
	rl         *RateLimiter
	dryRun     bool
	defaultFee float64
	logger     *slog.Logger
}

// RESTClientConfig configures a RESTClient.
type RESTClientConfig struct {
	BaseURL    string
	DryRun     bool
	DefaultFee float64
	Timeout    time.Duration
	RateLimits RateLimits
}

// NewRESTClient builds a RESTClient with retry and rate limiting.
func NewRESTClient(cfg RESTClientConfig, auth *Auth, logger *slog.Logger) *RESTClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &RESTClient{
		http:       httpClient,
		auth:       auth,
		rl:         NewRateLimiter(cfg.RateLimits),
		dryRun:     cfg.DryRun,
		defaultFee: cfg.DefaultFee,
		logger:     logger.With("component", "exchange.RESTClient"),
	}
}

type exchangeInfoSymbol struct {
	Symbol        string `json:"symbol"`
	BaseAsset     string `json:"baseAsset"`
	QuoteAsset    string `json:"quoteAsset"`
	MinPriceStep  string `json:"minPriceStep"`
	MinVolumeStep string `json:"minVolumeStep"`
	MinNotional   string `json:"minNotional"`
}

// ExchangeInfo fetches the instrument list with per-symbol filters.
func (c *RESTClient) ExchangeInfo(ctx context.Context) ([]MarketInfo, error) {
	if err := c.rl.Market.Wait(ctx); err != nil {
		return nil, err
	}
	var symbols []exchangeInfoSymbol
	resp, err := c.http.R().SetContext(ctx).SetResult(&symbols).Get("/exchangeInfo")
	if err != nil {
		return nil, fmt.Errorf("exchange info: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("exchange info: status %d: %s", resp.StatusCode(), resp.String())
	}

	out := make([]MarketInfo, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, MarketInfo{
			Symbol: s.Symbol,
			Market: s.BaseAsset + "/" + s.QuoteAsset,
			Filters: SymbolFilters{
				MinPriceStep:  decimalOrZero(s.MinPriceStep),
				MinVolumeStep: decimalOrZero(s.MinVolumeStep),
				MinNotional:   decimalOrZero(s.MinNotional),
			},
		})
	}
	return out, nil
}

func decimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// AllMarkets returns symbol -> BASE/QUOTE, derived from ExchangeInfo.
func (c *RESTClient) AllMarkets(ctx context.Context) (map[string]string, error) {
	infos, err := c.ExchangeInfo(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(infos))
	for _, i := range infos {
		out[i.Symbol] = i.Market
	}
	return out, nil
}

// SymbolToBaseQuote splits a canonical "BASE/QUOTE" market string.
func (c *RESTClient) SymbolToBaseQuote(symbol string) (base, quote string, ok bool) {
	base, quote, found := strings.Cut(symbol, "/")
	return base, quote, found
}

// TradeFees fetches the taker fee per symbol.
func (c *RESTClient) TradeFees(ctx context.Context) (map[string]float64, error) {
	if err := c.rl.Market.Wait(ctx); err != nil {
		return nil, err
	}
	var raw map[string]string
	resp, err := c.http.R().SetContext(ctx).SetResult(&raw).Get("/tradeFees")
	if err != nil {
		return nil, fmt.Errorf("trade fees: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("trade fees: status %d: %s", resp.StatusCode(), resp.String())
	}
	out := make(map[string]float64, len(raw))
	for symbol, feeStr := range raw {
		d, err := decimal.NewFromString(feeStr)
		if err != nil {
			continue
		}
		f, _ := d.Float64()
		out[symbol] = f
	}
	return out, nil
}

// DefaultTradeFee returns the fee applied to symbols absent from
// TradeFees.
func (c *RESTClient) DefaultTradeFee() float64 {
	return c.defaultFee
}

// Balances fetches the account's coin balances.
func (c *RESTClient) Balances(ctx context.Context) (map[string]float64, error) {
	if err := c.rl.Market.Wait(ctx); err != nil {
		return nil, err
	}
	headers, err := c.auth.RESTHeaders(http.MethodGet, "/balances", "")
	if err != nil {
		return nil, fmt.Errorf("auth headers: %w", err)
	}
	var raw map[string]string
	resp, err := c.http.R().SetContext(ctx).SetHeaders(headers).SetResult(&raw).Get("/balances")
	if err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("balances: status %d: %s", resp.StatusCode(), resp.String())
	}
	out := make(map[string]float64, len(raw))
	for coin, amtStr := range raw {
		d, err := decimal.NewFromString(amtStr)
		if err != nil {
			continue
		}
		f, _ := d.Float64()
		out[coin] = f
	}
	return out, nil
}

// LatestPrices fetches the latest traded price per market.
func (c *RESTClient) LatestPrices(ctx context.Context) (map[string]float64, error) {
	if err := c.rl.Market.Wait(ctx); err != nil {
		return nil, err
	}
	var raw map[string]string
	resp, err := c.http.R().SetContext(ctx).SetResult(&raw).Get("/ticker/price")
	if err != nil {
		return nil, fmt.Errorf("latest prices: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("latest prices: status %d: %s", resp.StatusCode(), resp.String())
	}
	out := make(map[string]float64, len(raw))
	for market, priceStr := range raw {
		d, err := decimal.NewFromString(priceStr)
		if err != nil {
			continue
		}
		f, _ := d.Float64()
		out[market] = f
	}
	return out, nil
}

type orderRequest struct {
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Quantity      string `json:"quantity"`
	Price         string `json:"price,omitempty"`
	Type          string `json:"type"`
	TimeInForce   string `json:"timeInForce,omitempty"`
}

type orderResponse struct {
	ClientOrderID string `json:"clientOrderId"`
	Status        string `json:"status"`
	ExecutedQty   string `json:"executedQty"`
	Price         string `json:"price"`
}

// PutLimitOrder submits a limit order. In dry-run mode it fabricates a
// synthetic fill instead of calling the network, matching the teacher's
// Client.PostOrders dry-run branch.
func (c *RESTClient) PutLimitOrder(ctx context.Context, o types.Order, timeInForce string) (types.Order, error) {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would place limit order", "clientOrderId", o.ClientOrderID, "symbol", o.Symbol)
		o.Status = types.OrderStatusNew
		return o, nil
	}
	if err := c.rl.Order.Wait(ctx); err != nil {
		return o, err
	}

	req := orderRequest{
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          string(o.Side),
		Quantity:      o.Quantity.String(),
		Price:         o.Price.String(),
		Type:          "LIMIT",
		TimeInForce:   timeInForce,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return o, fmt.Errorf("marshal order: %w", err)
	}
	headers, err := c.auth.RESTHeaders(http.MethodPost, "/order", string(body))
	if err != nil {
		return o, fmt.Errorf("auth headers: %w", err)
	}

	var result orderResponse
	resp, err := c.http.R().SetContext(ctx).SetHeaders(headers).SetHeader("X-Request-Id", uuid.New().String()).SetBody(body).SetResult(&result).Post("/order")
	if err != nil {
		o.Status = types.OrderStatusError
		o.Comment = err.Error()
		return o, err
	}
	if resp.StatusCode() != http.StatusOK {
		o.Status = types.OrderStatusError
		o.Comment = resp.String()
		return o, fmt.Errorf("put limit order: status %d: %s", resp.StatusCode(), resp.String())
	}
	o.Status = types.OrderStatus(result.Status)
	o.Raw = resp.String()
	return o, nil
}

// PutMarketOrder submits a market order using the same endpoint without a
// price.
func (c *RESTClient) PutMarketOrder(ctx context.Context, o types.Order) (types.Order, error) {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would place market order", "clientOrderId", o.ClientOrderID, "symbol", o.Symbol)
		o.Status = types.OrderStatusFilled
		return o, nil
	}
	if err := c.rl.Order.Wait(ctx); err != nil {
		return o, err
	}

	req := orderRequest{
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          string(o.Side),
		Quantity:      o.Quantity.String(),
		Type:          "MARKET",
	}
	body, err := json.Marshal(req)
	if err != nil {
		return o, fmt.Errorf("marshal order: %w", err)
	}
	headers, err := c.auth.RESTHeaders(http.MethodPost, "/order", string(body))
	if err != nil {
		return o, fmt.Errorf("auth headers: %w", err)
	}

	var result orderResponse
	resp, err := c.http.R().SetContext(ctx).SetHeaders(headers).SetHeader("X-Request-Id", uuid.New().String()).SetBody(body).SetResult(&result).Post("/order")
	if err != nil {
		o.Status = types.OrderStatusError
		o.Comment = err.Error()
		return o, err
	}
	if resp.StatusCode() != http.StatusOK {
		o.Status = types.OrderStatusError
		o.Comment = resp.String()
		return o, fmt.Errorf("put market order: status %d: %s", resp.StatusCode(), resp.String())
	}
	o.Status = types.OrderStatus(result.Status)
	o.Raw = resp.String()
	return o, nil
}

// OpenOrders fetches the account's currently open orders.
func (c *RESTClient) OpenOrders(ctx context.Context) ([]types.Order, error) {
	if err := c.rl.Market.Wait(ctx); err != nil {
		return nil, err
	}
	headers, err := c.auth.RESTHeaders(http.MethodGet, "/openOrders", "")
	if err != nil {
		return nil, fmt.Errorf("auth headers: %w", err)
	}
	var raw []orderResponse
	resp, err := c.http.R().SetContext(ctx).SetHeaders(headers).SetResult(&raw).Get("/openOrders")
	if err != nil {
		return nil, fmt.Errorf("open orders: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("open orders: status %d: %s", resp.StatusCode(), resp.String())
	}
	out := make([]types.Order, 0, len(raw))
	for _, r := range raw {
		qty, _ := decimal.NewFromString(r.ExecutedQty)
		price, _ := decimal.NewFromString(r.Price)
		out = append(out, types.Order{
			ClientOrderID: r.ClientOrderID,
			Status:        types.OrderStatus(r.Status),
			Quantity:      qty,
			Price:         price,
		})
	}
	return out, nil
}

// CancelOrder cancels one order by clientOrderId.
func (c *RESTClient) CancelOrder(ctx context.Context, symbol, clientOrderID string) error {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would cancel order", "clientOrderId", clientOrderID)
		return nil
	}
	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return err
	}
	headers, err := c.auth.RESTHeaders(http.MethodDelete, "/order", "")
	if err != nil {
		return fmt.Errorf("auth headers: %w", err)
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetQueryParams(map[string]string{"symbol": symbol, "clientOrderId": clientOrderID}).
		Delete("/order")
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("cancel order: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
