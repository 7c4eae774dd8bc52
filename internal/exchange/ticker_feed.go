// ticker_feed.go implements the book-top websocket feed, adapted from the
// teacher's WSFeed: auto-reconnect with exponential backoff (1s -> 30s), a
// read deadline, and a bounded output channel — generalized from
// Polymarket's book/price_change events to a flat best-bid/best-ask tick.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/patronarby/triarb/internal/types"
)

const (
	pingInterval     = 50 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
	tickerBufferSize = 4096
)

// wireTicker is the wire shape of one book-top event.
type wireTicker struct {
	Symbol     string `json:"symbol"`
	BestBid    string `json:"bestBid"`
	BestBidQty string `json:"bestBidQty"`
	BestAsk    string `json:"bestAsk"`
	BestAskQty string `json:"bestAskQty"`
}

// TickerFeed maintains the public book-top websocket connection and
// republishes every tick, translated to a canonical market string via
// symbolToMarket, onto a bounded channel of types.Ticker.
type TickerFeed struct {
	url            string
	symbolToMarket map[string]string

	connMu sync.Mutex
	conn   *websocket.Conn

	out    chan types.Ticker
	logger *slog.Logger
}

// NewTickerFeed builds a TickerFeed. symbolToMarket resolves each wire
// symbol to its canonical BASE/QUOTE market string.
func NewTickerFeed(wsURL string, symbolToMarket map[string]string, logger *slog.Logger) *TickerFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &TickerFeed{
		url:            wsURL,
		symbolToMarket: symbolToMarket,
		out:            make(chan types.Ticker, tickerBufferSize),
		logger:         logger.With("component", "exchange.TickerFeed"),
	}
}

// Tickers returns the read-only output channel.
func (f *TickerFeed) Tickers() <-chan types.Ticker {
	return f.out
}

// Run connects and maintains the websocket connection with auto-reconnect
// until ctx is cancelled.
func (f *TickerFeed) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("ticker feed disconnected, reconnecting", "error", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

func (f *TickerFeed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	f.logger.Info("ticker feed connected")

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f.dispatch(msg)
	}
}

func (f *TickerFeed) dispatch(data []byte) {
	var wt wireTicker
	if err := json.Unmarshal(data, &wt); err != nil {
		f.logger.Debug("ignoring non-ticker ws message", "data", string(data))
		return
	}
	market, known := f.symbolToMarket[wt.Symbol]
	if !known {
		return
	}
	t := types.Ticker{
		Market:       market,
		BestBid:      parseFloatOr(wt.BestBid, 0),
		BestBidQty:   parseFloatOr(wt.BestBidQty, 0),
		BestAsk:      parseFloatOr(wt.BestAsk, 0),
		BestAskQty:   parseFloatOr(wt.BestAskQty, 0),
		ObservedAtMs: types.NowMs(),
	}
	select {
	case f.out <- t:
	default:
		f.logger.Warn("ticker channel full, dropping tick", "market", market)
	}
}

func parseFloatOr(s string, fallback float64) float64 {
	var v float64
	if _, err := fmt.Sscanf(s, "%g", &v); err != nil {
		return fallback
	}
	return v
}

func (f *TickerFeed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.connMu.Lock()
			conn := f.conn
			f.connMu.Unlock()
			if conn == nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				f.logger.Warn("ticker feed ping failed", "error", err)
				return
			}
		}
	}
}

// Close gracefully closes the connection.
func (f *TickerFeed) Close() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}
