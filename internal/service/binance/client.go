package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"PairWatch/internal/domain/models"
	drepo "PairWatch/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a MarketStream backed by the Binance combined trade
// stream. One connection carries every configured symbol.
type Client struct {
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// New creates a Binance MarketStream for the given symbols.
func New(websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration) drepo.MarketStream {
	return &Client{
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// streamPath builds the combined-stream query: one @trade stream per
// symbol, lowercase as Binance requires.
func (c *Client) streamPath() string {
	streams := make([]string, len(c.symbols))
	for i, s := range c.symbols {
		streams[i] = strings.ToLower(s) + "@trade"
	}
	return "/stream?streams=" + strings.Join(streams, "/")
}

// Connect establishes the WebSocket connection and implicitly
// subscribes: the combined stream URL carries the symbol list, so a
// reconnect resubscribes automatically.
func (c *Client) Connect(ctx context.Context) error {
	u := strings.TrimSuffix(c.websocketURL, "/") + c.streamPath()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	return nil
}

// Subscribe is a no-op for the combined stream; the subscription rides
// on the connection URL. Kept to satisfy MarketStream.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("binance not connected")
	}
	return nil
}

// combined stream frame: {"stream":"btcusdt@trade","data":{...}}
type wsFrame struct {
	Stream string  `json:"stream"`
	Data   wsTrade `json:"data"`
}

// trade event fields; price and quantity arrive as strings.
type wsTrade struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"` // ms
}

// Read streams ticks and errors. The tick channel drops on
// backpressure; a dropped tick is bridged later by the resampler's
// synthetic gap fill.
func (c *Client) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	ticks := make(chan *models.Tick, 1024)
	errs := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn == nil {
					errs <- fmt.Errorf("binance conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("binance read: %w", err)
					return
				}
				tick, ok := parseTradeFrame(b)
				if !ok {
					continue
				}
				select {
				case ticks <- tick:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return ticks, errs
}

func parseTradeFrame(b []byte) (*models.Tick, bool) {
	var f wsFrame
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, false
	}
	if f.Data.EventType != "trade" {
		return nil, false
	}
	price, err := strconv.ParseFloat(f.Data.Price, 64)
	if err != nil {
		return nil, false
	}
	qty, err := strconv.ParseFloat(f.Data.Quantity, 64)
	if err != nil {
		return nil, false
	}
	return &models.Tick{
		Symbol:    f.Data.Symbol,
		Timestamp: f.Data.TradeTime,
		Price:     price,
		Volume:    qty,
	}, true
}

// Reconnect closes and redials after the configured delay. The combined
// stream URL restores the subscriptions.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
