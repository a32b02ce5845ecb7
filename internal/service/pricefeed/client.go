package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"SigCouncil/internal/domain/models"
	domsvc "SigCouncil/internal/domain/service"
	"SigCouncil/pkg/logger"
)

// Client streams live trade prints over WebSocket and keeps the last seen
// price per asset. It backs both the PriceSource collaborator and the outcome
// monitor's tick stream.
type Client struct {
	apiKey         string
	websocketURL   string
	assets         []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	last      map[string]float64
}

// New creates a price feed client for the given assets.
func New(apiKey, websocketURL string, assets []string, reconnectDelay, pingInterval time.Duration, log *logger.Logger) *Client {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		assets:         assets,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
		last:           make(map[string]float64),
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("price feed connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	if c.log != nil {
		c.log.Info("price feed connected")
	}
	return nil
}

// Subscribe subscribes to the configured assets.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.RLock()
	conn, ok := c.conn, c.connected
	c.mu.RUnlock()
	if conn == nil || !ok {
		return fmt.Errorf("price feed not connected")
	}
	for _, a := range c.assets {
		msg := map[string]string{"type": "subscribe", "symbol": a}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", a, err)
		}
	}
	return nil
}

type wsTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type wsMessage struct {
	Type string    `json:"type"`
	Data []wsTrade `json:"data"`
}

// Read streams ticks and errors. Every tick also updates the last-price table
// before it is forwarded; slow consumers lose ticks, never prices.
func (c *Client) Read(ctx context.Context) (<-chan *models.PriceTick, <-chan error) {
	ticks := make(chan *models.PriceTick, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.RLock()
				conn := c.conn
				c.mu.RUnlock()
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				c.mu.RLock()
				conn := c.conn
				c.mu.RUnlock()
				if conn == nil {
					errs <- fmt.Errorf("price feed conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("price feed read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-trade frames
					continue
				}
				if m.Type != "trade" {
					continue
				}
				for _, d := range m.Data {
					c.mu.Lock()
					c.last[d.S] = d.P
					c.mu.Unlock()

					tick := &models.PriceTick{
						Asset:     d.S,
						Price:     d.P,
						Volume:    d.V,
						Timestamp: time.UnixMilli(d.T),
					}
					select {
					case ticks <- tick:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return ticks, errs
}

// CurrentPrice returns the last streamed price for the asset.
func (c *Client) CurrentPrice(_ context.Context, asset string) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.last[asset]
	if !ok {
		return 0, fmt.Errorf("no price seen for %s yet", asset)
	}
	return p, nil
}

// Reconnect closes and reconnects.
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
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

var _ domsvc.PriceSource = (*Client)(nil)
