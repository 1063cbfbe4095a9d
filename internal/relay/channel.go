package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/getpaseo/paseo/internal/auth"
)

const (
	sendChannelBuffer = 100
	handshakeTimeout  = 10 * time.Second
	writeTimeout      = 10 * time.Second
	pingInterval      = 30 * time.Second
	initialDelay      = 1 * time.Second
	maxDelay          = 30 * time.Second
	backoffFactor     = 2
)

// Channel is one live websocket connection to a daemon, either through the
// relay or at a direct address. It reconnects with capped exponential
// backoff until stopped; each channel fails independently of its siblings.
type Channel struct {
	daemonID string
	url      string

	sendCh  chan []byte
	stopCh  chan struct{}
	doneCh  chan struct{}
	started atomic.Bool

	reconnectDelay time.Duration

	onMessage func(daemonID string, payload []byte)

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	conn *websocket.Conn
}

// NewChannel prepares a channel to the given websocket address. The bearer
// token is appended as a connection-time query parameter; websocket
// handshakes cannot carry per-message authorization headers. onMessage may
// be nil when the caller only pushes frames.
func NewChannel(daemonID, wsURL, token string, onMessage func(daemonID string, payload []byte)) *Channel {
	ctx, cancel := context.WithCancel(context.Background())
	return &Channel{
		daemonID:       daemonID,
		url:            appendTokenParam(wsURL, token),
		sendCh:         make(chan []byte, sendChannelBuffer),
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
		reconnectDelay: initialDelay,
		onMessage:      onMessage,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// DaemonID identifies the daemon this channel targets.
func (c *Channel) DaemonID() string {
	return c.daemonID
}

// Start launches the connection loop.
func (c *Channel) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.connectionLoop()
}

// Stop tears the channel down, releasing any in-flight handshake and
// pending timers, and waits for the loop to exit. Stopping a channel that
// was never started is a no-op.
func (c *Channel) Stop() {
	c.cancel()
	close(c.stopCh)
	if c.started.Load() {
		<-c.doneCh
	}
}

// Send queues a frame for delivery. It fails fast when the buffer is full
// rather than blocking the caller.
func (c *Channel) Send(payload []byte) error {
	select {
	case c.sendCh <- payload:
		return nil
	default:
		return fmt.Errorf("channel %s: send buffer full", c.daemonID)
	}
}

// Connected reports whether a websocket connection is currently open.
func (c *Channel) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

func (c *Channel) connectionLoop() {
	defer close(c.doneCh)

	for {
		select {
		case <-c.stopCh:
			c.disconnect()
			return
		default:
			if err := c.connect(); err != nil {
				slog.Debug("Channel dial failed",
					"daemon_id", c.daemonID,
					"error", err,
					"retry_in", c.reconnectDelay)
				select {
				case <-time.After(c.reconnectDelay):
					c.increaseReconnectDelay()
					continue
				case <-c.stopCh:
					return
				}
			}

			c.reconnectDelay = initialDelay

			if err := c.pump(); err != nil {
				slog.Debug("Channel closed", "daemon_id", c.daemonID, "error", err)
			}

			c.disconnect()

			select {
			case <-c.stopCh:
				return
			default:
				select {
				case <-time.After(c.reconnectDelay):
				case <-c.stopCh:
					return
				}
				c.increaseReconnectDelay()
			}
		}
	}
}

func (c *Channel) connect() error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(c.ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.daemonID, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	slog.Info("Channel connected", "daemon_id", c.daemonID)
	return nil
}

// pump runs the read and write sides until either fails or the channel is
// stopped.
func (c *Channel) pump() error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	errCh := make(chan error, 2)

	go func() {
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			if c.onMessage != nil {
				c.onMessage(c.daemonID, payload)
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case payload := <-c.sendCh:
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					errCh <- err
					return
				}
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					errCh <- err
					return
				}
			case <-c.stopCh:
				errCh <- nil
				return
			}
		}
	}()

	return <-errCh
}

func (c *Channel) disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Channel) increaseReconnectDelay() {
	c.reconnectDelay *= backoffFactor
	if c.reconnectDelay > maxDelay {
		c.reconnectDelay = maxDelay
	}
}

func appendTokenParam(wsURL, token string) string {
	if token == "" {
		return wsURL
	}
	sep := "?"
	if strings.Contains(wsURL, "?") {
		sep = "&"
	}
	return wsURL + sep + auth.TokenQueryParam + "=" + url.QueryEscape(token)
}
