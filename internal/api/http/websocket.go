package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/getpaseo/paseo/internal/auth"
)

const (
	wsSendBuffer   = 100
	wsWriteTimeout = 10 * time.Second
)

type wsClient struct {
	id       string
	clientID string
	conn     *websocket.Conn
	send     chan []byte

	closeOnce sync.Once
}

// closeSend releases the client's writeLoop. Safe to call from both the
// read path and hub shutdown.
func (c *wsClient) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// WSHub accepts authenticated websocket channels from paired clients and
// fans daemon events out to them. Closure of one channel never affects
// another.
type WSHub struct {
	secret   []byte
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*wsClient
}

func NewWSHub(secret []byte) *WSHub {
	return &WSHub{
		secret: secret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Paired clients connect from app webviews and CLIs, not
			// browsers sharing an origin with the daemon.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]*wsClient),
	}
}

// Handle upgrades a connection. The bearer token is taken from the "token"
// query parameter; websocket handshakes cannot carry per-message headers.
func (h *WSHub) Handle(c *gin.Context) {
	claims, err := auth.ValidateWebSocketToken(h.secret, c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		id:       uuid.NewString(),
		clientID: claims.ClientID,
		conn:     conn,
		send:     make(chan []byte, wsSendBuffer),
	}

	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	slog.Info("Channel accepted", "client_id", client.clientID, "total_connections", total)

	go h.writeLoop(client)
	go h.readLoop(client)
}

// Broadcast queues a frame for every connected client, skipping clients
// whose buffers are full.
func (h *WSHub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.send <- payload:
		default:
		}
	}
}

// ConnectionCount reports the number of open channels.
func (h *WSHub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every channel.
func (h *WSHub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		client.conn.Close()
		client.closeSend()
		delete(h.clients, id)
	}
}

func (h *WSHub) readLoop(client *wsClient) {
	defer h.drop(client)

	for {
		// Inbound frames are consumed to keep control handling alive;
		// the daemon's command surface lives on the HTTP API.
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHub) writeLoop(client *wsClient) {
	for payload := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (h *WSHub) drop(client *wsClient) {
	h.mu.Lock()
	delete(h.clients, client.id)
	client.closeSend()
	total := len(h.clients)
	h.mu.Unlock()

	client.conn.Close()
	slog.Info("Channel closed", "client_id", client.clientID, "total_connections", total)
}
