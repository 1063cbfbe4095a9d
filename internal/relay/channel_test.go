package relay

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type channelTestServer struct {
	*httptest.Server

	accepts   atomic.Int32
	lastToken atomic.Value
	received  chan []byte

	// onAccept runs with the freshly upgraded connection; return to close it.
	onAccept func(conn *websocket.Conn)
}

func newChannelTestServer(t *testing.T, onAccept func(conn *websocket.Conn)) *channelTestServer {
	t.Helper()

	srv := &channelTestServer{
		received: make(chan []byte, 10),
		onAccept: onAccept,
	}
	upgrader := websocket.Upgrader{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.lastToken.Store(r.URL.Query().Get("token"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		srv.accepts.Add(1)
		defer conn.Close()
		if srv.onAccept != nil {
			srv.onAccept(conn)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (s *channelTestServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestChannelConnectAndReceive(t *testing.T) {
	srv := newChannelTestServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	got := make(chan []byte, 1)
	ch := NewChannel("daemon-1", srv.wsURL(), "tok123", func(daemonID string, payload []byte) {
		assert.Equal(t, "daemon-1", daemonID)
		got <- payload
	})
	ch.Start()
	defer ch.Stop()

	select {
	case payload := <-got:
		assert.Equal(t, "hello", string(payload))
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}

	assert.Equal(t, "tok123", srv.lastToken.Load())
	assert.True(t, ch.Connected())
}

func TestChannelSend(t *testing.T) {
	srv := newChannelTestServer(t, nil)
	srv.onAccept = func(conn *websocket.Conn) {
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			srv.received <- payload
		}
	}

	ch := NewChannel("daemon-1", srv.wsURL(), "", nil)
	ch.Start()
	defer ch.Stop()

	waitFor(t, ch.Connected)
	require.NoError(t, ch.Send([]byte("ping-home")))

	select {
	case payload := <-srv.received:
		assert.Equal(t, "ping-home", string(payload))
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the frame")
	}
}

func TestChannelReconnects(t *testing.T) {
	srv := newChannelTestServer(t, func(conn *websocket.Conn) {
		// Drop the first connection immediately to force a reconnect.
	})

	ch := NewChannel("daemon-1", srv.wsURL(), "", nil)
	ch.Start()
	defer ch.Stop()

	waitFor(t, func() bool { return srv.accepts.Load() >= 2 })
}

func TestChannelStop(t *testing.T) {
	srv := newChannelTestServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ch := NewChannel("daemon-1", srv.wsURL(), "", nil)
	ch.Start()
	waitFor(t, ch.Connected)

	ch.Stop()
	assert.False(t, ch.Connected())
}

func TestChannelStopWithoutStart(t *testing.T) {
	ch := NewChannel("daemon-1", "ws://127.0.0.1:1/nope", "", nil)

	done := make(chan struct{})
	go func() {
		ch.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked on a channel that was never started")
	}
}

func TestChannelStopWhileUnreachable(t *testing.T) {
	ch := NewChannel("daemon-1", "ws://127.0.0.1:1/nope", "", nil)
	ch.Start()

	done := make(chan struct{})
	go func() {
		ch.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return while dialing an unreachable daemon")
	}
}

func TestAppendTokenParam(t *testing.T) {
	assert.Equal(t, "ws://h/ws", appendTokenParam("ws://h/ws", ""))
	assert.Equal(t, "ws://h/ws?token=abc", appendTokenParam("ws://h/ws", "abc"))
	assert.Equal(t, "ws://h/ws?v=2&token=abc", appendTokenParam("ws://h/ws?v=2", "abc"))
	assert.Equal(t, "ws://h/ws?token=a%2Fb", appendTokenParam("ws://h/ws", "a/b"))
}
