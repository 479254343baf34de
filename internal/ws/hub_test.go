package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func readJSON(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var v map[string]any
	require.NoError(t, c.ReadJSON(&v))
	return v
}

func TestHubGreetsThenBroadcasts(t *testing.T) {
	hub := NewHub(Options{Greeting: func() any { return map[string]any{"type": "hello"} }})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	assert.Equal(t, "hello", readJSON(t, a)["type"])
	assert.Equal(t, "hello", readJSON(t, b)["type"])
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 2*time.Second, 5*time.Millisecond)

	hub.BroadcastJSON(map[string]any{"type": "connection", "state": "connected"})
	assert.Equal(t, "connected", readJSON(t, a)["state"])
	assert.Equal(t, "connected", readJSON(t, b)["state"])
}

func TestHubForgetsClosedClients(t *testing.T) {
	hub := NewHub(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	c := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	hub := NewHub(Options{})
	// No Run loop: the queue fills up and further broadcasts are dropped.
	for range cap(hub.broadcast) + 3 {
		hub.BroadcastJSON(map[string]int{"n": 1})
	}
	assert.Equal(t, uint64(3), hub.Dropped())
}
