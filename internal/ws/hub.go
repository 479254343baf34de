// Package ws fans session events out to local WebSocket clients. Every
// connected client receives each broadcast; the hub also pings clients so
// stale connections get cleaned up.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Options configures a Hub.
type Options struct {
	Logger *slog.Logger
	// Greeting, when set, is called for every new client and its result is
	// sent to that client before any broadcast.
	Greeting func() any
	// PingInterval defaults to 20s.
	PingInterval time.Duration
}

type join struct {
	conn     *websocket.Conn
	greeting []byte
}

// Hub manages WebSocket client connections and fans out broadcast messages
// to all of them. It is safe for concurrent use; register, unregister, and
// broadcast all go through channels, and only Run writes to clients.
type Hub struct {
	log      *slog.Logger
	greeting func() any
	ping     time.Duration

	clients    map[*websocket.Conn]struct{}
	register   chan join
	unregister chan *websocket.Conn
	broadcast  chan []byte
	upgrader   websocket.Upgrader

	count   atomic.Int64
	dropped atomic.Uint64
}

// NewHub allocates a hub with buffered channels.
// Call Run in a goroutine to start the event loop.
func NewHub(opts Options) *Hub {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ping := opts.PingInterval
	if ping <= 0 {
		ping = 20 * time.Second
	}
	return &Hub{
		log:        log.With("component", "ws"),
		greeting:   opts.Greeting,
		ping:       ping,
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan join, 16),
		unregister: make(chan *websocket.Conn, 16),
		broadcast:  make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Dropped reports how many broadcasts were discarded because the queue was
// full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Run processes registrations, unregistrations, broadcasts, and keepalive
// pings in a single select loop. It closes all clients when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ping := time.NewTicker(h.ping)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case j := <-h.register:
			h.clients[j.conn] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			if j.greeting != nil {
				h.write(j.conn, websocket.TextMessage, j.greeting)
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				h.write(c, websocket.TextMessage, msg)
			}

		case <-ping.C:
			for c := range h.clients {
				h.write(c, websocket.PingMessage, nil)
			}
		}
	}
}

func (h *Hub) write(c *websocket.Conn, kind int, msg []byte) {
	_ = c.SetWriteDeadline(time.Now().Add(3 * time.Second))
	if err := c.WriteMessage(kind, msg); err != nil {
		h.log.Debug("dropping ws client", "remote", c.RemoteAddr().String(), "err", err)
		h.drop(c)
	}
}

func (h *Hub) drop(c *websocket.Conn) {
	delete(h.clients, c)
	h.count.Store(int64(len(h.clients)))
	_ = c.Close()
}

// Handler returns an http.Handler that upgrades incoming requests to
// WebSocket connections and registers them with the hub.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied with an HTTP error.
			h.log.Debug("websocket upgrade failed", "err", err)
			return
		}

		var greeting []byte
		if h.greeting != nil {
			if b, err := json.Marshal(h.greeting()); err == nil {
				greeting = b
			}
		}
		h.register <- join{conn: conn, greeting: greeting}

		go func() {
			defer func() { h.unregister <- conn }()
			_ = conn.SetReadDeadline(time.Now().Add(3 * h.ping))
			conn.SetPongHandler(func(string) error {
				_ = conn.SetReadDeadline(time.Now().Add(3 * h.ping))
				return nil
			})

			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})
}

// BroadcastJSON marshals v to JSON and queues it for delivery to all
// connected clients. If the broadcast channel is full the message is
// dropped to avoid blocking the caller.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Error("marshal broadcast", "err", err)
		return
	}
	select {
	case h.broadcast <- b:
	default:
		h.dropped.Add(1)
	}
}
