// Package demo simulates a timing server so the daemon, CLI, and event
// stream can be exercised end-to-end without the camera program, the wind
// server, or a display client. It speaks the same WebSocket protocol as the
// real server: it answers every web control command, pushes a wind polling
// log line on an interval, and pushes rendered BMP frames.
package demo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// Options configures a Server.
type Options struct {
	Logger *slog.Logger
	// PollingInterval is the wind polling push period. Zero disables it.
	PollingInterval time.Duration
	// ImageInterval is the BMP frame push period. Zero disables it.
	ImageInterval time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(kind int, b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	return c.conn.WriteMessage(kind, b)
}

// Server is a simulated timing server.
type Server struct {
	log  *slog.Logger
	opts Options
	now  func() time.Time

	upgrader websocket.Upgrader

	mu       sync.Mutex
	clients  map[*client]struct{}
	heats    []wire.HeatMeta
	heatData map[string]json.RawMessage
	logs     []wire.LogEntry // newest first
	timing   wire.TimingSettings
	display  wire.DisplayClientState
	received []wire.Tag
	frame    int
}

// New returns a server seeded with a few heats and one log line.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Server{
		log:      log.With("component", "demo"),
		opts:     opts,
		now:      now,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:  make(map[*client]struct{}),
		heatData: make(map[string]json.RawMessage),
		timing: wire.TimingSettings{
			FireworksOnFinish:           true,
			MaxDecimalPlacesAfterComma:  2,
			HoldTimeMS:                  5000,
			PlaySoundOnStart:            true,
			SwitchToTimingAutomatically: true,
		},
		display: wire.DisplayClientState{Alive: true, CanSwitchMode: true},
	}
	s.seed()
	return s
}

var demoEvents = []struct {
	name  string
	start string
}{
	{"100m Men Heat 2", "2026-05-01T10:40:00"},
	{"100m Men Heat 1", "2026-05-01T10:30:00"},
	{"200m Women Final", "2026-05-01T11:15:00"},
	{"110m Hurdles Heat 1", "2026-05-01T10:50:00"},
}

// HeatID returns the id of the i-th seeded heat, in seed order.
func HeatID(i int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "jta-demo-heat-%d", i)).String()
}

func (s *Server) seed() {
	for i, e := range demoEvents {
		meta := wire.HeatMeta{ID: HeatID(i), Name: e.name, Number: uint32(i + 1), ScheduledStartTimeString: e.start}
		s.heats = append(s.heats, meta)
		data, _ := json.Marshal(map[string]any{
			"meta":       meta,
			"start_list": []map[string]any{{"lane": 4, "bib": 100 + i, "name": "Demo Runner"}},
		})
		s.heatData[meta.ID] = data
	}
	s.logs = append(s.logs, s.entry("ServerStarted", map[string]any{"demo": true}))
}

func (s *Server) entry(name string, data any) wire.LogEntry {
	b, _ := json.Marshal(data)
	return wire.LogEntry{NameKey: name, StoredAt: s.now().Format(wire.DateTimeLayout), Data: string(b)}
}

// Handler upgrades requests and serves the protocol on them.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := &client{conn: conn}
		s.mu.Lock()
		s.clients[c] = struct{}{}
		s.mu.Unlock()
		s.log.Info("web control connected", "remote", r.RemoteAddr)

		defer func() {
			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
			_ = conn.Close()
		}()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind != websocket.TextMessage {
				continue
			}
			s.handle(c, wire.Decode(data))
		}
	})
}

// ListenAndServe serves the protocol on addr under /ws/ and runs the push
// loops until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws/", s.Handler())
	mux.Handle("/ws", s.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.log.Info("demo timing server listening", "addr", ln.Addr().String())

	go s.Run(ctx)
	go func() {
		<-ctx.Done()
		s.CloseClients()
		_ = srv.Shutdown(context.Background())
	}()
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run pushes polling lines and frames until ctx is done.
func (s *Server) Run(ctx context.Context) {
	var poll, img <-chan time.Time
	if s.opts.PollingInterval > 0 {
		t := time.NewTicker(s.opts.PollingInterval)
		defer t.Stop()
		poll = t.C
	}
	if s.opts.ImageInterval > 0 {
		t := time.NewTicker(s.opts.ImageInterval)
		defer t.Stop()
		img = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-poll:
			s.PushPolling()
		case <-img:
			s.PushFrame()
		}
	}
}

// PushPolling broadcasts one wind polling log line.
func (s *Server) PushPolling() {
	now := s.now()
	line := s.entry("WindMeasurement", map[string]any{
		"wind":                      wire.RaceWind{BackWind: now.Second()%2 == 0, WholeNumberPart: uint16(now.Second() % 3), FractionPart: uint8(now.Second() % 10)},
		"probable_measurement_type": wire.MeasurementPolling,
		"time":                      dayTime(now),
	})
	s.broadcast(wire.Logs{Entries: []wire.LogEntry{line}})
}

// PushFrame broadcasts one rendered BMP frame.
func (s *Server) PushFrame() {
	s.mu.Lock()
	s.frame++
	n := s.frame
	s.mu.Unlock()
	b, err := renderFrame(n)
	if err != nil {
		s.log.Error("render frame", "err", err)
		return
	}
	s.broadcastRaw(websocket.BinaryMessage, b)
}

// CloseClients sends every client a close frame and drops it.
func (s *Server) CloseClients() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "demo server closing")
	for _, c := range clients {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = c.conn.Close()
		c.mu.Unlock()
	}
}

// Clients reports the number of connected web controls.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Received returns the tags of every message received so far, in order.
func (s *Server) Received() []wire.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.received)
}

// Display returns the simulated display client state.
func (s *Server) Display() wire.DisplayClientState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

func (s *Server) reply(c *client, m wire.Message) {
	b, err := wire.Encode(m)
	if err != nil {
		s.log.Error("encode reply", "type", m.Tag(), "err", err)
		return
	}
	if err := c.write(websocket.TextMessage, b); err != nil {
		s.log.Debug("reply failed", "type", m.Tag(), "err", err)
	}
}

func (s *Server) broadcast(m wire.Message) {
	b, err := wire.Encode(m)
	if err != nil {
		s.log.Error("encode broadcast", "type", m.Tag(), "err", err)
		return
	}
	s.broadcastRaw(websocket.TextMessage, b)
}

func (s *Server) broadcastRaw(kind int, b []byte) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		_ = c.write(kind, b)
	}
}

func dayTime(t time.Time) wire.DayTime {
	frac := uint32(t.Nanosecond()/int(time.Millisecond)) * 10
	return wire.DayTime{
		Hours:                        uint16(t.Hour()),
		Minutes:                      uint16(t.Minute()),
		Seconds:                      uint16(t.Second()),
		FractionalPartInTenThousands: &frac,
	}
}
