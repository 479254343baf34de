// Package session is the application state of one sync client. It owns the
// rolling log buffer, the liveness monitor and the projections of every
// inbound message, handles the dispatcher's messages, and turns user
// intents into commands.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/command"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/conn"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/dispatch"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/liveness"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/metrics"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/rolling"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/telemetry"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// DefaultLogCapacity is the size of the rolling log view.
const DefaultLogCapacity = 10

// DefaultTickInterval is how often liveness is recomputed.
const DefaultTickInterval = 500 * time.Millisecond

// Sender transmits one message upstream. *conn.Manager implements it.
type Sender interface {
	Send(wire.Message)
}

// Broadcaster receives every change event. *ws.Hub implements it.
type Broadcaster interface {
	BroadcastJSON(v any)
}

// Options configures a Session.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Events  Broadcaster

	LogCapacity       int
	LivenessThreshold time.Duration
	TickInterval      time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// Session is safe for concurrent use. Inbound handlers run on the
// connection manager's loop; readers and intents may come from anywhere.
type Session struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	events  Broadcaster
	now     func() time.Time
	tick    time.Duration

	dispatcher *dispatch.Dispatcher

	senderMu sync.RWMutex
	sender   Sender

	mu          sync.Mutex
	state       conn.State
	display     wire.DisplayClientState
	heats       []wire.HeatMeta
	pendingHeat string
	heat        json.RawMessage
	timing      *wire.TimingSettings
	wind        []wire.WindMeasurement
	image       *Image
	logs        []wire.LogEntry
	rolling     *rolling.Buffer[wire.LogEntry]
	monitor     *liveness.Monitor
	unknown     uint64
}

// New returns a session with its dispatcher wired. Call Attach before the
// connection starts.
func New(opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	met := opts.Metrics
	if met == nil {
		met = metrics.New(nil)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	tick := opts.TickInterval
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	capacity := opts.LogCapacity
	if capacity == 0 {
		capacity = DefaultLogCapacity
	}
	buf, err := rolling.New[wire.LogEntry](capacity)
	if err != nil {
		return nil, fmt.Errorf("session: log buffer: %w", err)
	}

	s := &Session{
		log:     log.With("component", "session"),
		metrics: met,
		events:  opts.Events,
		now:     now,
		tick:    tick,
		rolling: buf,
		monitor: liveness.NewMonitor(opts.LivenessThreshold, now()),
		logs:    []wire.LogEntry{},
	}
	s.dispatcher = dispatch.New(log.With("component", "dispatch"), met)
	s.register(s.dispatcher)
	return s, nil
}

// Attach sets the upstream sender.
func (s *Session) Attach(sender Sender) {
	s.senderMu.Lock()
	s.sender = sender
	s.senderMu.Unlock()
}

// HandleFrame feeds one inbound frame through the dispatcher.
func (s *Session) HandleFrame(f wire.Frame) { s.dispatcher.HandleFrame(f) }

// Dispatcher exposes the handler table, so callers can add handlers for
// tags the session does not consume.
func (s *Session) Dispatcher() *dispatch.Dispatcher { return s.dispatcher }

// Resync returns the messages written after every connection open, in
// order: heats, the newest logs, timing settings, the pending selection if
// any, and finally a display state probe.
func (s *Session) Resync() []wire.Message {
	s.mu.Lock()
	pending := s.pendingHeat
	capacity := s.rolling.Cap()
	s.mu.Unlock()

	msgs := []wire.Message{
		command.GetHeats(),
		command.GetLogs(float64(capacity)),
		command.RequestTimingSettings(),
	}
	if pending != "" {
		msgs = append(msgs, wire.SelectHeat{ID: pending})
	}
	return append(msgs, command.RequestDisplayClientState())
}

// SetConnectionState records a connection state change. The display is
// reported down whenever the upstream is not connected.
func (s *Session) SetConnectionState(st conn.State) {
	s.mu.Lock()
	s.state = st
	displayChanged := false
	if st != conn.Connected && s.display.Alive {
		s.display.Alive = false
		displayChanged = true
	}
	display := s.display
	s.mu.Unlock()

	now := s.now()
	s.publish(telemetry.Connection{Event: telemetry.At(telemetry.EventConnection, now), State: st.String()})
	if displayChanged {
		s.publish(displayEvent(now, display))
	}
}

// Run recomputes liveness on every tick until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	t := time.NewTicker(s.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Tick()
		}
	}
}

// Tick recomputes liveness once.
func (s *Session) Tick() {
	now := s.now()
	s.mu.Lock()
	changed := s.monitor.Tick(now)
	ev := s.livenessEvent(now)
	s.mu.Unlock()
	if changed {
		s.liveChanged(ev)
	}
}

func (s *Session) livenessEvent(now time.Time) telemetry.Liveness {
	return telemetry.Liveness{
		Event:    telemetry.At(telemetry.EventLiveness, now),
		Live:     s.monitor.Live(),
		TimeText: s.monitor.TimeText(),
		WindText: s.monitor.WindText(),
	}
}

func (s *Session) liveChanged(ev telemetry.Liveness) {
	if ev.Live {
		s.metrics.WindServerLive.Set(1)
		s.log.Info("wind server live")
	} else {
		s.metrics.WindServerLive.Set(0)
		s.log.Warn("wind server signal lost")
	}
	s.publish(ev)
}

func (s *Session) send(msgs ...wire.Message) {
	s.senderMu.RLock()
	sender := s.sender
	s.senderMu.RUnlock()
	if sender == nil {
		s.log.Warn("no upstream attached, dropping message")
		return
	}
	for _, m := range msgs {
		sender.Send(m)
	}
}

func (s *Session) publish(v any) {
	if s.events != nil {
		s.events.BroadcastJSON(v)
	}
}

func displayEvent(now time.Time, d wire.DisplayClientState) telemetry.Display {
	return telemetry.Display{
		Event:                   telemetry.At(telemetry.EventDisplay, now),
		Alive:                   d.Alive,
		ExternalPassthroughMode: d.ExternalPassthroughMode,
		CanSwitchMode:           d.CanSwitchMode,
	}
}
