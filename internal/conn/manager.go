package conn

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/metrics"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// FrameHandler receives every inbound frame of the current socket, on the
// manager's loop goroutine.
type FrameHandler interface {
	HandleFrame(wire.Frame)
}

// Options configures a Manager.
type Options struct {
	URL     string
	Dialer  Dialer
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Delays  Delays
	Handler FrameHandler

	// Resync returns the messages written right after every open, in order.
	Resync func() []wire.Message
	// OnState is called on the loop goroutine after every state change.
	OnState func(State)

	// WriteTimeout bounds a single socket write. Zero means no deadline.
	WriteTimeout time.Duration
	// ReadTimeout closes a socket that sent neither frames nor pings for
	// this long. Zero disables it.
	ReadTimeout time.Duration
	// QueueSize is the capacity of the outbound queue. Defaults to 64.
	QueueSize int
}

type loopEvent struct {
	Event
	sock  Socket
	url   string
	frame wire.Frame
	err   error
}

// queued is an outbound message tagged with the generation that was
// connected when Send was called, or 0 when none was.
type queued struct {
	msg wire.Message
	gen uint64
}

// Manager keeps one WebSocket to the timing server open. A single loop
// goroutine started by Run owns the machine, the socket and every write;
// dial, read and timer goroutines only post events to it.
type Manager struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	dialer  Dialer
	handler FrameHandler
	resync  func() []wire.Message
	onState func(State)

	writeTimeout time.Duration
	readTimeout  time.Duration

	urlMu sync.Mutex
	url   string

	state   atomic.Int32
	sendGen atomic.Uint64
	machine *Machine
	events  chan loopEvent
	outbox  chan queued
	stop    chan struct{}

	// loop goroutine only
	sock          Socket
	everConnected bool
}

// NewManager returns a Manager in Disconnected. Nothing is dialed until Run.
func NewManager(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	met := opts.Metrics
	if met == nil {
		met = metrics.New(nil)
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = WebsocketDialer{}
	}
	qs := opts.QueueSize
	if qs <= 0 {
		qs = 64
	}
	return &Manager{
		log:          log.With("component", "conn"),
		metrics:      met,
		dialer:       dialer,
		handler:      opts.Handler,
		resync:       opts.Resync,
		onState:      opts.OnState,
		writeTimeout: opts.WriteTimeout,
		readTimeout:  opts.ReadTimeout,
		url:          opts.URL,
		machine:      NewMachine(opts.Delays),
		events:       make(chan loopEvent, 16),
		outbox:       make(chan queued, qs),
		stop:         make(chan struct{}),
	}
}

// State returns the current connection state. Safe from any goroutine.
func (m *Manager) State() State { return State(m.state.Load()) }

// URL returns the upstream URL the next dial uses.
func (m *Manager) URL() string {
	m.urlMu.Lock()
	defer m.urlMu.Unlock()
	return m.url
}

// SetURL changes the upstream URL. It takes effect on the next dial; call
// Connect to re-establish right away.
func (m *Manager) SetURL(url string) {
	m.urlMu.Lock()
	m.url = url
	m.urlMu.Unlock()
}

// Connect asks for a fresh connection. While an attempt is already in
// flight it is a no-op; while connected it replaces the socket.
func (m *Manager) Connect() {
	m.post(loopEvent{Event: Event{Kind: EventConnect}})
}

// Send queues msg for writing. It is written only on the socket that was
// open when Send was called; otherwise it is dropped, never buffered for a
// later socket.
func (m *Manager) Send(msg wire.Message) {
	select {
	case m.outbox <- queued{msg: msg, gen: m.sendGen.Load()}:
	default:
		m.metrics.SendsDropped.WithLabelValues("queue_full").Inc()
		m.log.Warn("outbound queue full, dropping message", "type", msg.Tag())
	}
}

// Run connects and serves the connection until ctx is done. It must be
// called once.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.stop)
	m.step(ctx, loopEvent{Event: Event{Kind: EventConnect}})
	for {
		select {
		case <-ctx.Done():
			if m.sock != nil {
				_ = m.sock.Close()
				m.sock = nil
			}
			return nil
		case ev := <-m.events:
			m.step(ctx, ev)
		case q := <-m.outbox:
			if q.gen == 0 || q.gen != m.machine.Gen() {
				m.drop(q.msg)
				continue
			}
			m.write(ctx, q.msg)
		}
	}
}

func (m *Manager) post(ev loopEvent) bool {
	select {
	case m.events <- ev:
		return true
	case <-m.stop:
		return false
	}
}

func (m *Manager) after(d time.Duration, ev loopEvent) {
	time.AfterFunc(d, func() { m.post(ev) })
}

func (m *Manager) step(ctx context.Context, ev loopEvent) {
	switch ev.Kind {
	case EventMessage:
		if !m.machine.Current(ev.Gen, Connected) {
			m.log.Debug("dropping frame from superseded socket", "gen", ev.Gen)
			return
		}
		m.metrics.FramesReceived.WithLabelValues(ev.frame.Kind.String()).Inc()
		if m.handler != nil {
			m.handler.HandleFrame(ev.frame)
		}
		return
	case EventOpen:
		// The URL changed while this dial was in flight; dial again on the
		// same attempt instead of settling on the old server.
		if ev.sock != nil && m.machine.Current(ev.Gen, Connecting) && ev.url != m.URL() {
			m.log.Info("upstream changed during dial, redialing", "from", ev.url, "to", m.URL(), "gen", ev.Gen)
			_ = ev.sock.Close()
			m.metrics.ConnectAttempts.Inc()
			go m.dial(ctx, ev.Gen, m.URL())
			return
		}
	case EventConnect:
		if m.machine.Attempting() {
			m.log.Debug("connection attempt already in flight")
		}
	case EventClose, EventError:
		if ev.Gen == m.machine.Gen() && m.machine.State() != Disconnected {
			m.log.Warn("websocket "+ev.Kind.String(), "gen", ev.Gen, "err", ev.err)
		}
	}

	for _, a := range m.machine.Step(ev.Event) {
		switch a.Kind {
		case ActionNotify:
			if a.State == Connected {
				m.sendGen.Store(m.machine.Gen())
			} else {
				m.sendGen.Store(0)
			}
			m.state.Store(int32(a.State))
			m.metrics.ConnectionState.Set(float64(a.State))
			m.log.Info("connection state changed", "state", a.State.String(), "gen", m.machine.Gen())
			if m.onState != nil {
				m.onState(a.State)
			}
		case ActionCloseSocket:
			if m.sock != nil {
				_ = m.sock.Close()
				m.sock = nil
			}
		case ActionSettle:
			m.after(a.Delay, loopEvent{Event: Event{Kind: EventSettled, Gen: a.Gen}})
		case ActionDial:
			m.metrics.ConnectAttempts.Inc()
			go m.dial(ctx, a.Gen, m.URL())
		case ActionAdopt:
			m.sock = ev.sock
			m.everConnected = true
			go m.read(a.Gen, ev.sock)
		case ActionDiscard:
			if ev.sock != nil {
				_ = ev.sock.Close()
			}
		case ActionResync:
			if m.resync == nil {
				continue
			}
			for _, msg := range m.resync() {
				m.write(ctx, msg)
			}
		case ActionScheduleRetry:
			m.metrics.Reconnects.WithLabelValues(a.Cause.String()).Inc()
			m.log.Info("reconnect scheduled", "cause", a.Cause.String(), "in", a.Delay)
			m.after(a.Delay, loopEvent{Event: Event{Kind: EventRetry, Gen: a.Gen}})
		}
	}
}

func (m *Manager) drop(msg wire.Message) {
	reason := "not_connected"
	if !m.everConnected {
		reason = "never_connected"
	}
	m.metrics.SendsDropped.WithLabelValues(reason).Inc()
	m.log.Warn("websocket not connected, dropping message", "type", msg.Tag(), "reason", reason)
}

func (m *Manager) write(ctx context.Context, msg wire.Message) {
	if m.machine.State() != Connected || m.sock == nil {
		m.drop(msg)
		return
	}
	b, err := wire.Encode(msg)
	if err != nil {
		m.metrics.SendsDropped.WithLabelValues("encode").Inc()
		m.log.Error("encode message", "type", msg.Tag(), "err", err)
		return
	}
	if m.writeTimeout > 0 {
		_ = m.sock.SetWriteDeadline(time.Now().Add(m.writeTimeout))
	}
	if err := m.sock.WriteMessage(websocket.TextMessage, b); err != nil {
		m.metrics.SendsDropped.WithLabelValues("write").Inc()
		m.step(ctx, loopEvent{Event: Event{Kind: EventError, Gen: m.machine.Gen()}, err: err})
		return
	}
	m.metrics.FramesSent.Inc()
}

func (m *Manager) dial(ctx context.Context, gen uint64, url string) {
	m.log.Info("dialing websocket", "url", url, "gen", gen)
	sock, err := m.dialer.Dial(ctx, url)
	if err != nil {
		m.post(loopEvent{Event: Event{Kind: EventError, Gen: gen}, err: err})
		return
	}
	if !m.post(loopEvent{Event: Event{Kind: EventOpen, Gen: gen}, sock: sock, url: url}) {
		_ = sock.Close()
	}
}

func (m *Manager) read(gen uint64, sock Socket) {
	extend := armReadDeadline(sock, m.readTimeout)
	for {
		mt, data, err := sock.ReadMessage()
		if err != nil {
			kind := EventError
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				kind = EventClose
			}
			m.post(loopEvent{Event: Event{Kind: kind, Gen: gen}, err: err})
			return
		}
		extend()
		var f wire.Frame
		switch mt {
		case websocket.TextMessage:
			f = wire.Frame{Kind: wire.FrameText, Data: data}
		case websocket.BinaryMessage:
			f = wire.Frame{Kind: wire.FrameBinary, Data: data}
		default:
			continue
		}
		if !m.post(loopEvent{Event: Event{Kind: EventMessage, Gen: gen}, frame: f}) {
			return
		}
	}
}
