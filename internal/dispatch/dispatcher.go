// Package dispatch routes inbound frames to handlers. Binary frames skip
// envelope decoding and go to the binary handler; text frames are decoded
// with wire.Decode and routed by tag through a handler table.
package dispatch

import (
	"log/slog"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/metrics"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// Handler consumes one decoded message.
type Handler func(wire.Message)

// Dispatcher holds one handler per tag. It owns no state besides the
// table; handlers mutate state owned by their receivers. Register all
// handlers before the first frame arrives; the table is not locked.
type Dispatcher struct {
	log      *slog.Logger
	metrics  *metrics.Metrics
	handlers map[wire.Tag]Handler
	binary   func([]byte)
	unknown  func(wire.Unknown)
}

// New returns an empty dispatcher. A nil logger discards, nil metrics are
// replaced by an unregistered set.
func New(logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Dispatcher{
		log:      logger,
		metrics:  m,
		handlers: make(map[wire.Tag]Handler),
	}
}

// Handle sets the handler for tag, replacing any previous one.
func (d *Dispatcher) Handle(tag wire.Tag, h Handler) {
	d.handlers[tag] = h
}

// HandleBinary sets the handler for binary frames.
func (d *Dispatcher) HandleBinary(fn func([]byte)) {
	d.binary = fn
}

// HandleUnknown sets the handler for frames that decode to wire.Unknown.
// Without one, unknown frames are logged at error level.
func (d *Dispatcher) HandleUnknown(fn func(wire.Unknown)) {
	d.unknown = fn
}

// On registers a handler for the variant T, keyed by T's tag.
func On[T wire.Message](d *Dispatcher, fn func(T)) {
	var zero T
	d.Handle(zero.Tag(), func(m wire.Message) {
		if v, ok := m.(T); ok {
			fn(v)
		}
	})
}

// HandleFrame routes one inbound frame.
func (d *Dispatcher) HandleFrame(f wire.Frame) {
	if f.Kind == wire.FrameBinary {
		if d.binary == nil {
			d.log.Warn("binary frame without handler", "bytes", len(f.Data))
			return
		}
		d.metrics.MessagesDispatched.WithLabelValues("binary").Inc()
		d.binary(f.Data)
		return
	}
	d.Dispatch(wire.Decode(f.Data))
}

// Dispatch routes one decoded message to exactly one handler.
func (d *Dispatcher) Dispatch(m wire.Message) {
	if u, ok := m.(wire.Unknown); ok {
		d.metrics.MessagesDispatched.WithLabelValues(string(wire.TagUnknown)).Inc()
		if d.unknown != nil {
			d.unknown(u)
			return
		}
		d.log.Error("received unknown message type", "type", u.Type, "reason", u.Reason, "frame", string(u.Raw))
		return
	}

	h, ok := d.handlers[m.Tag()]
	if !ok {
		d.log.Warn("received unhandled message type", "type", m.Tag())
		return
	}
	d.metrics.MessagesDispatched.WithLabelValues(string(m.Tag())).Inc()
	h(m)
}
