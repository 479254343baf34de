// Package conn owns the upstream WebSocket: the connect/reconnect state
// machine, the socket lifecycle, and the outbound send gate.
package conn

import (
	"fmt"
	"time"
)

// State is the connection state of one Manager.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind enumerates the inputs of the state machine.
type EventKind int

const (
	// EventConnect is an explicit connect request.
	EventConnect EventKind = iota
	// EventRetry is a delayed reconnect firing.
	EventRetry
	// EventSettled fires once the settle delay after closing the previous
	// socket has passed.
	EventSettled
	// EventOpen reports a finished WebSocket handshake.
	EventOpen
	// EventClose reports a close frame from the server.
	EventClose
	// EventError reports any other dial, read or write failure.
	EventError
	// EventMessage carries an inbound frame. The machine ignores it; the
	// manager filters it by generation.
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventRetry:
		return "retry"
	case EventSettled:
		return "settled"
	case EventOpen:
		return "open"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	case EventMessage:
		return "message"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one input to Machine.Step. Gen identifies the socket attempt the
// event belongs to; Connect ignores it.
type Event struct {
	Kind EventKind
	Gen  uint64
}

// ActionKind enumerates the side effects Step asks for.
type ActionKind int

const (
	// ActionCloseSocket closes the current socket handle, ignoring errors.
	ActionCloseSocket ActionKind = iota
	// ActionSettle schedules EventSettled for Gen after the settle delay.
	ActionSettle
	// ActionDial opens a new socket for Gen.
	ActionDial
	// ActionAdopt makes the socket reported by EventOpen the current one.
	ActionAdopt
	// ActionDiscard closes a socket whose attempt was superseded.
	ActionDiscard
	// ActionResync writes the re-synchronization sequence.
	ActionResync
	// ActionScheduleRetry schedules EventRetry for Gen after Delay.
	ActionScheduleRetry
	// ActionNotify publishes a state change.
	ActionNotify
)

// Action is one side effect requested by Step.
type Action struct {
	Kind  ActionKind
	Gen   uint64
	Delay time.Duration
	State State
	// Cause names the terminal event behind ActionScheduleRetry.
	Cause EventKind
}

// Delays are the timings the machine schedules.
type Delays struct {
	// Settle is waited between closing an old socket and dialing anew.
	Settle time.Duration
	// CloseRetry is waited after a close frame before reconnecting.
	CloseRetry time.Duration
	// ErrorRetry is waited after an error before reconnecting.
	ErrorRetry time.Duration
}

// DefaultDelays are the delays the timing server is tuned for.
var DefaultDelays = Delays{
	Settle:     500 * time.Millisecond,
	CloseRetry: 1000 * time.Millisecond,
	ErrorRetry: 2000 * time.Millisecond,
}

// Machine is the connection state machine. Step is its only transition
// function; it performs no I/O and reads no clock, so it is driven directly
// in tests and by the Manager's event loop in production.
type Machine struct {
	delays Delays

	state State
	gen   uint64

	// attempting is the reentrancy guard: set from Connect until the
	// attempt opens or fails.
	attempting bool
	// retryPending is set while a retry timer is outstanding.
	retryPending bool
	// hasSocket is set while a socket handle (open or dead) is held.
	hasSocket bool
}

// NewMachine returns a machine in Disconnected. Zero delays are replaced by
// DefaultDelays.
func NewMachine(d Delays) *Machine {
	if d.Settle <= 0 {
		d.Settle = DefaultDelays.Settle
	}
	if d.CloseRetry <= 0 {
		d.CloseRetry = DefaultDelays.CloseRetry
	}
	if d.ErrorRetry <= 0 {
		d.ErrorRetry = DefaultDelays.ErrorRetry
	}
	return &Machine{delays: d}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Gen returns the generation of the current socket attempt.
func (m *Machine) Gen() uint64 { return m.gen }

// Attempting reports whether a connection attempt is in flight.
func (m *Machine) Attempting() bool { return m.attempting }

// Current reports whether gen is the live attempt in the given state.
func (m *Machine) Current(gen uint64, s State) bool {
	return gen == m.gen && m.state == s
}

// Step applies one event and returns the side effects to perform, in order.
// Events that belong to a superseded attempt, and connect requests while an
// attempt is in flight, return no actions.
func (m *Machine) Step(ev Event) []Action {
	switch ev.Kind {
	case EventConnect:
		return m.connect()

	case EventRetry:
		if ev.Gen != m.gen || !m.retryPending {
			return nil
		}
		m.retryPending = false
		if m.state != Disconnected {
			return nil
		}
		return m.connect()

	case EventSettled:
		if !m.Current(ev.Gen, Connecting) {
			return nil
		}
		m.hasSocket = true
		return []Action{{Kind: ActionDial, Gen: m.gen}}

	case EventOpen:
		if !m.Current(ev.Gen, Connecting) {
			return []Action{{Kind: ActionDiscard, Gen: ev.Gen}}
		}
		m.attempting = false
		return append([]Action{{Kind: ActionAdopt, Gen: m.gen}}, m.enter(Connected, Action{Kind: ActionResync, Gen: m.gen})...)

	case EventClose, EventError:
		if ev.Gen != m.gen || m.state == Disconnected {
			return nil
		}
		// A close frame while still handshaking is a failed attempt.
		delay := m.delays.ErrorRetry
		if ev.Kind == EventClose && m.state == Connected {
			delay = m.delays.CloseRetry
		}
		m.attempting = false
		// Invalidate the dead socket's generation so its trailing events
		// are ignored.
		m.gen++
		actions := m.enter(Disconnected)
		if !m.retryPending {
			m.retryPending = true
			actions = append(actions, Action{Kind: ActionScheduleRetry, Gen: m.gen, Delay: delay, Cause: ev.Kind})
		}
		return actions
	}
	return nil
}

func (m *Machine) connect() []Action {
	if m.attempting {
		return nil
	}
	m.attempting = true
	// A retry timer still outstanding belongs to the old generation now.
	m.retryPending = false
	m.gen++

	actions := m.enter(Connecting)
	if m.hasSocket {
		m.hasSocket = false
		return append(actions,
			Action{Kind: ActionCloseSocket},
			Action{Kind: ActionSettle, Gen: m.gen, Delay: m.delays.Settle},
		)
	}
	m.hasSocket = true
	return append(actions, Action{Kind: ActionDial, Gen: m.gen})
}

func (m *Machine) enter(s State, then ...Action) []Action {
	if m.state == s {
		return then
	}
	m.state = s
	return append([]Action{{Kind: ActionNotify, State: s}}, then...)
}
