package conn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(actions []Action) []ActionKind {
	out := make([]ActionKind, len(actions))
	for i, a := range actions {
		out[i] = a.Kind
	}
	return out
}

func find(t *testing.T, actions []Action, k ActionKind) Action {
	t.Helper()
	for _, a := range actions {
		if a.Kind == k {
			return a
		}
	}
	t.Fatalf("no action %d in %v", k, kinds(actions))
	return Action{}
}

func open(t *testing.T, m *Machine) uint64 {
	t.Helper()
	acts := m.Step(Event{Kind: EventConnect})
	dial := find(t, acts, ActionDial)
	m.Step(Event{Kind: EventOpen, Gen: dial.Gen})
	require.Equal(t, Connected, m.State())
	return dial.Gen
}

func TestMachineFirstConnectDialsImmediately(t *testing.T) {
	m := NewMachine(Delays{})
	acts := m.Step(Event{Kind: EventConnect})
	assert.Equal(t, []ActionKind{ActionNotify, ActionDial}, kinds(acts))
	assert.Equal(t, Connecting, acts[0].State)
	assert.Equal(t, Connecting, m.State())
	assert.True(t, m.Attempting())
}

func TestMachineOpenAdoptsAndResyncs(t *testing.T) {
	m := NewMachine(Delays{})
	dial := find(t, m.Step(Event{Kind: EventConnect}), ActionDial)

	acts := m.Step(Event{Kind: EventOpen, Gen: dial.Gen})
	assert.Equal(t, []ActionKind{ActionAdopt, ActionNotify, ActionResync}, kinds(acts))
	assert.Equal(t, Connected, m.State())
	assert.False(t, m.Attempting())
}

func TestMachineConnectIsReentrancySafe(t *testing.T) {
	m := NewMachine(Delays{})
	m.Step(Event{Kind: EventConnect})
	assert.Empty(t, m.Step(Event{Kind: EventConnect}))
	assert.Empty(t, m.Step(Event{Kind: EventConnect}))
}

func TestMachineCloseSchedulesOneRetry(t *testing.T) {
	m := NewMachine(Delays{})
	gen := open(t, m)

	acts := m.Step(Event{Kind: EventClose, Gen: gen})
	assert.Equal(t, []ActionKind{ActionNotify, ActionScheduleRetry}, kinds(acts))
	assert.Equal(t, Disconnected, acts[0].State)
	retry := acts[1]
	assert.Equal(t, DefaultDelays.CloseRetry, retry.Delay)
	assert.Equal(t, EventClose, retry.Cause)

	// The dead socket's follow-up error is ignored.
	assert.Empty(t, m.Step(Event{Kind: EventError, Gen: gen}))
	assert.Empty(t, m.Step(Event{Kind: EventClose, Gen: gen}))

	acts = m.Step(Event{Kind: EventRetry, Gen: retry.Gen})
	assert.Equal(t, []ActionKind{ActionNotify, ActionCloseSocket, ActionSettle}, kinds(acts))
	assert.Equal(t, DefaultDelays.Settle, acts[2].Delay)

	// A second firing of the same timer does nothing.
	assert.Empty(t, m.Step(Event{Kind: EventRetry, Gen: retry.Gen}))
}

func TestMachineErrorUsesErrorDelay(t *testing.T) {
	m := NewMachine(Delays{})
	gen := open(t, m)
	acts := m.Step(Event{Kind: EventError, Gen: gen})
	assert.Equal(t, DefaultDelays.ErrorRetry, find(t, acts, ActionScheduleRetry).Delay)
}

func TestMachineDialFailureUsesErrorDelay(t *testing.T) {
	m := NewMachine(Delays{})
	dial := find(t, m.Step(Event{Kind: EventConnect}), ActionDial)

	// Even a close frame during the handshake counts as an error.
	acts := m.Step(Event{Kind: EventClose, Gen: dial.Gen})
	retry := find(t, acts, ActionScheduleRetry)
	assert.Equal(t, DefaultDelays.ErrorRetry, retry.Delay)
	assert.Equal(t, Disconnected, m.State())
	assert.False(t, m.Attempting())
}

func TestMachineSettledDials(t *testing.T) {
	m := NewMachine(Delays{Settle: time.Millisecond})
	gen := open(t, m)
	retry := find(t, m.Step(Event{Kind: EventError, Gen: gen}), ActionScheduleRetry)
	settle := find(t, m.Step(Event{Kind: EventRetry, Gen: retry.Gen}), ActionSettle)
	assert.Equal(t, time.Millisecond, settle.Delay)

	acts := m.Step(Event{Kind: EventSettled, Gen: settle.Gen})
	assert.Equal(t, []ActionKind{ActionDial}, kinds(acts))

	acts = m.Step(Event{Kind: EventOpen, Gen: acts[0].Gen})
	assert.Contains(t, kinds(acts), ActionResync)
}

func TestMachineStaleOpenIsDiscarded(t *testing.T) {
	m := NewMachine(Delays{})
	first := open(t, m)

	// Re-establish while connected: the old socket is superseded.
	acts := m.Step(Event{Kind: EventConnect})
	assert.Equal(t, []ActionKind{ActionNotify, ActionCloseSocket, ActionSettle}, kinds(acts))
	settle := acts[2]
	assert.NotEqual(t, first, settle.Gen)

	assert.Empty(t, m.Step(Event{Kind: EventClose, Gen: first}))
	assert.Equal(t, Connecting, m.State())

	acts = m.Step(Event{Kind: EventOpen, Gen: first})
	assert.Equal(t, []ActionKind{ActionDiscard}, kinds(acts))
	assert.Equal(t, Connecting, m.State())
}

func TestMachineRetryIgnoredAfterManualConnect(t *testing.T) {
	m := NewMachine(Delays{})
	gen := open(t, m)
	retry := find(t, m.Step(Event{Kind: EventError, Gen: gen}), ActionScheduleRetry)

	settle := find(t, m.Step(Event{Kind: EventConnect}), ActionSettle)
	dial := find(t, m.Step(Event{Kind: EventSettled, Gen: settle.Gen}), ActionDial)
	m.Step(Event{Kind: EventOpen, Gen: dial.Gen})

	assert.Empty(t, m.Step(Event{Kind: EventRetry, Gen: retry.Gen}))
	assert.Equal(t, Connected, m.State())

	// A later failure still schedules its own retry.
	acts := m.Step(Event{Kind: EventError, Gen: dial.Gen})
	assert.Contains(t, kinds(acts), ActionScheduleRetry)
}

func TestMachineMessageIsNoop(t *testing.T) {
	m := NewMachine(Delays{})
	gen := open(t, m)
	assert.Empty(t, m.Step(Event{Kind: EventMessage, Gen: gen}))
	assert.Equal(t, Connected, m.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "close", EventClose.String())
}
