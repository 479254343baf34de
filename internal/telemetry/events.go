// Package telemetry defines the typed events jtacontrold broadcasts to its
// /ws clients. Every event embeds Event, so clients can switch on "type".
package telemetry

import (
	"encoding/json"
	"time"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// EventType identifies the kind of WebSocket event.
type EventType string

const (
	EventHeartbeat        EventType = "heartbeat"
	EventState            EventType = "state"
	EventConnection       EventType = "connection"
	EventLiveness         EventType = "liveness"
	EventDisplay          EventType = "display"
	EventLog              EventType = "log"
	EventLogs             EventType = "logs"
	EventHeats            EventType = "heats"
	EventHeat             EventType = "heat"
	EventTimingSettings   EventType = "timing_settings"
	EventWindMeasurements EventType = "wind_measurements"
	EventImage            EventType = "image"
	EventMessage          EventType = "message"
)

// Event is the base envelope shared by every event type.
type Event struct {
	Type EventType `json:"type"`
	TS   string    `json:"ts"`
}

// At returns the envelope for an event of type t that happened at ts.
func At(t EventType, ts time.Time) Event {
	return Event{Type: t, TS: ts.UTC().Format(time.RFC3339Nano)}
}

// Heartbeat is sent periodically so clients can detect connectivity and
// monitor daemon uptime.
type Heartbeat struct {
	Event
	Connection    string `json:"connection"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Connection reports an upstream connection state change.
type Connection struct {
	Event
	State string `json:"state"`
	URL   string `json:"url,omitempty"`
}

// Liveness reports a wind server liveness edge.
type Liveness struct {
	Event
	Live     bool   `json:"live"`
	TimeText string `json:"time_text"`
	WindText string `json:"wind_text"`
}

// Display mirrors the display client state.
type Display struct {
	Event
	Alive                   bool `json:"alive"`
	ExternalPassthroughMode bool `json:"external_passthrough_mode"`
	CanSwitchMode           bool `json:"can_switch_mode"`
}

// Log carries one pushed log line folded into the rolling view.
type Log struct {
	Event
	Entry wire.LogEntry `json:"entry"`
}

// Logs carries a log batch that replaced the view.
type Logs struct {
	Event
	Entries []wire.LogEntry `json:"entries"`
}

// Heats carries the sorted heat list.
type Heats struct {
	Event
	Heats []wire.HeatMeta `json:"heats"`
}

// Heat carries the data of the selected heat.
type Heat struct {
	Event
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data"`
}

// TimingSettings carries the display client's timing settings.
type TimingSettings struct {
	Event
	Settings wire.TimingSettings `json:"settings"`
}

// WindMeasurements carries the answer to a wind value request.
type WindMeasurements struct {
	Event
	Measurements []wire.WindMeasurement `json:"measurements"`
}

// Image describes the latest binary frame. The bytes are served by
// /api/image, not broadcast.
type Image struct {
	Event
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int    `json:"size"`
}

// Message carries a human-readable daemon message at a severity level.
type Message struct {
	Event
	Level   string `json:"level"`
	Message string `json:"message"`
}
