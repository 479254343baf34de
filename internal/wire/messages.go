// Package wire defines the envelope protocol spoken with the timing server.
//
// Every text frame is a JSON object {"type": Tag, "data": payload}. The
// type field is the only discriminator; unit variants omit data. The set
// of tags is closed: anything else decodes to Unknown so that newer
// servers stay readable by older clients.
package wire

import "encoding/json"

// Tag is the envelope discriminator.
type Tag string

// Server to client.
const (
	TagDisplayClientState  Tag = "DisplayClientState"
	TagHeatsMeta           Tag = "HeatsMeta"
	TagLogs                Tag = "Logs"
	TagHeatDataMessage     Tag = "HeatDataMessage"
	TagTimingSettingsState Tag = "TimingSettingsState"
	TagWindMeasurements    Tag = "WindMeasurements"
	TagUnknown             Tag = "Unknown"
)

// Client to server.
const (
	TagIdle                      Tag = "Idle"
	TagAdvertisements            Tag = "Advertisements"
	TagFreeText                  Tag = "FreeText"
	TagRequestDisplayClientState Tag = "RequestDisplayClientState"
	TagSwitchMode                Tag = "SwitchMode"
	TagGetHeats                  Tag = "GetHeats"
	TagGetLogs                   Tag = "GetLogs"
	TagSelectHeat                Tag = "SelectHeat"
	TagTiming                    Tag = "Timing"
	TagStartList                 Tag = "StartList"
	TagResultList                Tag = "ResultList"
	TagClock                     Tag = "Clock"
	TagUpdateTimingSettings      Tag = "UpdateTimingSettings"
	TagRequestTimingSettings     Tag = "RequestTimingSettings"
	TagRequestWindValues         Tag = "RequestWindValues"
)

// Message is one decoded envelope. The concrete types in this package are
// the only implementations.
type Message interface {
	Tag() Tag
}

// payloader is implemented by variants that carry a data field.
type payloader interface {
	payload() any
}

// DisplayClientState reports whether the display client is attached and
// which mode the server is passing through.
type DisplayClientState struct {
	Alive                   bool `json:"alive"`
	ExternalPassthroughMode bool `json:"external_passthrough_mode"`
	CanSwitchMode           bool `json:"can_switch_mode"`
}

func (DisplayClientState) Tag() Tag { return TagDisplayClientState }
func (m DisplayClientState) payload() any { return m }

// HeatsMeta is the full heat list.
type HeatsMeta struct {
	Heats []HeatMeta
}

func (HeatsMeta) Tag() Tag { return TagHeatsMeta }
func (m HeatsMeta) payload() any { return m.Heats }

// Logs is either one freshly stored log line or a requested batch.
type Logs struct {
	Entries []LogEntry
}

func (Logs) Tag() Tag { return TagLogs }
func (m Logs) payload() any { return m.Entries }

// HeatDataMessage carries the selected heat's record.
type HeatDataMessage struct {
	Data HeatData
}

func (HeatDataMessage) Tag() Tag { return TagHeatDataMessage }
func (m HeatDataMessage) payload() any { return m.Data }

// TimingSettingsState is the display client's current timing settings.
type TimingSettingsState struct {
	Settings TimingSettings
}

func (TimingSettingsState) Tag() Tag { return TagTimingSettingsState }
func (m TimingSettingsState) payload() any { return m.Settings }

// WindMeasurements answers RequestWindValues.
type WindMeasurements struct {
	Measurements []WindMeasurement
}

func (WindMeasurements) Tag() Tag { return TagWindMeasurements }
func (m WindMeasurements) payload() any { return m.Measurements }

// Unknown is any frame that did not decode into a known variant. Type and
// Data are the original fields when the frame was an envelope at all; Raw
// is the complete frame. Reason is empty for an unrecognized tag and
// describes the failure for a malformed frame.
type Unknown struct {
	Type   string
	Data   json.RawMessage
	Raw    []byte
	Reason string
}

func (Unknown) Tag() Tag { return TagUnknown }

type Idle struct{}

func (Idle) Tag() Tag { return TagIdle }

type Advertisements struct{}

func (Advertisements) Tag() Tag { return TagAdvertisements }

type FreeText struct {
	Text string
}

func (FreeText) Tag() Tag { return TagFreeText }
func (m FreeText) payload() any { return m.Text }

type RequestDisplayClientState struct{}

func (RequestDisplayClientState) Tag() Tag { return TagRequestDisplayClientState }

type SwitchMode struct{}

func (SwitchMode) Tag() Tag { return TagSwitchMode }

type GetHeats struct{}

func (GetHeats) Tag() Tag { return TagGetHeats }

// GetLogs asks for the newest Count log lines.
type GetLogs struct {
	Count uint32
}

func (GetLogs) Tag() Tag { return TagGetLogs }
func (m GetLogs) payload() any { return m.Count }

// SelectHeat asks for the HeatDataMessage of the heat with the given id.
type SelectHeat struct {
	ID string
}

func (SelectHeat) Tag() Tag { return TagSelectHeat }
func (m SelectHeat) payload() any { return m.ID }

type Timing struct{}

func (Timing) Tag() Tag { return TagTiming }

type StartList struct{}

func (StartList) Tag() Tag { return TagStartList }

type ResultList struct{}

func (ResultList) Tag() Tag { return TagResultList }

// Clock shows the given time of day on the display.
type Clock struct {
	Time DayTime
}

func (Clock) Tag() Tag { return TagClock }
func (m Clock) payload() any { return m.Time }

type UpdateTimingSettings struct {
	Settings TimingSettings
}

func (UpdateTimingSettings) Tag() Tag { return TagUpdateTimingSettings }
func (m UpdateTimingSettings) payload() any { return m.Settings }

type RequestTimingSettings struct{}

func (RequestTimingSettings) Tag() Tag { return TagRequestTimingSettings }

type RequestWindValues struct {
	Window WindValueRequest
}

func (RequestWindValues) Tag() Tag { return TagRequestWindValues }
func (m RequestWindValues) payload() any { return m.Window }
