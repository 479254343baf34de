package session

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/conn"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// Display is the display client as last reported.
type Display struct {
	Alive                   bool `json:"alive"`
	ExternalPassthroughMode bool `json:"external_passthrough_mode"`
	CanSwitchMode           bool `json:"can_switch_mode"`
}

// Liveness is the wind server liveness view.
type Liveness struct {
	Live         bool      `json:"live"`
	LastSignalAt time.Time `json:"last_signal_at"`
	TimeText     string    `json:"time_text"`
	WindText     string    `json:"wind_text"`
}

// Snapshot is a consistent copy of the session's scalar state.
type Snapshot struct {
	Connection            string               `json:"connection"`
	Connected             bool                 `json:"connected"`
	Display               Display              `json:"display"`
	Liveness              Liveness             `json:"liveness"`
	SelectedHeatID        string               `json:"selected_heat_id,omitempty"`
	Heats                 int                  `json:"heats"`
	Logs                  int                  `json:"logs"`
	RollingLogs           int                  `json:"rolling_logs"`
	RollingCapacity       int                  `json:"rolling_capacity"`
	CanEditTimingSettings bool                 `json:"can_edit_timing_settings"`
	TimingSettings        *wire.TimingSettings `json:"timing_settings,omitempty"`
	Image                 *Image               `json:"image,omitempty"`
	UnknownMessages       uint64               `json:"unknown_messages"`
}

// Snapshot returns the current state. Switching mode is only offered while
// the display is alive.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Connection: s.state.String(),
		Connected:  s.state == conn.Connected,
		Display: Display{
			Alive:                   s.display.Alive,
			ExternalPassthroughMode: s.display.ExternalPassthroughMode,
			CanSwitchMode:           s.display.CanSwitchMode && s.display.Alive,
		},
		Liveness: Liveness{
			Live:         s.monitor.Live(),
			LastSignalAt: s.monitor.LastSignalAt(),
			TimeText:     s.monitor.TimeText(),
			WindText:     s.monitor.WindText(),
		},
		SelectedHeatID:        s.pendingHeat,
		Heats:                 len(s.heats),
		Logs:                  len(s.logs),
		RollingLogs:           s.rolling.Len(),
		RollingCapacity:       s.rolling.Cap(),
		CanEditTimingSettings: s.timing != nil,
		UnknownMessages:       s.unknown,
	}
	if s.timing != nil {
		ts := *s.timing
		snap.TimingSettings = &ts
	}
	if s.image != nil {
		img := *s.image
		img.Data = nil
		snap.Image = &img
	}
	return snap
}

// Logs returns the log view, newest first, cut to limit when limit > 0.
func (s *Session) Logs(limit int) []wire.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	logs := s.logs
	if limit > 0 && limit < len(logs) {
		logs = logs[:limit]
	}
	return slices.Clone(logs)
}

// Heats returns the heat list sorted by scheduled start.
func (s *Session) Heats() []wire.HeatMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.heats == nil {
		return []wire.HeatMeta{}
	}
	return slices.Clone(s.heats)
}

// Heat returns the pending selection and the last heat data received.
func (s *Session) Heat() (string, json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingHeat, slices.Clone(s.heat)
}

// WindMeasurements returns the answer to the last wind value request.
func (s *Session) WindMeasurements() []wire.WindMeasurement {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wind == nil {
		return []wire.WindMeasurement{}
	}
	return slices.Clone(s.wind)
}

// Image returns the latest binary frame, if any.
func (s *Session) Image() (*Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil {
		return nil, false
	}
	img := *s.image
	return &img, true
}
