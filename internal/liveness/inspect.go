// Package liveness infers whether the wind server is up from traffic that
// passes through the timing server anyway. The wind server logs a polling
// measurement roughly every second, and those log lines are pushed to the
// control client like any other log line. No polling line for longer than
// the threshold means the wind server is gone.
package liveness

import (
	"encoding/json"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// Reading is what Inspect could extract from one log payload.
type Reading struct {
	// HasTime is set when the payload has a "time" field. Time is nil when
	// that field is null.
	HasTime bool
	Time    *wire.DayTime

	// Wind is set when the payload has a "wind" field.
	Wind *wire.RaceWind

	// Polling is set when probable_measurement_type is "Polling".
	Polling bool
}

// Signal reports whether the reading counts as a liveness signal.
func (r Reading) Signal() bool { return r.Polling }

// Inspect parses a log entry's data payload. Payloads that are not a JSON
// object, or whose known fields have the wrong shape, yield the zero Reading.
func Inspect(payload string) Reading {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return Reading{}
	}

	var r Reading
	if raw, ok := fields["time"]; ok {
		var dt *wire.DayTime
		if err := json.Unmarshal(raw, &dt); err == nil {
			r.HasTime = true
			r.Time = dt
		}
	}
	if raw, ok := fields["wind"]; ok {
		var w wire.RaceWind
		if err := json.Unmarshal(raw, &w); err == nil {
			r.Wind = &w
		}
	}
	if raw, ok := fields["probable_measurement_type"]; ok {
		var kind wire.WindMeasurementType
		if err := json.Unmarshal(raw, &kind); err == nil {
			r.Polling = kind == wire.MeasurementPolling
		}
	}
	return r
}
