// Package command builds outbound envelopes from application intents.
// Constructors are pure: they normalize their arguments so that nothing
// invalid reaches the wire, and leave transmission to the caller.
package command

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// MaxDecimalPlaces is the finest race time precision the display renders.
const MaxDecimalPlaces = 4

func Idle() wire.Idle { return wire.Idle{} }
func Advertisements() wire.Advertisements { return wire.Advertisements{} }
func Timing() wire.Timing { return wire.Timing{} }
func StartList() wire.StartList { return wire.StartList{} }
func ResultList() wire.ResultList { return wire.ResultList{} }
func SwitchMode() wire.SwitchMode { return wire.SwitchMode{} }
func GetHeats() wire.GetHeats { return wire.GetHeats{} }

func RequestTimingSettings() wire.RequestTimingSettings { return wire.RequestTimingSettings{} }

func RequestDisplayClientState() wire.RequestDisplayClientState {
	return wire.RequestDisplayClientState{}
}

// FreeText shows text on the display.
func FreeText(text string) wire.FreeText {
	return wire.FreeText{Text: text}
}

// GetLogs requests the newest n log lines. A negative or NaN count becomes
// 1, fractions are floored, and counts beyond uint32 are clamped.
func GetLogs(n float64) wire.GetLogs {
	switch {
	case math.IsNaN(n) || n < 0:
		n = 1
	case n > math.MaxUint32:
		n = math.MaxUint32
	}
	return wire.GetLogs{Count: uint32(math.Floor(n))}
}

// NormalizeHeatID returns the canonical form of a heat id. Heat ids are
// UUIDs; anything else is rejected.
func NormalizeHeatID(id string) (string, bool) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// SelectHeat requests the data of one heat. It reports false for an id
// that is not a UUID.
func SelectHeat(id string) (wire.SelectHeat, bool) {
	norm, ok := NormalizeHeatID(id)
	if !ok {
		return wire.SelectHeat{}, false
	}
	return wire.SelectHeat{ID: norm}, true
}

// Clock shows the local time of day of t on the display.
func Clock(t time.Time) wire.Clock {
	frac := uint32(t.Nanosecond()/int(time.Millisecond)) * 10
	return wire.Clock{Time: wire.DayTime{
		Hours:                        uint16(t.Hour()),
		Minutes:                      uint16(t.Minute()),
		Seconds:                      uint16(t.Second()),
		FractionalPartInTenThousands: &frac,
	}}
}

// UpdateTimingSettings pushes new timing settings to the display client.
// The decimal places are clamped to what the display can show.
func UpdateTimingSettings(s wire.TimingSettings) wire.UpdateTimingSettings {
	if s.MaxDecimalPlacesAfterComma > MaxDecimalPlaces {
		s.MaxDecimalPlacesAfterComma = MaxDecimalPlaces
	}
	return wire.UpdateTimingSettings{Settings: s}
}

// RequestWindValues asks for the stored wind readings between from and to.
// A reversed window is swapped.
func RequestWindValues(from, to time.Time) wire.RequestWindValues {
	if to.Before(from) {
		from, to = to, from
	}
	return wire.RequestWindValues{Window: wire.WindValueRequest{
		From: from.Format(wire.DateTimeLayout),
		To:   to.Format(wire.DateTimeLayout),
	}}
}
