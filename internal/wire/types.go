package wire

import (
	"encoding/json"
	"fmt"
)

// DayTime is a wall-clock time of day as produced by the camera program.
// FractionalPartInTenThousands is null when the source had no sub-second part.
type DayTime struct {
	Hours                        uint16  `json:"hours"`
	Minutes                      uint16  `json:"minutes"`
	Seconds                      uint16  `json:"seconds"`
	FractionalPartInTenThousands *uint32 `json:"fractional_part_in_ten_thousands"`
}

// String renders the time as HH:MM:SS.
func (d DayTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", d.Hours, d.Minutes, d.Seconds)
}

// RaceWind is a wind reading in tenths of m/s. BackWind is false for head wind.
type RaceWind struct {
	BackWind        bool   `json:"back_wind"`
	WholeNumberPart uint16 `json:"whole_number_part"`
	FractionPart    uint8  `json:"fraction_part"`
}

// String renders the wind as a signed value with one decimal, e.g. "+1.2".
func (w RaceWind) String() string {
	sign := "-"
	if w.BackWind {
		sign = "+"
	}
	return fmt.Sprintf("%s%d.%d", sign, w.WholeNumberPart, w.FractionPart%10)
}

// WindMeasurementType classifies a wind reading by the measurement window
// the wind server believes it belongs to.
type WindMeasurementType string

const (
	MeasurementPolling                 WindMeasurementType = "Polling"
	MeasurementUnidentifiedMeasurement WindMeasurementType = "UnidentifiedMeasurement"
	MeasurementRace10s                 WindMeasurementType = "Race10s"
	MeasurementRace13s                 WindMeasurementType = "Race13s"
	MeasurementJump5s                  WindMeasurementType = "Jump5s"
	MeasurementOther8s                 WindMeasurementType = "Other8s"
	MeasurementOther12s                WindMeasurementType = "Other12s"
)

// WindMeasurement is one stored wind reading.
type WindMeasurement struct {
	Wind                    RaceWind            `json:"wind"`
	ProbableMeasurementType WindMeasurementType `json:"probable_measurement_type"`
	Time                    *DayTime            `json:"time"`
}

// HeatMeta is the list view of a heat.
type HeatMeta struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	Number                   uint32 `json:"number"`
	ScheduledStartTimeString string `json:"scheduled_start_time_string"`
}

// LogEntry is one row of the server's instruction log. Data is itself a
// JSON document whose shape depends on NameKey.
type LogEntry struct {
	NameKey  string `json:"name_key"`
	StoredAt string `json:"stored_at"`
	Data     string `json:"data"`
}

// TimingSettings are the display client's timing presentation settings.
type TimingSettings struct {
	FireworksOnIntermediate        bool   `json:"fireworks_on_intermediate"`
	FireworksOnFinish              bool   `json:"fireworks_on_finish"`
	MaxDecimalPlacesAfterComma     uint8  `json:"max_decimal_places_after_comma"`
	HoldTimeMS                     uint32 `json:"hold_time_ms"`
	PlaySoundOnStart               bool   `json:"play_sound_on_start"`
	PlaySoundOnIntermediate        bool   `json:"play_sound_on_intermediate"`
	PlaySoundOnFinish              bool   `json:"play_sound_on_finish"`
	CanCurrentlyUpdateMeta         bool   `json:"can_currently_update_meta"`
	TimeContinuesRunning           bool   `json:"time_continues_running"`
	SwitchToStartListAutomatically bool   `json:"switch_to_start_list_automatically"`
	SwitchToTimingAutomatically    bool   `json:"switch_to_timing_automatically"`
	SwitchToResultsAutomatically   bool   `json:"switch_to_results_automatically"`
}

// WindValueRequest is the time window of a wind value query. Both bounds
// use the server's naive local date-time layout (see DateTimeLayout).
type WindValueRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DateTimeLayout is the naive date-time layout the server expects.
const DateTimeLayout = "2006-01-02T15:04:05"

// HeatData is the selected heat's full record. Its shape is owned by the
// timing domain, so it is carried opaquely.
type HeatData = json.RawMessage
