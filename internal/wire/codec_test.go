package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u32(v uint32) *uint32 { return &v }

func sampleMessages() []Message {
	settings := TimingSettings{
		FireworksOnFinish:            true,
		MaxDecimalPlacesAfterComma:   2,
		HoldTimeMS:                   10000,
		PlaySoundOnStart:             true,
		SwitchToResultsAutomatically: true,
	}
	return []Message{
		DisplayClientState{Alive: true, ExternalPassthroughMode: false, CanSwitchMode: true},
		HeatsMeta{Heats: []HeatMeta{{ID: "a", Name: "100m", Number: 1, ScheduledStartTimeString: "10:00"}}},
		HeatsMeta{Heats: []HeatMeta{}},
		Logs{Entries: []LogEntry{{NameKey: "heat_starts", StoredAt: "2025-06-01T10:00:00", Data: `{"x":1}`}}},
		HeatDataMessage{Data: json.RawMessage(`{"meta":{"id":"a"},"start":null}`)},
		TimingSettingsState{Settings: settings},
		WindMeasurements{Measurements: []WindMeasurement{{
			Wind:                    RaceWind{BackWind: true, WholeNumberPart: 1, FractionPart: 3},
			ProbableMeasurementType: MeasurementRace10s,
			Time:                    &DayTime{Hours: 10, Minutes: 3, Seconds: 4, FractionalPartInTenThousands: u32(1200)},
		}}},
		Idle{},
		Advertisements{},
		FreeText{Text: "Welcome"},
		FreeText{Text: ""},
		RequestDisplayClientState{},
		SwitchMode{},
		GetHeats{},
		GetLogs{Count: 10},
		SelectHeat{ID: "4d0c3a04-3b7e-4f43-9bd5-2a3f1f6c0e11"},
		Timing{},
		StartList{},
		ResultList{},
		Clock{Time: DayTime{Hours: 23, Minutes: 59, Seconds: 1, FractionalPartInTenThousands: u32(50)}},
		UpdateTimingSettings{Settings: settings},
		RequestTimingSettings{},
		RequestWindValues{Window: WindValueRequest{From: "2025-06-01T10:00:00", To: "2025-06-01T11:00:00"}},
	}
}

func TestRoundTripEveryTag(t *testing.T) {
	seen := map[Tag]bool{}
	for _, m := range sampleMessages() {
		b, err := Encode(m)
		require.NoError(t, err, "%T", m)

		got := Decode(b)
		assert.Equal(t, m.Tag(), got.Tag(), "frame %s", b)
		assert.Equal(t, m, got, "frame %s", b)
		seen[m.Tag()] = true
	}
	for tag := range decoders {
		assert.True(t, seen[tag], "no round-trip sample for %s", tag)
	}
}

func TestUnitVariantsOmitData(t *testing.T) {
	b, err := Encode(GetHeats{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"GetHeats"}`, string(b))

	b, err = Encode(GetLogs{Count: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"GetLogs","data":3}`, string(b))
}

func TestUnknownTagKeepsPayload(t *testing.T) {
	frames := []string{
		`{"type":"BrandNewThing","data":{"a":[1,2,3],"b":"c"}}`,
		`{"type":"Unknown","data":17}`,
		`{"type":"NoData"}`,
		`{"type":"","data":null}`,
	}
	for _, f := range frames {
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(f), &env))

		m := Decode([]byte(f))
		u, ok := m.(Unknown)
		require.True(t, ok, "frame %s decoded to %T", f, m)
		assert.Equal(t, TagUnknown, u.Tag())
		assert.Equal(t, env.Type, u.Type)
		assert.Equal(t, env.Data, u.Data)
		assert.Equal(t, []byte(f), u.Raw)
		assert.Empty(t, u.Reason)
	}
}

func TestMalformedFramesDecodeToUnknown(t *testing.T) {
	frames := []string{
		``,
		`not json`,
		`[1,2,3]`,
		`"Logs"`,
		`null`,
		`{"data":[]}`,
		`{"type":5}`,
		`{"type":"Logs"}`,
		`{"type":"Logs","data":"nope"}`,
		`{"type":"GetLogs","data":-4}`,
		`{"type":"DisplayClientState","data":[true]}`,
	}
	for _, f := range frames {
		m := Decode([]byte(f))
		u, ok := m.(Unknown)
		require.True(t, ok, "frame %q decoded to %T", f, m)
		assert.NotEmpty(t, u.Reason, "frame %q", f)
	}
}

func TestDecodeServerFrames(t *testing.T) {
	m := Decode([]byte(`{"type":"Logs","data":[
		{"name_key":"wind","stored_at":"2025-06-01 10:00:00","data":"{\"probable_measurement_type\":\"Polling\"}"},
		{"name_key":"heat_start","stored_at":"2025-06-01 09:59:00","data":"{}"}]}`))
	logs, ok := m.(Logs)
	require.True(t, ok)
	require.Len(t, logs.Entries, 2)
	assert.Equal(t, "wind", logs.Entries[0].NameKey)

	m = Decode([]byte(`{"type":"DisplayClientState","data":{"alive":true,"external_passthrough_mode":true,"can_switch_mode":false}}`))
	assert.Equal(t, DisplayClientState{Alive: true, ExternalPassthroughMode: true}, m)
}

func TestEncodeUnknownWritesOriginal(t *testing.T) {
	u := Decode([]byte(`{"type":"Future","data":{"k":1}}`))
	b, err := Encode(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Future","data":{"k":1}}`, string(b))
}

func TestKnown(t *testing.T) {
	assert.True(t, Known(TagLogs))
	assert.True(t, Known(TagSelectHeat))
	assert.False(t, Known(TagUnknown))
	assert.False(t, Known("Nope"))
}
