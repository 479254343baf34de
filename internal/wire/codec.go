package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

type envelope struct {
	Type Tag             `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type decoderFunc func(data json.RawMessage) (Message, error)

// decoders is the closed set of recognized tags.
var decoders = map[Tag]decoderFunc{
	TagDisplayClientState:  payloadOf(func(v DisplayClientState) Message { return v }),
	TagHeatsMeta:           payloadOf(func(v []HeatMeta) Message { return HeatsMeta{Heats: v} }),
	TagLogs:                payloadOf(func(v []LogEntry) Message { return Logs{Entries: v} }),
	TagHeatDataMessage:     payloadOf(func(v json.RawMessage) Message { return HeatDataMessage{Data: v} }),
	TagTimingSettingsState: payloadOf(func(v TimingSettings) Message { return TimingSettingsState{Settings: v} }),
	TagWindMeasurements:    payloadOf(func(v []WindMeasurement) Message { return WindMeasurements{Measurements: v} }),

	TagIdle:                      unit(Idle{}),
	TagAdvertisements:            unit(Advertisements{}),
	TagFreeText:                  payloadOf(func(v string) Message { return FreeText{Text: v} }),
	TagRequestDisplayClientState: unit(RequestDisplayClientState{}),
	TagSwitchMode:                unit(SwitchMode{}),
	TagGetHeats:                  unit(GetHeats{}),
	TagGetLogs:                   payloadOf(func(v uint32) Message { return GetLogs{Count: v} }),
	TagSelectHeat:                payloadOf(func(v string) Message { return SelectHeat{ID: v} }),
	TagTiming:                    unit(Timing{}),
	TagStartList:                 unit(StartList{}),
	TagResultList:                unit(ResultList{}),
	TagClock:                     payloadOf(func(v DayTime) Message { return Clock{Time: v} }),
	TagUpdateTimingSettings:      payloadOf(func(v TimingSettings) Message { return UpdateTimingSettings{Settings: v} }),
	TagRequestTimingSettings:     unit(RequestTimingSettings{}),
	TagRequestWindValues:         payloadOf(func(v WindValueRequest) Message { return RequestWindValues{Window: v} }),
}

var errMissingData = errors.New("missing data field")

func payloadOf[T any](wrap func(T) Message) decoderFunc {
	return func(data json.RawMessage) (Message, error) {
		if len(data) == 0 {
			return nil, errMissingData
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return wrap(v), nil
	}
}

func unit(m Message) decoderFunc {
	return func(json.RawMessage) (Message, error) { return m, nil }
}

// Known reports whether t is part of the recognized tag set.
func Known(t Tag) bool {
	_, ok := decoders[t]
	return ok
}

// Decode turns one text frame into a Message. It never fails: frames that
// are not envelopes, carry an unrecognized tag, or have a payload of the
// wrong shape all come back as Unknown.
func Decode(raw []byte) Message {
	frame := bytes.Clone(raw)

	var env struct {
		Type *string         `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		return Unknown{Raw: frame, Reason: "not an envelope: " + err.Error()}
	}
	if env.Type == nil {
		return Unknown{Data: env.Data, Raw: frame, Reason: "missing type field"}
	}

	u := Unknown{Type: *env.Type, Data: env.Data, Raw: frame}
	dec, ok := decoders[Tag(*env.Type)]
	if !ok {
		return u
	}
	m, err := dec(env.Data)
	if err != nil {
		u.Reason = fmt.Sprintf("malformed %s payload: %v", *env.Type, err)
		return u
	}
	return m
}

// Encode serializes m as an envelope. An Unknown is written back with its
// original type and data.
func Encode(m Message) ([]byte, error) {
	if u, ok := m.(Unknown); ok {
		return json.Marshal(envelope{Type: Tag(u.Type), Data: u.Data})
	}

	env := envelope{Type: m.Tag()}
	if p, ok := m.(payloader); ok {
		b, err := json.Marshal(p.payload())
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", m.Tag(), err)
		}
		env.Data = b
	}
	return json.Marshal(env)
}
