package demo

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// handle reacts to one web control message the way the timing server does.
// Display commands are logged and the log line is pushed to every client.
func (s *Server) handle(c *client, m wire.Message) {
	s.mu.Lock()
	s.received = append(s.received, m.Tag())
	s.mu.Unlock()

	switch m := m.(type) {
	case wire.Idle, wire.Advertisements, wire.Timing, wire.StartList, wire.ResultList:
		s.logAndPush(string(m.Tag()), map[string]any{})
	case wire.FreeText:
		s.logAndPush(string(m.Tag()), map[string]any{"text": m.Text})
	case wire.Clock:
		s.logAndPush(string(m.Tag()), m.Time)

	case wire.RequestDisplayClientState:
		s.reply(c, s.Display())

	case wire.SwitchMode:
		s.mu.Lock()
		if s.display.CanSwitchMode {
			s.display.ExternalPassthroughMode = !s.display.ExternalPassthroughMode
		}
		state := s.display
		s.mu.Unlock()
		s.broadcast(state)

	case wire.GetHeats:
		s.mu.Lock()
		heats := append([]wire.HeatMeta(nil), s.heats...)
		s.mu.Unlock()
		s.reply(c, wire.HeatsMeta{Heats: heats})

	case wire.GetLogs:
		s.mu.Lock()
		n := min(int(m.Count), len(s.logs))
		logs := append([]wire.LogEntry{}, s.logs[:n]...)
		s.mu.Unlock()
		s.reply(c, wire.Logs{Entries: logs})

	case wire.SelectHeat:
		id, err := uuid.Parse(m.ID)
		if err != nil {
			s.log.Error("select heat: id is not a uuid", "id", m.ID, "err", err)
			return
		}
		s.mu.Lock()
		data, ok := s.heatData[id.String()]
		s.mu.Unlock()
		if !ok {
			s.log.Error("select heat: no such heat", "id", id)
			return
		}
		s.reply(c, wire.HeatDataMessage{Data: data})

	case wire.RequestTimingSettings:
		s.mu.Lock()
		ts := s.timing
		s.mu.Unlock()
		s.reply(c, wire.TimingSettingsState{Settings: ts})

	case wire.UpdateTimingSettings:
		s.mu.Lock()
		s.timing = m.Settings
		s.mu.Unlock()
		s.broadcast(wire.TimingSettingsState{Settings: m.Settings})

	case wire.RequestWindValues:
		s.reply(c, wire.WindMeasurements{Measurements: s.windBetween(m.Window)})

	case wire.Unknown:
		s.log.Warn("unknown message from web control", "type", m.Type, "reason", m.Reason)

	default:
		s.log.Warn("unexpected message from web control", "type", m.Tag())
	}
}

func (s *Server) logAndPush(name string, data any) {
	line := s.entry(name, data)
	s.mu.Lock()
	s.logs = prependLog(s.logs, line, maxLogs)
	s.mu.Unlock()
	s.broadcast(wire.Logs{Entries: []wire.LogEntry{line}})
}

// maxLogs bounds the demo log; GetLogs only ever reads its head.
const maxLogs = 500

// prependLog puts line first, dropping the oldest entry once limit is reached.
func prependLog(logs []wire.LogEntry, line wire.LogEntry, limit int) []wire.LogEntry {
	if len(logs) < limit {
		logs = append(logs, wire.LogEntry{})
	}
	copy(logs[1:], logs[:len(logs)-1])
	logs[0] = line
	return logs
}

// windBetween fabricates one race measurement per minute of the window,
// capped at ten.
func (s *Server) windBetween(w wire.WindValueRequest) []wire.WindMeasurement {
	from, err1 := time.ParseInLocation(wire.DateTimeLayout, w.From, time.Local)
	to, err2 := time.ParseInLocation(wire.DateTimeLayout, w.To, time.Local)
	out := []wire.WindMeasurement{}
	if err1 != nil || err2 != nil || to.Before(from) {
		s.log.Warn("bad wind value window", "from", w.From, "to", w.To)
		return out
	}
	for t := from; !t.After(to) && len(out) < 10; t = t.Add(time.Minute) {
		dt := dayTime(t)
		out = append(out, wire.WindMeasurement{
			Wind:                    wire.RaceWind{BackWind: true, WholeNumberPart: uint16(t.Minute() % 3), FractionPart: uint8(t.Minute() % 10)},
			ProbableMeasurementType: wire.MeasurementRace10s,
			Time:                    &dt,
		})
	}
	return out
}
