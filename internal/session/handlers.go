package session

import (
	"slices"
	"strings"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/dispatch"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/liveness"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/telemetry"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

func (s *Session) register(d *dispatch.Dispatcher) {
	dispatch.On(d, s.onDisplayClientState)
	dispatch.On(d, s.onHeatsMeta)
	dispatch.On(d, s.onLogs)
	dispatch.On(d, s.onHeatData)
	dispatch.On(d, s.onTimingSettings)
	dispatch.On(d, s.onWindMeasurements)
	d.HandleBinary(s.onImage)
	d.HandleUnknown(s.onUnknown)
}

func (s *Session) onDisplayClientState(m wire.DisplayClientState) {
	s.mu.Lock()
	s.display = m
	s.mu.Unlock()
	s.publish(displayEvent(s.now(), m))
}

func (s *Session) onHeatsMeta(m wire.HeatsMeta) {
	heats := slices.Clone(m.Heats)
	if heats == nil {
		heats = []wire.HeatMeta{}
	}
	slices.SortStableFunc(heats, func(a, b wire.HeatMeta) int {
		return strings.Compare(a.ScheduledStartTimeString, b.ScheduledStartTimeString)
	})
	s.mu.Lock()
	s.heats = heats
	s.mu.Unlock()
	s.publish(telemetry.Heats{Event: telemetry.At(telemetry.EventHeats, s.now()), Heats: heats})
}

// onLogs handles both shapes of a Logs message. A single entry is a push:
// wind polling lines only feed liveness, everything else is folded into the
// rolling view. Any other length answers GetLogs and replaces the view.
func (s *Session) onLogs(m wire.Logs) {
	now := s.now()

	if len(m.Entries) == 1 {
		entry := m.Entries[0]
		reading := liveness.Inspect(entry.Data)

		s.mu.Lock()
		wasLive := s.monitor.Live()
		polling := s.monitor.Observe(reading, now)
		live := s.livenessEvent(now)
		if !polling {
			s.rolling.Unshift(entry)
			s.logs = s.rolling.ToSlice()
		}
		s.mu.Unlock()

		if live.Live != wasLive {
			s.liveChanged(live)
		}
		// Polling lines arrive every second; they skip the heats and
		// selection refresh that other log activity triggers.
		if polling {
			return
		}
		s.publish(telemetry.Log{Event: telemetry.At(telemetry.EventLog, now), Entry: entry})
	} else {
		entries := slices.Clone(m.Entries)
		if entries == nil {
			entries = []wire.LogEntry{}
		}

		s.mu.Lock()
		s.logs = entries
		s.rolling.Reset()
		seed := entries[:min(len(entries), s.rolling.Cap())]
		for i := len(seed) - 1; i >= 0; i-- {
			s.rolling.Unshift(seed[i])
		}
		s.mu.Unlock()

		s.publish(telemetry.Logs{Event: telemetry.At(telemetry.EventLogs, now), Entries: entries})
	}

	// New log activity may come with new heats or changed heat data.
	s.send(s.refresh()...)
}

func (s *Session) refresh() []wire.Message {
	msgs := []wire.Message{wire.GetHeats{}}
	s.mu.Lock()
	if s.pendingHeat != "" {
		msgs = append(msgs, wire.SelectHeat{ID: s.pendingHeat})
	}
	s.mu.Unlock()
	return msgs
}

func (s *Session) onHeatData(m wire.HeatDataMessage) {
	s.mu.Lock()
	s.heat = m.Data
	id := s.pendingHeat
	s.mu.Unlock()
	s.publish(telemetry.Heat{Event: telemetry.At(telemetry.EventHeat, s.now()), ID: id, Data: m.Data})
}

func (s *Session) onTimingSettings(m wire.TimingSettingsState) {
	settings := m.Settings
	s.mu.Lock()
	s.timing = &settings
	s.mu.Unlock()
	s.publish(telemetry.TimingSettings{Event: telemetry.At(telemetry.EventTimingSettings, s.now()), Settings: settings})
}

func (s *Session) onWindMeasurements(m wire.WindMeasurements) {
	measurements := m.Measurements
	if measurements == nil {
		measurements = []wire.WindMeasurement{}
	}
	s.mu.Lock()
	s.wind = measurements
	s.mu.Unlock()
	s.publish(telemetry.WindMeasurements{Event: telemetry.At(telemetry.EventWindMeasurements, s.now()), Measurements: measurements})
}

func (s *Session) onImage(data []byte) {
	img := probeImage(data, s.now())
	if img.Format == FormatUnknown {
		s.log.Warn("binary frame is not a known image format", "size", len(data))
	}
	s.mu.Lock()
	s.image = img
	s.mu.Unlock()
	s.publish(telemetry.Image{
		Event:  telemetry.At(telemetry.EventImage, img.ReceivedAt),
		Format: img.Format,
		Width:  img.Width,
		Height: img.Height,
		Size:   len(img.Data),
	})
}

func (s *Session) onUnknown(m wire.Unknown) {
	s.mu.Lock()
	s.unknown++
	s.mu.Unlock()
	s.log.Error("received unknown message type", "type", m.Type, "reason", m.Reason, "size", len(m.Raw))
}
