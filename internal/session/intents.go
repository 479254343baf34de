package session

import (
	"errors"
	"time"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/command"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// ErrInvalidHeatID is returned by SelectHeat for ids that are not UUIDs.
var ErrInvalidHeatID = errors.New("session: heat id is not a uuid")

func (s *Session) Idle()           { s.send(command.Idle()) }
func (s *Session) Advertisements() { s.send(command.Advertisements()) }
func (s *Session) Timing()         { s.send(command.Timing()) }
func (s *Session) StartList()      { s.send(command.StartList()) }
func (s *Session) ResultList()     { s.send(command.ResultList()) }
func (s *Session) GetHeats()       { s.send(command.GetHeats()) }

// FreeText shows text on the display.
func (s *Session) FreeText(text string) { s.send(command.FreeText(text)) }

// Clock shows the current time of day on the display.
func (s *Session) Clock() { s.send(command.Clock(s.now())) }

// RequestDisplayClientState asks for a fresh display state.
func (s *Session) RequestDisplayClientState() { s.send(command.RequestDisplayClientState()) }

// RequestTimingSettings asks the display client for its timing settings.
func (s *Session) RequestTimingSettings() { s.send(command.RequestTimingSettings()) }

// GetLogs requests the newest n log lines.
func (s *Session) GetLogs(n float64) { s.send(command.GetLogs(n)) }

// SwitchMode toggles the display passthrough. Switching is reported
// unavailable until the next display state arrives.
func (s *Session) SwitchMode() {
	s.mu.Lock()
	s.display.CanSwitchMode = false
	display := s.display
	s.mu.Unlock()
	s.publish(displayEvent(s.now(), display))
	s.send(command.SwitchMode())
}

// SelectHeat makes id the pending selection and requests its data. The
// selection is re-sent after every reconnect and every log push.
func (s *Session) SelectHeat(id string) error {
	msg, ok := command.SelectHeat(id)
	if !ok {
		s.log.Warn("ignoring heat selection", "id", id, "err", ErrInvalidHeatID)
		return ErrInvalidHeatID
	}
	s.mu.Lock()
	s.pendingHeat = msg.ID
	s.mu.Unlock()
	s.send(msg)
	return nil
}

// UpdateTimingSettings pushes new timing settings and keeps them as the
// local view until the display client answers.
func (s *Session) UpdateTimingSettings(ts wire.TimingSettings) {
	msg := command.UpdateTimingSettings(ts)
	s.mu.Lock()
	settings := msg.Settings
	s.timing = &settings
	s.mu.Unlock()
	s.send(msg)
}

// RequestWindValues asks for the wind readings stored between from and to.
func (s *Session) RequestWindValues(from, to time.Time) {
	s.send(command.RequestWindValues(from, to))
}
