package liveness

import "time"

// Sentinels shown while the wind server is not live.
const (
	UnsyncedTime = "Not synced (start any Race in Camera Program to fix)"
	UnsyncedWind = "----"
)

// DefaultThreshold is how long a polling signal keeps the wind server live.
const DefaultThreshold = 5 * time.Second

// Monitor tracks the last liveness signal and the last observed wind time
// and value. It does no locking and reads no clock; callers pass the
// current time in.
type Monitor struct {
	threshold    time.Duration
	lastSignalAt time.Time
	live         bool

	timeText string
	windText string
}

// NewMonitor returns a monitor that is not live at now. A non-positive
// threshold selects DefaultThreshold.
func NewMonitor(threshold time.Duration, now time.Time) *Monitor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Monitor{
		threshold:    threshold,
		lastSignalAt: now.Add(-2 * threshold),
		timeText:     UnsyncedTime,
		windText:     UnsyncedWind,
	}
}

// Observe applies a reading taken at the given time. The time and wind
// strings are updated whenever the reading carries them; the signal clock
// is refreshed only for a polling reading. It reports whether the reading
// was a liveness signal.
func (m *Monitor) Observe(r Reading, at time.Time) bool {
	if r.HasTime {
		if r.Time == nil {
			m.timeText = UnsyncedTime
		} else {
			m.timeText = r.Time.String()
		}
	}
	if r.Wind != nil {
		m.windText = r.Wind.String()
	}
	if !r.Signal() {
		return false
	}
	m.lastSignalAt = at
	m.recompute(at)
	return true
}

// Tick recomputes liveness at now and reports whether it changed. Going
// down resets the time and wind strings to their sentinels.
func (m *Monitor) Tick(now time.Time) bool {
	return m.recompute(now)
}

func (m *Monitor) recompute(now time.Time) bool {
	live := now.Sub(m.lastSignalAt) <= m.threshold
	if live == m.live {
		return false
	}
	m.live = live
	if !live {
		m.timeText = UnsyncedTime
		m.windText = UnsyncedWind
	}
	return true
}

// Live reports the liveness computed at the last Tick or signal.
func (m *Monitor) Live() bool { return m.live }

// LastSignalAt returns when the last polling signal was observed.
func (m *Monitor) LastSignalAt() time.Time { return m.lastSignalAt }

// Threshold returns the configured threshold.
func (m *Monitor) Threshold() time.Duration { return m.threshold }

// TimeText is the last observed wind measurement time, or UnsyncedTime.
func (m *Monitor) TimeText() string { return m.timeText }

// WindText is the last observed wind value, or UnsyncedWind.
func (m *Monitor) WindText() string { return m.windText }
