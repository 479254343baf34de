package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/conn"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/session"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// CommandRequest is the body of POST /api/command. Only the fields the
// named command uses are read.
type CommandRequest struct {
	Command  string               `json:"command"`
	Text     string               `json:"text,omitempty"`
	ID       string               `json:"id,omitempty"`
	Count    *float64             `json:"count,omitempty"`
	From     string               `json:"from,omitempty"`
	To       string               `json:"to,omitempty"`
	Settings *wire.TimingSettings `json:"settings,omitempty"`
}

var errUnknownCommand = errors.New("unknown command")

type commandFunc func(s *session.Session, req CommandRequest) error

var commands = map[string]commandFunc{
	"idle":            simple((*session.Session).Idle),
	"advertisements":  simple((*session.Session).Advertisements),
	"timing":          simple((*session.Session).Timing),
	"start_list":      simple((*session.Session).StartList),
	"result_list":     simple((*session.Session).ResultList),
	"clock":           simple((*session.Session).Clock),
	"switch_mode":     simple((*session.Session).SwitchMode),
	"get_heats":       simple((*session.Session).GetHeats),
	"display_state":   simple((*session.Session).RequestDisplayClientState),
	"timing_settings": simple((*session.Session).RequestTimingSettings),
	"freetext": func(s *session.Session, req CommandRequest) error {
		s.FreeText(req.Text)
		return nil
	},
	"select_heat": func(s *session.Session, req CommandRequest) error {
		return s.SelectHeat(req.ID)
	},
	"get_logs": func(s *session.Session, req CommandRequest) error {
		if req.Count == nil {
			return errors.New("count is required")
		}
		s.GetLogs(*req.Count)
		return nil
	},
	"update_timing_settings": func(s *session.Session, req CommandRequest) error {
		if req.Settings == nil {
			return errors.New("settings are required")
		}
		s.UpdateTimingSettings(*req.Settings)
		return nil
	},
	"wind_values": func(s *session.Session, req CommandRequest) error {
		from, err := parseWindTime(req.From)
		if err != nil {
			return fmt.Errorf("from: %w", err)
		}
		to, err := parseWindTime(req.To)
		if err != nil {
			return fmt.Errorf("to: %w", err)
		}
		s.RequestWindValues(from, to)
		return nil
	},
}

func simple(fn func(*session.Session)) commandFunc {
	return func(s *session.Session, _ CommandRequest) error {
		fn(s)
		return nil
	}
}

// CommandNames lists every command POST /api/command accepts.
func CommandNames() []string {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// parseWindTime accepts RFC 3339 or the server's naive local layout.
func parseWindTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Local(), nil
	}
	return time.ParseInLocation(wire.DateTimeLayout, s, time.Local)
}

func (a *App) runCommand(req CommandRequest) error {
	fn, ok := commands[req.Command]
	if !ok {
		return fmt.Errorf("%w %q", errUnknownCommand, req.Command)
	}
	return fn(a.session, req)
}

func (a *App) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := a.runCommand(req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Sends while disconnected are dropped upstream; say so.
	state := a.manager.State()
	resp := map[string]any{
		"ok":         true,
		"command":    req.Command,
		"connection": state.String(),
	}
	if state != conn.Connected {
		resp["warning"] = "upstream not connected, command dropped"
	}
	writeJSON(w, http.StatusOK, resp)
}
