package ctl

import (
	"fmt"
	"strings"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// CommandRequest is the body of POST /api/command.
type CommandRequest struct {
	Command  string               `json:"command"`
	Text     string               `json:"text,omitempty"`
	ID       string               `json:"id,omitempty"`
	Count    *float64             `json:"count,omitempty"`
	From     string               `json:"from,omitempty"`
	To       string               `json:"to,omitempty"`
	Settings *wire.TimingSettings `json:"settings,omitempty"`
}

type commandResponse struct {
	OK         bool   `json:"ok"`
	Command    string `json:"command"`
	Connection string `json:"connection"`
	Warning    string `json:"warning,omitempty"`
}

// Command sends a control command to the timing server through the daemon.
func Command(baseURL string, req CommandRequest, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp commandResponse
	if err := postJSON(baseURL, "/api/command", req, &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	if resp.Warning != "" {
		fmt.Fprintf(out, "\n  %s  %s: %s\n\n", colorize(yellow, "DROPPED"), resp.Command, resp.Warning)
		return nil
	}
	fmt.Fprintf(out, "\n  %s  %s %s\n\n", colorize(green, "SENT"), resp.Command, colorize(dim, "("+resp.Connection+")"))
	return nil
}

// UpdateTimingSettings fetches the current settings, lets patch modify them
// and sends the result back.
func UpdateTimingSettings(baseURL string, patch func(*wire.TimingSettings), jsonOutput bool) error {
	var s StateResponse
	if err := getJSON(baseURL, "/api/state", &s); err != nil {
		return err
	}
	if s.TimingSettings == nil {
		return fmt.Errorf("no timing settings received yet; run timing-settings first")
	}
	settings := *s.TimingSettings
	patch(&settings)
	return Command(baseURL, CommandRequest{Command: "update_timing_settings", Settings: &settings}, jsonOutput)
}
