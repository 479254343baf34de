package ctl

import (
	"fmt"
	"strings"
	"time"
)

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name            string `json:"name"`
	Connection      string `json:"connection"`
	Upstream        string `json:"upstream"`
	Mode            string `json:"mode"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	DisplayAlive    bool   `json:"display_alive"`
	WindLive        bool   `json:"wind_live"`
	SelectedHeat    string `json:"selected_heat"`
	Heats           int    `json:"heats"`
	Logs            int    `json:"logs"`
	RollingCapacity int    `json:"rolling_capacity"`
	WSClients       int    `json:"ws_clients"`
	WSDropped       uint64 `json:"ws_dropped"`
	UnknownFrames   uint64 `json:"unknown_frames"`
}

// Status fetches the daemon status and prints a formatted summary.
func Status(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var s StatusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(s)
	}

	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)
	heat := s.SelectedHeat
	if heat == "" {
		heat = colorize(dim, "none")
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, header("  JTA CONTROL STATUS"))
	fmt.Fprintln(out, rule(38))
	fmt.Fprintf(out, "  %-12s %s (%s)\n", colorize(dim, "Daemon:"), s.Name, s.Mode)
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Upstream:"), colorize(stateColor(s.Connection), s.Connection))
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "URL:"), s.Upstream)
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Uptime:"), uptime)
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Display:"), yesNo(s.DisplayAlive))
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Wind:"), yesNo(s.WindLive))
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Heat:"), heat)
	fmt.Fprintf(out, "  %-12s %d heats, %d logs (rolling %d)\n", colorize(dim, "Data:"), s.Heats, s.Logs, s.RollingCapacity)
	fmt.Fprintf(out, "  %-12s %d clients, %d dropped\n", colorize(dim, "WebSocket:"), s.WSClients, s.WSDropped)
	if s.UnknownFrames > 0 {
		fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Unknown:"), colorize(yellow, fmt.Sprintf("%d frames", s.UnknownFrames)))
	}
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Host:"), baseURL)
	fmt.Fprintln(out)

	return nil
}
