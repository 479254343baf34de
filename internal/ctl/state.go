package ctl

import (
	"fmt"
	"time"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// StateResponse mirrors the session snapshot returned by GET /api/state.
type StateResponse struct {
	Connection string `json:"connection"`
	Connected  bool   `json:"connected"`
	Display    struct {
		Alive                   bool `json:"alive"`
		ExternalPassthroughMode bool `json:"external_passthrough_mode"`
		CanSwitchMode           bool `json:"can_switch_mode"`
	} `json:"display"`
	Liveness struct {
		Live         bool      `json:"live"`
		LastSignalAt time.Time `json:"last_signal_at"`
		TimeText     string    `json:"time_text"`
		WindText     string    `json:"wind_text"`
	} `json:"liveness"`
	SelectedHeatID        string               `json:"selected_heat_id"`
	Heats                 int                  `json:"heats"`
	Logs                  int                  `json:"logs"`
	RollingLogs           int                  `json:"rolling_logs"`
	RollingCapacity       int                  `json:"rolling_capacity"`
	CanEditTimingSettings bool                 `json:"can_edit_timing_settings"`
	TimingSettings        *wire.TimingSettings `json:"timing_settings"`
	Image                 *ImageMeta           `json:"image"`
	UnknownMessages       uint64               `json:"unknown_messages"`
}

// ImageMeta mirrors GET /api/image?meta=1.
type ImageMeta struct {
	Format     string    `json:"format"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Size       int       `json:"size"`
	ReceivedAt time.Time `json:"received_at"`
}

// State prints the session view the daemon keeps of the timing server.
func State(baseURL string, jsonOutput bool) error {
	var s StateResponse
	if err := getJSON(baseURL, "/api/state", &s); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(s)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, header("  SESSION STATE"))
	fmt.Fprintln(out, rule(50))
	fmt.Fprintf(out, "  %-16s %s\n", colorize(dim, "Connection:"), colorize(stateColor(s.Connection), s.Connection))

	fmt.Fprintf(out, "\n  %s\n", colorize(bold, "Display"))
	fmt.Fprintf(out, "    %-20s %s\n", colorize(dim, "alive:"), yesNo(s.Display.Alive))
	fmt.Fprintf(out, "    %-20s %s\n", colorize(dim, "passthrough:"), yesNo(s.Display.ExternalPassthroughMode))
	fmt.Fprintf(out, "    %-20s %s\n", colorize(dim, "can switch mode:"), yesNo(s.Display.CanSwitchMode))

	fmt.Fprintf(out, "\n  %s\n", colorize(bold, "Wind server"))
	fmt.Fprintf(out, "    %-20s %s\n", colorize(dim, "live:"), yesNo(s.Liveness.Live))
	last := "never"
	if !s.Liveness.LastSignalAt.IsZero() {
		last = s.Liveness.LastSignalAt.Local().Format("15:04:05")
	}
	fmt.Fprintf(out, "    %-20s %s\n", colorize(dim, "last signal:"), last)
	fmt.Fprintf(out, "    %-20s %s\n", colorize(dim, "time:"), s.Liveness.TimeText)
	fmt.Fprintf(out, "    %-20s %s\n", colorize(dim, "wind:"), s.Liveness.WindText)

	fmt.Fprintf(out, "\n  %s\n", colorize(bold, "Data"))
	heat := s.SelectedHeatID
	if heat == "" {
		heat = "none"
	}
	fmt.Fprintf(out, "    %-20s %s\n", colorize(dim, "selected heat:"), heat)
	fmt.Fprintf(out, "    %-20s %d\n", colorize(dim, "heats:"), s.Heats)
	fmt.Fprintf(out, "    %-20s %d (rolling %d/%d)\n", colorize(dim, "logs:"), s.Logs, s.RollingLogs, s.RollingCapacity)
	fmt.Fprintf(out, "    %-20s %s\n", colorize(dim, "timing editable:"), yesNo(s.CanEditTimingSettings))
	if s.Image != nil {
		fmt.Fprintf(out, "    %-20s %s %dx%d, %s\n", colorize(dim, "last frame:"),
			s.Image.Format, s.Image.Width, s.Image.Height, formatBytes(int64(s.Image.Size)))
	}
	if s.UnknownMessages > 0 {
		fmt.Fprintf(out, "    %-20s %s\n", colorize(dim, "unknown frames:"), colorize(yellow, fmt.Sprint(s.UnknownMessages)))
	}
	fmt.Fprintln(out)
	return nil
}

// TimingSettings prints the display client's timing settings as last seen.
func TimingSettings(baseURL string, jsonOutput bool) error {
	var s StateResponse
	if err := getJSON(baseURL, "/api/state", &s); err != nil {
		return err
	}
	if s.TimingSettings == nil {
		return fmt.Errorf("no timing settings received yet")
	}
	if jsonOutput {
		return printJSON(s.TimingSettings)
	}

	t := s.TimingSettings
	flags := []struct {
		name string
		v    bool
	}{
		{"fireworks on intermediate", t.FireworksOnIntermediate},
		{"fireworks on finish", t.FireworksOnFinish},
		{"sound on start", t.PlaySoundOnStart},
		{"sound on intermediate", t.PlaySoundOnIntermediate},
		{"sound on finish", t.PlaySoundOnFinish},
		{"can update meta", t.CanCurrentlyUpdateMeta},
		{"time continues running", t.TimeContinuesRunning},
		{"auto start list", t.SwitchToStartListAutomatically},
		{"auto timing", t.SwitchToTimingAutomatically},
		{"auto results", t.SwitchToResultsAutomatically},
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, header("  TIMING SETTINGS"))
	fmt.Fprintln(out, rule(50))
	fmt.Fprintf(out, "  %-28s %d\n", colorize(dim, "decimal places:"), t.MaxDecimalPlacesAfterComma)
	fmt.Fprintf(out, "  %-28s %s\n", colorize(dim, "hold time:"), (time.Duration(t.HoldTimeMS) * time.Millisecond).String())
	for _, f := range flags {
		fmt.Fprintf(out, "  %-28s %s\n", colorize(dim, f.name+":"), yesNo(f.v))
	}
	if !s.CanEditTimingSettings {
		fmt.Fprintf(out, "\n  %s\n", colorize(yellow, "settings are read-only right now"))
	}
	fmt.Fprintln(out)
	return nil
}
