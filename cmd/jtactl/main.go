// Jtactl is the command-line client for monitoring and controlling a running
// jtacontrold instance. It queries the mirrored timing state, sends display
// commands and streams live events over HTTP and WebSocket.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/ctl"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:8090", "jtacontrold URL (e.g. http://192.168.1.20:8090)")
		jsonOut = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		filter  = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter log,liveness)")
	)

	// Stop parsing global flags at the first non-flag argument (the command
	// name), so subcommand-specific flags like --from are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	send := func(req ctl.CommandRequest) error {
		return ctl.Command(*host, req, *jsonOut)
	}

	var err error
	switch cmd {
	// ── Query commands ────────────────────────────────────────────
	case "status":
		err = ctl.Status(*host, *jsonOut)

	case "health":
		err = ctl.Health(*host, *jsonOut)

	case "version":
		err = ctl.VersionInfo(*host, *jsonOut)

	case "state":
		err = ctl.State(*host, *jsonOut)

	case "config":
		err = ctl.Config(*host, *jsonOut)

	case "heats":
		err = ctl.Heats(*host, *jsonOut)

	case "heat":
		err = ctl.Heat(*host, *jsonOut)

	case "wind":
		err = ctl.Wind(*host, *jsonOut)

	case "timing-settings":
		err = ctl.TimingSettings(*host, *jsonOut)

	case "logs":
		opts := ctl.LogsOptions{JSON: *jsonOut}
		logFlags := pflag.NewFlagSet("logs", pflag.ContinueOnError)
		logFlags.IntVar(&opts.Limit, "limit", 0, "Limit number of log entries shown")
		logFlags.BoolVar(&opts.Tail, "tail", false, "Stream live log pushes")
		_ = logFlags.Parse(subArgs)
		err = ctl.Logs(*host, opts)

	case "image":
		imgFlags := pflag.NewFlagSet("image", pflag.ContinueOnError)
		path := imgFlags.StringP("output", "o", "", "Save the frame to this file")
		_ = imgFlags.Parse(subArgs)
		err = ctl.Image(*host, *path, *jsonOut)

	// ── Display commands ──────────────────────────────────────────
	case "idle":
		err = send(ctl.CommandRequest{Command: "idle"})

	case "advertisements":
		err = send(ctl.CommandRequest{Command: "advertisements"})

	case "timing":
		err = send(ctl.CommandRequest{Command: "timing"})

	case "start-list":
		err = send(ctl.CommandRequest{Command: "start_list"})

	case "result-list":
		err = send(ctl.CommandRequest{Command: "result_list"})

	case "clock":
		err = send(ctl.CommandRequest{Command: "clock"})

	case "switch-mode":
		err = send(ctl.CommandRequest{Command: "switch_mode"})

	case "freetext":
		if len(subArgs) < 1 {
			err = fmt.Errorf("usage: jtactl freetext <text>")
			break
		}
		err = send(ctl.CommandRequest{Command: "freetext", Text: strings.Join(subArgs, " ")})

	// ── Data commands ─────────────────────────────────────────────
	case "get-heats":
		err = send(ctl.CommandRequest{Command: "get_heats"})

	case "select-heat":
		if len(subArgs) < 1 {
			err = fmt.Errorf("usage: jtactl select-heat <heat-id>")
			break
		}
		err = send(ctl.CommandRequest{Command: "select_heat", ID: subArgs[0]})

	case "get-logs":
		logFlags := pflag.NewFlagSet("get-logs", pflag.ContinueOnError)
		count := logFlags.Float64("count", 10, "Number of log entries to request")
		_ = logFlags.Parse(subArgs)
		err = send(ctl.CommandRequest{Command: "get_logs", Count: count})

	case "display-state":
		err = send(ctl.CommandRequest{Command: "display_state"})

	case "request-timing-settings":
		err = send(ctl.CommandRequest{Command: "timing_settings"})

	case "set-timing":
		err = setTiming(*host, subArgs, *jsonOut)

	case "wind-values":
		windFlags := pflag.NewFlagSet("wind-values", pflag.ContinueOnError)
		from := windFlags.String("from", "", "Window start (RFC 3339 or 2006-01-02T15:04:05)")
		to := windFlags.String("to", "", "Window end (RFC 3339 or 2006-01-02T15:04:05)")
		_ = windFlags.Parse(subArgs)
		if *from == "" || *to == "" {
			err = fmt.Errorf("wind-values requires --from and --to")
			break
		}
		err = send(ctl.CommandRequest{Command: "wind_values", From: *from, To: *to})

	// ── Daemon control ────────────────────────────────────────────
	case "reconnect":
		err = ctl.Reconnect(*host, *jsonOut)

	case "reload":
		err = ctl.Reload(*host, *jsonOut)

	// ── Live ──────────────────────────────────────────────────────
	case "watch":
		err = ctl.Watch(*host, ctl.WatchOptions{Filter: *filter, JSON: *jsonOut})

	case "help", "-h", "--help":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setTiming applies only the flags the user passed on top of the current
// timing settings.
func setTiming(host string, args []string, jsonOut bool) error {
	fs := pflag.NewFlagSet("set-timing", pflag.ContinueOnError)
	decimals := fs.Uint8("decimals", 0, "Decimal places after the comma (0-4)")
	hold := fs.Uint32("hold-ms", 0, "Hold time in milliseconds")
	bools := map[string]*bool{
		"fireworks-intermediate": fs.Bool("fireworks-intermediate", false, "Fireworks on intermediate times"),
		"fireworks-finish":       fs.Bool("fireworks-finish", false, "Fireworks on finish"),
		"sound-start":            fs.Bool("sound-start", false, "Play sound on start"),
		"sound-intermediate":     fs.Bool("sound-intermediate", false, "Play sound on intermediate times"),
		"sound-finish":           fs.Bool("sound-finish", false, "Play sound on finish"),
		"time-continues":         fs.Bool("time-continues", false, "Keep the race time running after finish"),
		"auto-start-list":        fs.Bool("auto-start-list", false, "Switch to the start list automatically"),
		"auto-timing":            fs.Bool("auto-timing", false, "Switch to timing automatically"),
		"auto-results":           fs.Bool("auto-results", false, "Switch to results automatically"),
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	return ctl.UpdateTimingSettings(host, func(s *wire.TimingSettings) {
		set := func(name string, dst *bool) {
			if fs.Changed(name) {
				*dst = *bools[name]
			}
		}
		if fs.Changed("decimals") {
			s.MaxDecimalPlacesAfterComma = *decimals
		}
		if fs.Changed("hold-ms") {
			s.HoldTimeMS = *hold
		}
		set("fireworks-intermediate", &s.FireworksOnIntermediate)
		set("fireworks-finish", &s.FireworksOnFinish)
		set("sound-start", &s.PlaySoundOnStart)
		set("sound-intermediate", &s.PlaySoundOnIntermediate)
		set("sound-finish", &s.PlaySoundOnFinish)
		set("time-continues", &s.TimeContinuesRunning)
		set("auto-start-list", &s.SwitchToStartListAutomatically)
		set("auto-timing", &s.SwitchToTimingAutomatically)
		set("auto-results", &s.SwitchToResultsAutomatically)
	}, jsonOut)
}

func usage() {
	fmt.Print(`
  jtactl - JTA display wall control CLI

  USAGE
    jtactl [flags] <command> [command-flags]

  COMMANDS (query)
    status                  Show upstream connection, liveness and counts
    health                  Check that the daemon is reachable
    version                 Show CLI and daemon version information
    state                   Show the full mirrored session state
    config                  Show the daemon's running configuration
    heats                   List heats in scheduled start order
    heat                    Show the data of the selected heat
    logs                    Show the timing log view
    wind                    Show the last requested wind measurements
    timing-settings         Show the display client's timing settings
    image                   Show (and optionally save) the last display frame

  COMMANDS (display)
    idle                    Show the idle screen
    advertisements          Show advertisements
    timing                  Show the running race time
    start-list              Show the start list of the selected heat
    result-list             Show the results of the selected heat
    clock                   Show a clock synced to this machine
    freetext <text>         Show free text
    switch-mode             Toggle external passthrough mode

  COMMANDS (data)
    get-heats               Ask the server for the heat list
    select-heat <id>        Select a heat (UUID)
    get-logs                Ask the server for recent log entries
    display-state           Ask the display client for its state
    request-timing-settings Ask the display client for its timing settings
    set-timing              Change individual timing settings
    wind-values             Ask the wind server for values in a window

  COMMANDS (daemon)
    reconnect               Re-establish the upstream connection
    reload                  Reload configuration from disk

  COMMANDS (live)
    watch                   Stream live events from the daemon (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Daemon base URL (default: http://127.0.0.1:8090)
        --json          Output raw JSON instead of formatted text
        --filter TYPE   Event types to show in watch (comma-separated)

  COMMAND FLAGS
    logs:
        --limit N           Limit number of log entries shown
        --tail              Stream live log pushes

    image:
        -o, --output FILE   Save the frame to FILE

    get-logs:
        --count N           Number of entries to request (default: 10)

    wind-values:
        --from TIME         Window start
        --to TIME           Window end

    set-timing:
        --decimals N        Decimal places after the comma (0-4)
        --hold-ms N         Hold time in milliseconds
        --sound-start, --sound-finish, --auto-results, ...  (true/false)

  EXAMPLES
    jtactl status
    jtactl --json state
    jtactl --host http://192.168.1.20:8090 --filter log,liveness watch
    jtactl heats
    jtactl select-heat 7d0a3c52-4b67-4f77-9a19-2c6b8e6c3f10
    jtactl start-list
    jtactl freetext "Final 100m in 5 minutes"
    jtactl logs --tail
    jtactl get-logs --count 25
    jtactl set-timing --decimals 2 --sound-start=true
    jtactl wind-values --from 2026-06-01T10:00:00 --to 2026-06-01T10:05:00
    jtactl image -o frame.bmp

`)
}
