package ctl

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// WatchOptions controls the watch command behavior.
type WatchOptions struct {
	Filter []string // event types to show (empty = all)
	JSON   bool     // output raw JSON per event
}

// wsURL turns the daemon's HTTP base URL into its /ws endpoint.
func wsURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// Watch connects to the daemon's WebSocket endpoint and streams events to
// the terminal in a human-readable format until interrupted.
func Watch(baseURL string, opts WatchOptions) error {
	target, err := wsURL(baseURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if !opts.JSON {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  %s %s\n", colorize(green, "connected"), colorize(dim, target))
		if len(opts.Filter) > 0 {
			fmt.Fprintf(out, "  %s %s\n", colorize(dim, "filter:"), colorize(dim, strings.Join(opts.Filter, ", ")))
		}
		fmt.Fprintln(out, rule(50))
		fmt.Fprintln(out)
	}

	filterSet := make(map[string]bool, len(opts.Filter))
	for _, f := range opts.Filter {
		filterSet[f] = true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if !passes(filterSet, msg) {
				continue
			}
			if opts.JSON {
				fmt.Fprintln(out, string(msg))
			} else {
				renderEvent(msg)
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case <-sig:
		if !opts.JSON {
			fmt.Fprintln(out)
			fmt.Fprintln(out, colorize(dim, "  disconnecting..."))
		}
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(1*time.Second),
		)
		return nil
	case <-done:
		return nil
	}
}

func passes(filter map[string]bool, msg []byte) bool {
	if len(filter) == 0 {
		return true
	}
	var ev struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &ev); err != nil {
		return true
	}
	return filter[ev.Type]
}

// renderEvent parses a JSON event and prints it in a human-friendly format.
// Falls back to raw JSON for unrecognized event types.
func renderEvent(raw []byte) {
	var ev map[string]any
	if err := json.Unmarshal(raw, &ev); err != nil {
		fmt.Fprintf(out, "  %s\n", string(raw))
		return
	}

	evType, _ := ev["type"].(string)
	ts := formatEventTime(ev)

	switch evType {
	case "heartbeat":
		state, _ := ev["connection"].(string)
		uptime, _ := ev["uptime_seconds"].(float64)
		fmt.Fprintf(out, "  %s %s  %s  up %s\n",
			colorize(dim, ts),
			colorize(dim, "heartbeat"),
			colorize(stateColor(state), state),
			colorize(dim, formatDuration(time.Duration(uptime)*time.Second)),
		)

	case "state":
		state, _ := ev["connection"].(string)
		heats, _ := ev["heats"].(float64)
		logs, _ := ev["logs"].(float64)
		fmt.Fprintf(out, "  %s %s  %s  %d heats, %d logs\n",
			colorize(dim, ts),
			colorize(bold, "STATE"),
			colorize(stateColor(state), state),
			int(heats), int(logs),
		)

	case "connection":
		state, _ := ev["state"].(string)
		u, _ := ev["url"].(string)
		fmt.Fprintf(out, "  %s %s  %s %s\n",
			colorize(dim, ts),
			colorize(bold, "UPSTREAM"),
			colorize(stateColor(state), state),
			colorize(dim, u),
		)

	case "liveness":
		live, _ := ev["live"].(bool)
		timeText, _ := ev["time_text"].(string)
		windText, _ := ev["wind_text"].(string)
		fmt.Fprintf(out, "  %s %s  live=%s  %s  %s\n",
			colorize(dim, ts), colorize(cyan, "WIND"), yesNo(live), timeText, windText)

	case "display":
		alive, _ := ev["alive"].(bool)
		pass, _ := ev["external_passthrough_mode"].(bool)
		can, _ := ev["can_switch_mode"].(bool)
		fmt.Fprintf(out, "  %s %s  alive=%s  passthrough=%s  can_switch=%s\n",
			colorize(dim, ts), colorize(cyan, "DISPLAY"), yesNo(alive), yesNo(pass), yesNo(can))

	case "log":
		var e struct {
			Entry wire.LogEntry `json:"entry"`
		}
		_ = json.Unmarshal(raw, &e)
		printLogEntry(colorize(dim, ts)+" ", e.Entry)

	case "logs":
		entries, _ := ev["entries"].([]any)
		fmt.Fprintf(out, "  %s %s  %d entries\n", colorize(dim, ts), colorize(cyan, "LOGS"), len(entries))

	case "heats":
		heats, _ := ev["heats"].([]any)
		fmt.Fprintf(out, "  %s %s  %d heats\n", colorize(dim, ts), colorize(cyan, "HEATS"), len(heats))

	case "heat":
		id, _ := ev["id"].(string)
		fmt.Fprintf(out, "  %s %s  %s\n", colorize(dim, ts), colorize(cyan, "HEAT"), id)

	case "timing_settings":
		fmt.Fprintf(out, "  %s %s  updated\n", colorize(dim, ts), colorize(cyan, "TIMING"))

	case "wind_measurements":
		ms, _ := ev["measurements"].([]any)
		fmt.Fprintf(out, "  %s %s  %d measurements\n", colorize(dim, ts), colorize(cyan, "WIND VALUES"), len(ms))

	case "image":
		format, _ := ev["format"].(string)
		w, _ := ev["width"].(float64)
		h, _ := ev["height"].(float64)
		size, _ := ev["size"].(float64)
		fmt.Fprintf(out, "  %s %s  %s %dx%d %s\n",
			colorize(dim, ts), colorize(cyan, "FRAME"), format, int(w), int(h), formatBytes(int64(size)))

	case "message":
		level, _ := ev["level"].(string)
		message, _ := ev["message"].(string)
		fmt.Fprintf(out, "  %s %s  %s\n", colorize(dim, ts), formatLogLevel(level), message)

	default:
		pretty, err := json.MarshalIndent(ev, "  ", "  ")
		if err != nil {
			fmt.Fprintf(out, "  %s\n", string(raw))
			return
		}
		fmt.Fprintf(out, "  %s\n", string(pretty))
	}
}

// formatEventTime extracts and shortens the timestamp from an event.
func formatEventTime(ev map[string]any) string {
	tsRaw, ok := ev["ts"].(string)
	if !ok {
		return "        "
	}
	t, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		if len(tsRaw) > 8 {
			return tsRaw[:8]
		}
		return tsRaw
	}
	return t.Local().Format("15:04:05")
}

// formatLogLevel returns a colored, fixed-width log level label.
func formatLogLevel(level string) string {
	switch level {
	case "info":
		return colorize(green, "INFO ")
	case "warn":
		return colorize(yellow, "WARN ")
	case "error":
		return colorize(red, "ERROR")
	default:
		return padRight(level, 5)
	}
}
