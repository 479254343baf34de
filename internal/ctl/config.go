package ctl

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config fetches and displays the daemon's running configuration.
func Config(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var raw json.RawMessage
	if err := getJSON(baseURL, "/api/config", &raw); err != nil {
		return err
	}

	if jsonOutput {
		var v any
		_ = json.Unmarshal(raw, &v)
		return printJSON(v)
	}

	var cfg struct {
		Upstream struct {
			URL string `json:"url"`
		} `json:"upstream"`
		Server struct {
			Bind string `json:"bind"`
		} `json:"server"`
		Logging struct {
			Level string `json:"level"`
		} `json:"logging"`
		Reconnect struct {
			SettleMS           int `json:"settle_ms"`
			CloseRetryMS       int `json:"close_retry_ms"`
			ErrorRetryMS       int `json:"error_retry_ms"`
			HandshakeTimeoutMS int `json:"handshake_timeout_ms"`
			WriteTimeoutMS     int `json:"write_timeout_ms"`
			ReadTimeoutMS      int `json:"read_timeout_ms"`
		} `json:"reconnect"`
		Liveness struct {
			TimeoutMS      int `json:"timeout_ms"`
			PollIntervalMS int `json:"poll_interval_ms"`
		} `json:"liveness"`
		Logs struct {
			RollingCapacity int `json:"rolling_capacity"`
		} `json:"logs"`
		Demo struct {
			Enabled           bool   `json:"enabled"`
			Bind              string `json:"bind"`
			PollingIntervalMS int    `json:"polling_interval_ms"`
			ImageIntervalMS   int    `json:"image_interval_ms"`
		} `json:"demo"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, header("  DAEMON CONFIGURATION"))
	fmt.Fprintln(out, rule(50))

	section := func(name string) {
		fmt.Fprintf(out, "\n  %s\n", colorize(bold, "["+name+"]"))
	}
	field := func(key string, val any) {
		fmt.Fprintf(out, "    %-22s %v\n", colorize(dim, key+":"), val)
	}

	section("upstream")
	field("url", cfg.Upstream.URL)

	section("server")
	field("bind", cfg.Server.Bind)

	section("logging")
	field("level", cfg.Logging.Level)

	section("reconnect")
	field("settle_ms", cfg.Reconnect.SettleMS)
	field("close_retry_ms", cfg.Reconnect.CloseRetryMS)
	field("error_retry_ms", cfg.Reconnect.ErrorRetryMS)
	field("handshake_timeout_ms", cfg.Reconnect.HandshakeTimeoutMS)
	field("write_timeout_ms", cfg.Reconnect.WriteTimeoutMS)
	field("read_timeout_ms", cfg.Reconnect.ReadTimeoutMS)

	section("liveness")
	field("timeout_ms", cfg.Liveness.TimeoutMS)
	field("poll_interval_ms", cfg.Liveness.PollIntervalMS)

	section("logs")
	field("rolling_capacity", cfg.Logs.RollingCapacity)

	section("demo")
	field("enabled", cfg.Demo.Enabled)
	field("bind", cfg.Demo.Bind)
	field("polling_interval_ms", cfg.Demo.PollingIntervalMS)
	field("image_interval_ms", cfg.Demo.ImageIntervalMS)

	fmt.Fprintln(out)

	return nil
}
