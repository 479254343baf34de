// Package config handles loading, defaulting, and validation of the
// jtacontrold TOML configuration file. Every section maps to a typed struct
// so the rest of the codebase gets strong typing without manual key lookups.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Upstream  UpstreamConfig  `toml:"upstream"  json:"upstream"`
	Server    ServerConfig    `toml:"server"    json:"server"`
	Logging   LoggingConfig   `toml:"logging"   json:"logging"`
	Reconnect ReconnectConfig `toml:"reconnect" json:"reconnect"`
	Liveness  LivenessConfig  `toml:"liveness"  json:"liveness"`
	Logs      LogsConfig      `toml:"logs"      json:"logs"`
	Demo      DemoConfig      `toml:"demo"      json:"demo"`
}

type UpstreamConfig struct {
	URL string `toml:"url" json:"url"`
}

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
}

type ReconnectConfig struct {
	SettleMS           int `toml:"settle_ms"            json:"settle_ms"`
	CloseRetryMS       int `toml:"close_retry_ms"       json:"close_retry_ms"`
	ErrorRetryMS       int `toml:"error_retry_ms"       json:"error_retry_ms"`
	HandshakeTimeoutMS int `toml:"handshake_timeout_ms" json:"handshake_timeout_ms"`
	WriteTimeoutMS     int `toml:"write_timeout_ms"     json:"write_timeout_ms"`
	ReadTimeoutMS      int `toml:"read_timeout_ms"      json:"read_timeout_ms"`
}

type LivenessConfig struct {
	TimeoutMS      int `toml:"timeout_ms"       json:"timeout_ms"`
	PollIntervalMS int `toml:"poll_interval_ms" json:"poll_interval_ms"`
}

type LogsConfig struct {
	RollingCapacity int `toml:"rolling_capacity" json:"rolling_capacity"`
}

// DemoConfig enables the built-in simulated timing server. When enabled
// the daemon connects to it instead of upstream.url.
type DemoConfig struct {
	Enabled           bool   `toml:"enabled"             json:"enabled"`
	Bind              string `toml:"bind"                json:"bind"`
	PollingIntervalMS int    `toml:"polling_interval_ms" json:"polling_interval_ms"`
	ImageIntervalMS   int    `toml:"image_interval_ms"   json:"image_interval_ms"`
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Upstream: UpstreamConfig{
			URL: "ws://127.0.0.1:8080/ws/",
		},
		Server: ServerConfig{
			Bind: "127.0.0.1:8090",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Reconnect: ReconnectConfig{
			SettleMS:           500,
			CloseRetryMS:       1000,
			ErrorRetryMS:       2000,
			HandshakeTimeoutMS: 5000,
			WriteTimeoutMS:     3000,
			ReadTimeoutMS:      0,
		},
		Liveness: LivenessConfig{
			TimeoutMS:      5000,
			PollIntervalMS: 500,
		},
		Logs: LogsConfig{
			RollingCapacity: 10,
		},
		Demo: DemoConfig{
			Enabled:           false,
			Bind:              "127.0.0.1:8081",
			PollingIntervalMS: 1000,
			ImageIntervalMS:   5000,
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result. An error is returned if the file can't be read,
// parsed, or if any constraint is violated.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks every constraint Load enforces.
func (c Config) Validate() error {
	u, err := url.Parse(c.Upstream.URL)
	if err != nil {
		return fmt.Errorf("upstream.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.New("upstream.url must use ws:// or wss://")
	}
	if c.Server.Bind == "" {
		return errors.New("server.bind must not be empty")
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	r := c.Reconnect
	if r.SettleMS < 0 || r.CloseRetryMS <= 0 || r.ErrorRetryMS <= 0 {
		return errors.New("reconnect delays must be > 0 (settle_ms >= 0)")
	}
	if r.HandshakeTimeoutMS < 0 || r.WriteTimeoutMS < 0 || r.ReadTimeoutMS < 0 {
		return errors.New("reconnect timeouts must be >= 0")
	}
	if c.Liveness.TimeoutMS <= 0 {
		return errors.New("liveness.timeout_ms must be > 0")
	}
	if c.Liveness.PollIntervalMS <= 0 {
		return errors.New("liveness.poll_interval_ms must be > 0")
	}
	if c.Logs.RollingCapacity <= 0 {
		return errors.New("logs.rolling_capacity must be > 0")
	}
	if c.Demo.Enabled && c.Demo.Bind == "" {
		return errors.New("demo.bind must not be empty when demo is enabled")
	}
	if c.Demo.PollingIntervalMS < 0 || c.Demo.ImageIntervalMS < 0 {
		return errors.New("demo intervals must be >= 0")
	}
	return nil
}

// ParseLevel maps a logging.level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level %q must be debug, info, warn or error", s)
	}
}

// UpstreamURL is the URL the client dials: the demo server when enabled,
// upstream.url otherwise.
func (c Config) UpstreamURL() string {
	if c.Demo.Enabled {
		return "ws://" + c.Demo.Bind + "/ws/"
	}
	return c.Upstream.URL
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (r ReconnectConfig) Settle() time.Duration           { return ms(r.SettleMS) }
func (r ReconnectConfig) CloseRetry() time.Duration       { return ms(r.CloseRetryMS) }
func (r ReconnectConfig) ErrorRetry() time.Duration       { return ms(r.ErrorRetryMS) }
func (r ReconnectConfig) HandshakeTimeout() time.Duration { return ms(r.HandshakeTimeoutMS) }
func (r ReconnectConfig) WriteTimeout() time.Duration     { return ms(r.WriteTimeoutMS) }
func (r ReconnectConfig) ReadTimeout() time.Duration      { return ms(r.ReadTimeoutMS) }

func (l LivenessConfig) Timeout() time.Duration      { return ms(l.TimeoutMS) }
func (l LivenessConfig) PollInterval() time.Duration { return ms(l.PollIntervalMS) }

func (d DemoConfig) PollingInterval() time.Duration { return ms(d.PollingIntervalMS) }
func (d DemoConfig) ImageInterval() time.Duration   { return ms(d.ImageIntervalMS) }
