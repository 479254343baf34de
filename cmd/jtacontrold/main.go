// Jtacontrold is the live control client for a JTA display wall server.
//
// It keeps one WebSocket connection to the timing server alive, mirrors the
// display and timing state it reports, and exposes that state plus the
// control commands over a local HTTP/WebSocket API. With --demo it runs an
// in-process simulated timing server instead. Shutdown is handled
// gracefully on SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/app"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/config"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "Path to config TOML (defaults are used when empty)")
		bind       = pflag.String("bind", "", "HTTP bind address (overrides server.bind)")
		upstream   = pflag.StringP("upstream", "u", "", "Timing server WebSocket URL (overrides upstream.url)")
		demo       = pflag.Bool("demo", false, "Run against the built-in simulated timing server")
		logLevel   = pflag.String("log-level", "", "Log level: debug, info, warn, error (overrides logging.level)")
	)
	pflag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, "config load failed:", err)
			os.Exit(1)
		}
	}
	if *upstream != "" {
		cfg.Upstream.URL = *upstream
	}
	if *demo {
		cfg.Demo.Enabled = true
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	lvl, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
	level := new(slog.LevelVar)
	level.Set(lvl)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	a, err := app.New(app.Options{
		Logger:     logger,
		Level:      level,
		Cfg:        cfg,
		ConfigPath: *configPath,
		Bind:       *bind,
	})
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("jtacontrold failed", "err", err)
		os.Exit(1)
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}
