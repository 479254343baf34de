// Package app wires together the upstream connection, the session, the
// local HTTP API and the WebSocket event hub, and optionally the demo
// timing server. It owns the daemon's lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/config"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/conn"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/demo"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/metrics"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/session"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/telemetry"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/ws"
)

// Options holds everything the App needs from the caller.
type Options struct {
	Logger *slog.Logger
	// Level, when set, follows logging.level across reloads.
	Level      *slog.LevelVar
	Cfg        config.Config
	ConfigPath string
	// Bind overrides server.bind.
	Bind string
	// Dialer overrides the upstream dialer.
	Dialer conn.Dialer
}

// App is the top-level daemon process.
type App struct {
	log        *slog.Logger
	level      *slog.LevelVar
	bind       string
	startedAt  time.Time
	cfgMu      sync.RWMutex
	cfg        config.Config
	configPath string

	registry *prometheus.Registry
	metrics  *metrics.Metrics
	hub      *ws.Hub
	session  *session.Session
	manager  *conn.Manager
	demo     *demo.Server

	addr atomic.Value // listen address once serving
}

// New builds the App and all its components. Nothing runs until Run.
func New(opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	cfg := opts.Cfg
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	a := &App{
		log:        log,
		level:      opts.Level,
		bind:       opts.Bind,
		startedAt:  time.Now(),
		cfg:        cfg,
		configPath: opts.ConfigPath,
		registry:   prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)
	a.hub = ws.NewHub(ws.Options{Logger: log, Greeting: a.greeting})

	sess, err := session.New(session.Options{
		Logger:            log,
		Metrics:           a.metrics,
		Events:            a.hub,
		LogCapacity:       cfg.Logs.RollingCapacity,
		LivenessThreshold: cfg.Liveness.Timeout(),
		TickInterval:      cfg.Liveness.PollInterval(),
	})
	if err != nil {
		return nil, err
	}
	a.session = sess

	dialer := opts.Dialer
	if dialer == nil {
		dialer = conn.WebsocketDialer{HandshakeTimeout: cfg.Reconnect.HandshakeTimeout()}
	}
	a.manager = conn.NewManager(conn.Options{
		URL:     cfg.UpstreamURL(),
		Dialer:  dialer,
		Logger:  log,
		Metrics: a.metrics,
		Delays: conn.Delays{
			Settle:     cfg.Reconnect.Settle(),
			CloseRetry: cfg.Reconnect.CloseRetry(),
			ErrorRetry: cfg.Reconnect.ErrorRetry(),
		},
		Handler:      sess,
		Resync:       sess.Resync,
		OnState:      sess.SetConnectionState,
		WriteTimeout: cfg.Reconnect.WriteTimeout(),
		ReadTimeout:  cfg.Reconnect.ReadTimeout(),
	})
	sess.Attach(a.manager)

	if cfg.Demo.Enabled {
		a.demo = demo.New(demo.Options{
			Logger:          log,
			PollingInterval: cfg.Demo.PollingInterval(),
			ImageInterval:   cfg.Demo.ImageInterval(),
		})
	}
	return a, nil
}

// Session exposes the sync client state.
func (a *App) Session() *session.Session { return a.session }

// Addr returns the HTTP listen address once Run is serving, or "".
func (a *App) Addr() string {
	s, _ := a.addr.Load().(string)
	return s
}

func (a *App) getConfig() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	cfg := a.getConfig()
	bind := a.bind
	if bind == "" {
		bind = cfg.Server.Bind
	}

	srv := &http.Server{
		Addr:              bind,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	a.addr.Store(ln.Addr().String())
	a.log.Info("listening", "addr", "http://"+ln.Addr().String(), "upstream", a.manager.URL())

	g, ctx := errgroup.WithContext(ctx)

	if a.demo != nil {
		g.Go(func() error { return a.demo.ListenAndServe(ctx, cfg.Demo.Bind) })
	}
	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})
	g.Go(func() error { return a.session.Run(ctx) })
	g.Go(func() error { return a.manager.Run(ctx) })
	g.Go(func() error {
		a.heartbeatLoop(ctx)
		return nil
	})
	if a.configPath != "" {
		g.Go(func() error {
			if err := config.Watch(ctx, a.configPath, 0, a.log, a.applyConfig); err != nil {
				a.log.Warn("config watch disabled", "err", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return g.Wait()
}

// applyConfig swaps in a reloaded config. Only the upstream URL and the log
// level take effect live; everything else needs a restart.
func (a *App) applyConfig(next config.Config) {
	a.cfgMu.Lock()
	prev := a.cfg
	a.cfg = next
	a.cfgMu.Unlock()

	if a.level != nil {
		if lvl, err := config.ParseLevel(next.Logging.Level); err == nil {
			a.level.Set(lvl)
		}
	}
	if next.UpstreamURL() != prev.UpstreamURL() {
		a.log.Info("upstream changed, reconnecting", "from", prev.UpstreamURL(), "to", next.UpstreamURL())
		a.manager.SetURL(next.UpstreamURL())
		a.manager.Connect()
	}
	a.emit("info", "configuration applied")
}

// heartbeatLoop sends a periodic heartbeat event so clients can detect
// connectivity and track uptime without polling.
func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			a.hub.BroadcastJSON(telemetry.Heartbeat{
				Event:         telemetry.At(telemetry.EventHeartbeat, now),
				Connection:    a.manager.State().String(),
				UptimeSeconds: int64(time.Since(a.startedAt).Seconds()),
			})
		}
	}
}

type stateEvent struct {
	telemetry.Event
	session.Snapshot
}

func (a *App) greeting() any {
	return stateEvent{Event: telemetry.At(telemetry.EventState, time.Now()), Snapshot: a.session.Snapshot()}
}

// emit pushes a daemon message to every connected WebSocket client.
func (a *App) emit(level, msg string) {
	a.hub.BroadcastJSON(telemetry.Message{
		Event:   telemetry.At(telemetry.EventMessage, time.Now()),
		Level:   level,
		Message: msg,
	})
}
