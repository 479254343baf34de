package app

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/config"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/conn"
)

// Handler returns the daemon's HTTP API.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", a.handleHealthz)
	mux.HandleFunc("GET /api/status", a.handleStatus)
	mux.HandleFunc("GET /api/version", a.handleVersion)
	mux.HandleFunc("GET /api/state", a.handleState)
	mux.HandleFunc("GET /api/logs", a.handleLogs)
	mux.HandleFunc("GET /api/heats", a.handleHeats)
	mux.HandleFunc("GET /api/heat", a.handleHeat)
	mux.HandleFunc("GET /api/wind", a.handleWind)
	mux.HandleFunc("GET /api/image", a.handleImage)
	mux.HandleFunc("GET /api/config", a.handleConfig)
	mux.HandleFunc("POST /api/command", a.handleCommand)
	mux.HandleFunc("POST /api/reconnect", a.handleReconnect)
	mux.HandleFunc("POST /api/reload", a.handleReload)
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
	mux.Handle("GET /ws", a.hub.Handler())
	return mux
}

// ---------------------------------------------------------------------------
// Core handlers
// ---------------------------------------------------------------------------

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	// If the client asks for JSON, return component-level health checks.
	if r.Header.Get("Accept") == "application/json" {
		a.handleHealthDetailed(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleHealthDetailed(w http.ResponseWriter, _ *http.Request) {
	snap := a.session.Snapshot()
	state := a.manager.State()

	checks := map[string]any{
		"upstream": map[string]any{
			"ok":    state == conn.Connected,
			"state": state.String(),
			"url":   a.manager.URL(),
		},
		"display": map[string]any{
			"ok":    snap.Display.Alive,
			"alive": snap.Display.Alive,
		},
		"wind_server": map[string]any{
			"ok":             snap.Liveness.Live,
			"last_signal_at": snap.Liveness.LastSignalAt,
		},
		"websocket": map[string]any{
			"ok":      true,
			"clients": a.hub.Clients(),
		},
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     state == conn.Connected,
		"checks": checks,
	})
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	cfg := a.getConfig()
	snap := a.session.Snapshot()

	resp := map[string]any{
		"name":             "jtacontrold",
		"connection":       a.manager.State().String(),
		"upstream":         a.manager.URL(),
		"uptime_seconds":   int64(time.Since(a.startedAt).Seconds()),
		"display_alive":    snap.Display.Alive,
		"wind_live":        snap.Liveness.Live,
		"selected_heat":    snap.SelectedHeatID,
		"heats":            snap.Heats,
		"logs":             snap.Logs,
		"ws_clients":       a.hub.Clients(),
		"ws_dropped":       a.hub.Dropped(),
		"unknown_frames":   snap.UnknownMessages,
		"rolling_capacity": snap.RollingCapacity,
	}
	if cfg.Demo.Enabled {
		resp["mode"] = "demo"
	} else {
		resp["mode"] = "live"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, BuildVersion())
}

func (a *App) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.getConfig())
}

// ---------------------------------------------------------------------------
// Session views
// ---------------------------------------------------------------------------

func (a *App) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.session.Snapshot())
}

func (a *App) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			jsonError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": a.session.Logs(limit)})
}

func (a *App) handleHeats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"heats": a.session.Heats()})
}

func (a *App) handleHeat(w http.ResponseWriter, _ *http.Request) {
	id, data := a.session.Heat()
	if id == "" && data == nil {
		jsonError(w, "no heat selected", http.StatusNotFound)
		return
	}
	resp := map[string]any{"id": id}
	if data != nil {
		resp["data"] = data
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleWind(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"measurements": a.session.WindMeasurements()})
}

func (a *App) handleImage(w http.ResponseWriter, r *http.Request) {
	img, ok := a.session.Image()
	if !ok {
		jsonError(w, "no frame received yet", http.StatusNotFound)
		return
	}
	if r.URL.Query().Get("meta") != "" {
		writeJSON(w, http.StatusOK, img)
		return
	}
	w.Header().Set("Content-Type", img.ContentType())
	w.Header().Set("Last-Modified", img.ReceivedAt.UTC().Format(http.TimeFormat))
	_, _ = w.Write(img.Data)
}

// ---------------------------------------------------------------------------
// Control
// ---------------------------------------------------------------------------

func (a *App) handleReconnect(w http.ResponseWriter, _ *http.Request) {
	a.manager.Connect()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "reconnect requested",
	})
}

func (a *App) handleReload(w http.ResponseWriter, _ *http.Request) {
	if a.configPath == "" {
		jsonError(w, "no config file path set", http.StatusInternalServerError)
		return
	}
	newCfg, err := config.Load(a.configPath)
	if err != nil {
		jsonError(w, "config reload failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	a.applyConfig(newCfg)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "configuration reloaded from " + a.configPath,
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]any{
		"ok":    false,
		"error": msg,
	})
}
