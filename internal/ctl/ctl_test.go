package ctl

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := out
	out = buf
	t.Cleanup(func() { out = prev })
	return buf
}

func serveJSON(t *testing.T, routes map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, body := range routes {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(body)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStatusRendersSummary(t *testing.T) {
	buf := capture(t)
	srv := serveJSON(t, map[string]any{
		"GET /api/status": map[string]any{
			"name":           "jtacontrold",
			"connection":     "connected",
			"upstream":       "ws://timing:8080/ws/",
			"mode":           "live",
			"uptime_seconds": 3725,
			"display_alive":  true,
			"heats":          4,
			"logs":           10,
		},
	})

	require.NoError(t, Status(srv.URL, false))
	text := buf.String()
	assert.Contains(t, text, "JTA CONTROL STATUS")
	assert.Contains(t, text, "ws://timing:8080/ws/")
	assert.Contains(t, text, "1h 2m 5s")
	assert.Contains(t, text, "4 heats, 10 logs")
	assert.NotContains(t, text, "\033[", "no color when output is not a terminal")
}

func TestStatusJSON(t *testing.T) {
	buf := capture(t)
	srv := serveJSON(t, map[string]any{
		"GET /api/status": map[string]any{"name": "jtacontrold", "connection": "disconnected"},
	})

	require.NoError(t, Status(srv.URL, true))
	var got StatusResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "disconnected", got.Connection)
}

func TestAPIErrorBody(t *testing.T) {
	capture(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error":"unknown command \"nope\""}`))
	}))
	t.Cleanup(srv.Close)

	err := Command(srv.URL, CommandRequest{Command: "nope"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "nope"`)
}

func TestCommandPostsRequest(t *testing.T) {
	buf := capture(t)
	var got CommandRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/command", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true, "command": got.Command, "connection": "connected",
		})
	}))
	t.Cleanup(srv.Close)

	require.NoError(t, Command(srv.URL, CommandRequest{Command: "freetext", Text: "Final 100m"}, false))
	assert.Equal(t, "freetext", got.Command)
	assert.Equal(t, "Final 100m", got.Text)
	assert.Contains(t, buf.String(), "SENT")
}

func TestCommandReportsDrop(t *testing.T) {
	buf := capture(t)
	srv := serveJSON(t, map[string]any{
		"POST /api/command": map[string]any{
			"ok": true, "command": "idle", "connection": "disconnected",
			"warning": "upstream not connected, command dropped",
		},
	})

	require.NoError(t, Command(srv.URL, CommandRequest{Command: "idle"}, false))
	assert.Contains(t, buf.String(), "DROPPED")
}

func TestUpdateTimingSettingsPatchesCurrent(t *testing.T) {
	capture(t)
	var sent CommandRequest
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"timing_settings": wire.TimingSettings{HoldTimeMS: 1500, PlaySoundOnStart: true},
		})
	})
	mux.HandleFunc("POST /api/command", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&sent)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "command": sent.Command})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	err := UpdateTimingSettings(srv.URL, func(s *wire.TimingSettings) { s.MaxDecimalPlacesAfterComma = 2 }, true)
	require.NoError(t, err)
	require.NotNil(t, sent.Settings)
	assert.Equal(t, "update_timing_settings", sent.Command)
	assert.Equal(t, uint8(2), sent.Settings.MaxDecimalPlacesAfterComma)
	assert.Equal(t, uint32(1500), sent.Settings.HoldTimeMS)
	assert.True(t, sent.Settings.PlaySoundOnStart)
}

func TestUpdateTimingSettingsNeedsState(t *testing.T) {
	capture(t)
	srv := serveJSON(t, map[string]any{"GET /api/state": map[string]any{}})

	err := UpdateTimingSettings(srv.URL, func(*wire.TimingSettings) {}, false)
	assert.Error(t, err)
}

func TestImageSavesFrame(t *testing.T) {
	buf := capture(t)
	frame := []byte("BM-not-really")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/image", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("meta") != "" {
			_ = json.NewEncoder(w).Encode(ImageMeta{Format: "bmp", Width: 96, Height: 32, Size: len(frame)})
			return
		}
		_, _ = w.Write(frame)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "frame.bmp")
	require.NoError(t, Image(srv.URL, path, false))

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, frame, saved)
	assert.Contains(t, buf.String(), "96x32")
}

func TestHealthUnreachableJSON(t *testing.T) {
	buf := capture(t)
	require.NoError(t, Health("http://127.0.0.1:1", true))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, false, got["healthy"])
}

func TestWSURL(t *testing.T) {
	u, err := wsURL("http://127.0.0.1:8090/")
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:8090/ws", u)

	u, err = wsURL("https://control.example/api?x=1")
	require.NoError(t, err)
	assert.Equal(t, "wss://control.example/ws", u)

	_, err = wsURL("ftp://host")
	assert.Error(t, err)
}

func TestFilterPasses(t *testing.T) {
	filter := map[string]bool{"log": true}
	assert.True(t, passes(filter, []byte(`{"type":"log"}`)))
	assert.False(t, passes(filter, []byte(`{"type":"heartbeat"}`)))
	assert.True(t, passes(nil, []byte(`{"type":"heartbeat"}`)))
}

func TestRenderEvents(t *testing.T) {
	buf := capture(t)
	renderEvent([]byte(`{"type":"log","ts":"2026-01-02T10:00:00Z","entry":{"name_key":"race_start","stored_at":"2026-01-02 10:00:00","data":"{}"}}`))
	renderEvent([]byte(`{"type":"connection","state":"connecting","url":"ws://x/ws/"}`))
	renderEvent([]byte(`{"type":"image","format":"bmp","width":96,"height":32,"size":9270}`))
	renderEvent([]byte(`not json`))

	text := buf.String()
	assert.Contains(t, text, "race_start")
	assert.Contains(t, text, "UPSTREAM")
	assert.Contains(t, text, "bmp 96x32 9.1 KB")
	assert.Contains(t, text, "not json")
}

func TestHealthReportsChecks(t *testing.T) {
	buf := capture(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"ok":false,"checks":{
			"upstream":{"ok":false,"state":"connecting","url":"ws://timing:8080/ws/"},
			"display":{"ok":false},
			"wind_server":{"ok":false,"last_signal_at":"0001-01-01T00:00:00Z"},
			"websocket":{"ok":true,"clients":2}}}`))
	}))
	t.Cleanup(srv.Close)

	require.NoError(t, Health(srv.URL, false))
	text := buf.String()
	assert.Contains(t, text, "DEGRADED")
	assert.Contains(t, text, "connecting ws://timing:8080/ws/")
	assert.Contains(t, text, "Watchers:")
	assert.NotContains(t, text, "last signal")
}

func TestVersionShowsDaemonRevision(t *testing.T) {
	buf := capture(t)
	srv := serveJSON(t, map[string]any{
		"GET /api/version": map[string]any{
			"version": "v1.2.0", "go_version": "go1.26.0", "built_at": "2026-10-01T12:00:00Z",
			"revision": "0123456789abcdef0123",
		},
	})

	require.NoError(t, VersionInfo(srv.URL, false))
	text := buf.String()
	assert.Contains(t, text, "v1.2.0 (go1.26.0)")
	assert.Contains(t, text, "0123456789ab")
	assert.NotContains(t, text, "0123456789abc")
}
