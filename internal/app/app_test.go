package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/config"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/conn"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/demo"
	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

type harness struct {
	app      *App
	upstream *demo.Server
	base     string
}

func wsURL(srv *httptest.Server) string { return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" }

func testConfig(upstream string) config.Config {
	cfg := config.Default()
	cfg.Upstream.URL = upstream
	cfg.Server.Bind = "127.0.0.1:0"
	cfg.Reconnect.SettleMS = 10
	cfg.Reconnect.CloseRetryMS = 30
	cfg.Reconnect.ErrorRetryMS = 50
	cfg.Liveness.PollIntervalMS = 20
	return cfg
}

func start(t *testing.T, configPath string, mutate func(*config.Config)) *harness {
	t.Helper()
	up := demo.New(demo.Options{})
	srv := httptest.NewServer(up.Handler())
	t.Cleanup(srv.Close)

	cfg := testConfig(wsURL(srv))
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(Options{Cfg: cfg, ConfigPath: configPath})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	require.Eventually(t, func() bool { return a.Addr() != "" }, 2*time.Second, 5*time.Millisecond)
	h := &harness{app: a, upstream: up, base: "http://" + a.Addr()}
	require.Eventually(t, func() bool { return a.manager.State() == conn.Connected }, 3*time.Second, 5*time.Millisecond)
	return h
}

func (h *harness) get(t *testing.T, path string, v any) int {
	t.Helper()
	resp, err := http.Get(h.base + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func (h *harness) post(t *testing.T, path string, body any, v any) int {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	resp, err := http.Post(h.base+path, "application/json", rd)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestResyncAgainstDemoServer(t *testing.T) {
	h := start(t, "", nil)

	want := []wire.Tag{wire.TagGetHeats, wire.TagGetLogs, wire.TagRequestTimingSettings, wire.TagRequestDisplayClientState}
	require.Eventually(t, func() bool { return len(h.upstream.Received()) >= len(want) }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, want, h.upstream.Received()[:len(want)])

	require.Eventually(t, func() bool {
		snap := h.app.Session().Snapshot()
		return snap.Heats == 4 && snap.CanEditTimingSettings && snap.Display.Alive
	}, 2*time.Second, 5*time.Millisecond)

	var heats struct {
		Heats []wire.HeatMeta `json:"heats"`
	}
	assert.Equal(t, http.StatusOK, h.get(t, "/api/heats", &heats))
	require.Len(t, heats.Heats, 4)
	assert.Equal(t, "100m Men Heat 1", heats.Heats[0].Name)
}

func TestCommandSelectHeat(t *testing.T) {
	h := start(t, "", nil)

	var resp map[string]any
	assert.Equal(t, http.StatusOK, h.post(t, "/api/command", CommandRequest{Command: "select_heat", ID: demo.HeatID(1)}, &resp))
	assert.Equal(t, true, resp["ok"])

	require.Eventually(t, func() bool {
		_, data := h.app.Session().Heat()
		return data != nil
	}, 2*time.Second, 5*time.Millisecond)

	var heat struct {
		ID   string          `json:"id"`
		Data json.RawMessage `json:"data"`
	}
	assert.Equal(t, http.StatusOK, h.get(t, "/api/heat", &heat))
	assert.Equal(t, demo.HeatID(1), heat.ID)
	assert.Contains(t, string(heat.Data), "100m Men Heat 1")
}

func TestCommandErrors(t *testing.T) {
	h := start(t, "", nil)
	var resp map[string]any
	assert.Equal(t, http.StatusBadRequest, h.post(t, "/api/command", CommandRequest{Command: "select_heat", ID: "nope"}, &resp))
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, http.StatusBadRequest, h.post(t, "/api/command", CommandRequest{Command: "launch"}, &resp))
	assert.Equal(t, http.StatusBadRequest, h.post(t, "/api/command", CommandRequest{Command: "get_logs"}, &resp))
}

func TestFreeTextPushFoldsIntoLogs(t *testing.T) {
	h := start(t, "", nil)
	require.Eventually(t, func() bool { return h.app.Session().Snapshot().Logs == 1 }, 2*time.Second, 5*time.Millisecond)

	h.post(t, "/api/command", CommandRequest{Command: "freetext", Text: "Welcome"}, nil)
	require.Eventually(t, func() bool { return h.app.Session().Snapshot().Logs == 2 }, 2*time.Second, 5*time.Millisecond)

	var logs struct {
		Logs []wire.LogEntry `json:"logs"`
	}
	assert.Equal(t, http.StatusOK, h.get(t, "/api/logs?limit=1", &logs))
	require.Len(t, logs.Logs, 1)
	assert.Equal(t, "FreeText", logs.Logs[0].NameKey)

	assert.Equal(t, http.StatusBadRequest, h.get(t, "/api/logs?limit=x", nil))
}

func TestPollingAndImageFrames(t *testing.T) {
	h := start(t, "", nil)

	h.upstream.PushPolling()
	require.Eventually(t, func() bool { return h.app.Session().Snapshot().Liveness.Live }, 2*time.Second, 5*time.Millisecond)

	h.upstream.PushFrame()
	require.Eventually(t, func() bool {
		_, ok := h.app.Session().Image()
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	resp, err := http.Get(h.base + "/api/image")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "image/bmp", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "BM", string(body[:2]))
}

func TestReconnectAfterServerClose(t *testing.T) {
	h := start(t, "", nil)
	h.upstream.CloseClients()
	require.Eventually(t, func() bool {
		return h.app.manager.State() == conn.Connected && len(h.upstream.Received()) >= 8
	}, 3*time.Second, 5*time.Millisecond)
}

func TestStatusHealthAndMetrics(t *testing.T) {
	h := start(t, "", nil)

	var status map[string]any
	assert.Equal(t, http.StatusOK, h.get(t, "/api/status", &status))
	assert.Equal(t, "connected", status["connection"])
	assert.Equal(t, "live", status["mode"])

	req, err := http.NewRequest(http.MethodGet, h.base+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, true, health["ok"])

	resp, err = http.Get(h.base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "jta_control_connection_state 2")
	assert.Contains(t, string(body), "jta_control_frames_sent_total")
}

func TestEventStreamGreetsWithState(t *testing.T) {
	h := start(t, "", nil)
	c, _, err := websocket.DefaultDialer.Dial("ws://"+h.app.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev map[string]any
	require.NoError(t, c.ReadJSON(&ev))
	assert.Equal(t, "state", ev["type"])
	assert.Equal(t, "connected", ev["connection"])
}

func TestReloadSwitchesUpstream(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jtacontrold.toml")
	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"info\"\n"), 0o644))

	h := start(t, path, nil)

	other := demo.New(demo.Options{})
	srv := httptest.NewServer(other.Handler())
	t.Cleanup(srv.Close)

	body := "[upstream]\nurl = \"" + wsURL(srv) + "\"\n[server]\nbind = \"127.0.0.1:0\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	var resp map[string]any
	assert.Equal(t, http.StatusOK, h.post(t, "/api/reload", nil, &resp))
	require.Eventually(t, func() bool { return other.Clients() == 1 }, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, wsURL(srv), h.app.manager.URL())
}

func TestReloadWithoutPath(t *testing.T) {
	h := start(t, "", nil)
	assert.Equal(t, http.StatusInternalServerError, h.post(t, "/api/reload", nil, nil))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Logs.RollingCapacity = 0
	_, err := New(Options{Cfg: cfg})
	require.Error(t, err)
}

func TestVersionFillsGoVersion(t *testing.T) {
	h := start(t, "", nil)
	var v VersionInfo
	require.Equal(t, http.StatusOK, h.get(t, "/api/version", &v))
	assert.Equal(t, Version, v.Version)
	assert.True(t, strings.HasPrefix(v.GoVersion, "go"), v.GoVersion)
}
