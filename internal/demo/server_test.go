package demo

import (
	"bytes"
	"context"
	"image"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "golang.org/x/image/bmp"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

func connect(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.Eventually(t, func() bool { return s.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)
	return c
}

func send(t *testing.T, c *websocket.Conn, m wire.Message) {
	t.Helper()
	b, err := wire.Encode(m)
	require.NoError(t, err)
	require.NoError(t, c.WriteMessage(websocket.TextMessage, b))
}

func recv(t *testing.T, c *websocket.Conn) wire.Message {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := c.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind)
	return wire.Decode(data)
}

func TestServerAnswersQueries(t *testing.T) {
	s := New(Options{})
	c := connect(t, s)

	send(t, c, wire.GetHeats{})
	heats, ok := recv(t, c).(wire.HeatsMeta)
	require.True(t, ok)
	require.Len(t, heats.Heats, len(demoEvents))

	send(t, c, wire.SelectHeat{ID: HeatID(2)})
	data, ok := recv(t, c).(wire.HeatDataMessage)
	require.True(t, ok)
	assert.Contains(t, string(data.Data), "200m Women Final")

	send(t, c, wire.RequestDisplayClientState{})
	assert.Equal(t, wire.DisplayClientState{Alive: true, CanSwitchMode: true}, recv(t, c))

	send(t, c, wire.RequestTimingSettings{})
	ts, ok := recv(t, c).(wire.TimingSettingsState)
	require.True(t, ok)
	assert.Equal(t, uint8(2), ts.Settings.MaxDecimalPlacesAfterComma)

	assert.Equal(t, []wire.Tag{wire.TagGetHeats, wire.TagSelectHeat, wire.TagRequestDisplayClientState, wire.TagRequestTimingSettings}, s.Received())
}

func TestServerLogsDisplayCommands(t *testing.T) {
	s := New(Options{})
	c := connect(t, s)

	send(t, c, wire.FreeText{Text: "Welcome"})
	push, ok := recv(t, c).(wire.Logs)
	require.True(t, ok)
	require.Len(t, push.Entries, 1)
	assert.Equal(t, "FreeText", push.Entries[0].NameKey)
	assert.JSONEq(t, `{"text":"Welcome"}`, push.Entries[0].Data)

	send(t, c, wire.GetLogs{Count: 10})
	batch, ok := recv(t, c).(wire.Logs)
	require.True(t, ok)
	require.Len(t, batch.Entries, 2)
	assert.Equal(t, "FreeText", batch.Entries[0].NameKey)
	assert.Equal(t, "ServerStarted", batch.Entries[1].NameKey)
}

func TestServerSwitchModeToggles(t *testing.T) {
	s := New(Options{})
	c := connect(t, s)
	send(t, c, wire.SwitchMode{})
	state, ok := recv(t, c).(wire.DisplayClientState)
	require.True(t, ok)
	assert.True(t, state.ExternalPassthroughMode)
}

func TestServerWindValues(t *testing.T) {
	s := New(Options{})
	c := connect(t, s)
	send(t, c, wire.RequestWindValues{Window: wire.WindValueRequest{From: "2026-05-01T10:00:00", To: "2026-05-01T10:03:00"}})
	wind, ok := recv(t, c).(wire.WindMeasurements)
	require.True(t, ok)
	assert.Len(t, wind.Measurements, 4)
}

func TestServerPushesPollingAndFrames(t *testing.T) {
	s := New(Options{})
	c := connect(t, s)

	s.PushPolling()
	push, ok := recv(t, c).(wire.Logs)
	require.True(t, ok)
	require.Len(t, push.Entries, 1)
	assert.Contains(t, push.Entries[0].Data, `"probable_measurement_type":"Polling"`)

	s.PushFrame()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "bmp", format)
	assert.Equal(t, frameWidth, cfg.Width)
}

func TestServerCloseClients(t *testing.T) {
	s := New(Options{})
	c := connect(t, s)
	s.CloseClients()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := c.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.CloseGoingAway, ce.Code)
}

func TestRunPushesOnInterval(t *testing.T) {
	s := New(Options{PollingInterval: 10 * time.Millisecond})
	c := connect(t, s)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)
	_, ok := recv(t, c).(wire.Logs)
	assert.True(t, ok)
}

func TestLogIsBounded(t *testing.T) {
	s := New(Options{})
	for i := range maxLogs + 50 {
		s.logAndPush("FreeText", map[string]any{"text": i})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.logs, maxLogs)
	assert.JSONEq(t, `{"text":549}`, s.logs[0].Data)
	assert.JSONEq(t, `{"text":50}`, s.logs[maxLogs-1].Data)
}

func TestPrependLogKeepsNewestFirst(t *testing.T) {
	var logs []wire.LogEntry
	for _, k := range []string{"a", "b", "c", "d"} {
		logs = prependLog(logs, wire.LogEntry{NameKey: k}, 3)
	}
	keys := make([]string, len(logs))
	for i, e := range logs {
		keys[i] = e.NameKey
	}
	assert.Equal(t, []string{"d", "c", "b"}, keys)
}
