package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "ws://127.0.0.1:8080/ws/", cfg.UpstreamURL())
	assert.Equal(t, 500*time.Millisecond, cfg.Reconnect.Settle())
	assert.Equal(t, time.Second, cfg.Reconnect.CloseRetry())
	assert.Equal(t, 2*time.Second, cfg.Reconnect.ErrorRetry())
	assert.Equal(t, 5*time.Second, cfg.Liveness.Timeout())
	assert.Equal(t, 10, cfg.Logs.RollingCapacity)
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jtacontrold.toml")
	writeFile(t, path, `
[upstream]
url = "ws://timing.local:8080/ws/"

[logs]
rolling_capacity = 25
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://timing.local:8080/ws/", cfg.Upstream.URL)
	assert.Equal(t, 25, cfg.Logs.RollingCapacity)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 1000, cfg.Reconnect.CloseRetryMS)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"scheme":   "[upstream]\nurl = \"http://x/ws/\"\n",
		"level":    "[logging]\nlevel = \"loud\"\n",
		"capacity": "[logs]\nrolling_capacity = 0\n",
		"retry":    "[reconnect]\nerror_retry_ms = -1\n",
		"liveness": "[liveness]\ntimeout_ms = 0\n",
		"syntax":   "[upstream\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.toml")
			writeFile(t, path, body)
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDemoOverridesUpstream(t *testing.T) {
	cfg := Default()
	cfg.Demo.Enabled = true
	cfg.Demo.Bind = "127.0.0.1:9999"
	assert.Equal(t, "ws://127.0.0.1:9999/ws/", cfg.UpstreamURL())
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jtacontrold.toml")
	writeFile(t, path, "[upstream]\nurl = \"ws://a/ws/\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, nil, func(c Config) { got <- c })
	}()

	// Give the watcher time to register before the edit.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "[upstream]\nurl = \"ws://b/ws/\"\n")

	select {
	case cfg := <-got:
		assert.Equal(t, "ws://b/ws/", cfg.Upstream.URL)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}

	// An invalid edit is skipped.
	writeFile(t, path, "[logs]\nrolling_capacity = -3\n")
	select {
	case cfg := <-got:
		t.Fatalf("unexpected reload: %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}
