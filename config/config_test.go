package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "skiplist", cfg.Engine.Memtable.Kind)
	assert.Equal(t, int64(4*1024*1024), cfg.Engine.Memtable.SizeThresholdBytes)
	assert.Equal(t, 10000, cfg.Engine.WindowCapacity)

	assert.Equal(t, "unix", cfg.Coordinator.Network)
	assert.Equal(t, "/tmp/rocksdb-memtable-switching-ipc", cfg.Coordinator.Endpoint)
	assert.Equal(t, "1s", cfg.Coordinator.PollInterval)
	assert.Equal(t, 5000, cfg.Coordinator.Watermark)
	assert.Equal(t, "30s", cfg.Coordinator.ReceiveTimeout)
	assert.True(t, cfg.Coordinator.RequireFlush)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "events.json", cfg.Benchmark.EventLogPath)
}

func TestLoad_EmptyInputKeepsDefaults(t *testing.T) {
	cfg, err := Load(strings.NewReader(""))
	require.NoError(t, err)

	defaults, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, defaults, cfg)
}

func TestLoad_OverlayOverridesSelectedFields(t *testing.T) {
	yamlContent := `
engine:
  memtable:
    kind: "hash-skiplist"
    param: 14
  window_capacity: 2500
coordinator:
  endpoint: "/run/memtable.sock"
  poll_interval: "250ms"
  require_flush: false
metrics:
  enabled: true
  listen_address: ":9100"
`
	cfg, err := Load(strings.NewReader(yamlContent))
	require.NoError(t, err)

	assert.Equal(t, "hash-skiplist", cfg.Engine.Memtable.Kind)
	assert.Equal(t, 14, cfg.Engine.Memtable.Param)
	assert.Equal(t, 2500, cfg.Engine.WindowCapacity)
	assert.Equal(t, "/run/memtable.sock", cfg.Coordinator.Endpoint)
	assert.Equal(t, "250ms", cfg.Coordinator.PollInterval)
	assert.False(t, cfg.Coordinator.RequireFlush)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9100", cfg.Metrics.ListenAddress)

	// Untouched sections keep their defaults.
	assert.Equal(t, int64(4*1024*1024), cfg.Engine.Memtable.SizeThresholdBytes)
	assert.Equal(t, "unix", cfg.Coordinator.Network)
	assert.Equal(t, 5000, cfg.Coordinator.Watermark)
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(strings.NewReader("coordinator: [not a mapping"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal config yaml")
}

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "no-such.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "skiplist", cfg.Engine.Memtable.Kind)
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("coordinator:\n  watermark: 123\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 123, cfg.Coordinator.Watermark)
}

func TestParseDuration(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	testCases := []struct {
		name     string
		input    string
		expected time.Duration
	}{
		{name: "valid duration", input: "1500ms", expected: 1500 * time.Millisecond},
		{name: "empty uses default", input: "", expected: 5 * time.Second},
		{name: "zero uses default", input: "0", expected: 5 * time.Second},
		{name: "garbage uses default", input: "soon", expected: 5 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseDuration(tc.input, 5*time.Second, logger))
		})
	}
}
