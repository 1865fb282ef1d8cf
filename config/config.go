package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MemtableConfig holds the initial memtable strategy configuration.
type MemtableConfig struct {
	Kind               string `yaml:"kind"`
	Param              int    `yaml:"param"`
	SizeThresholdBytes int64  `yaml:"size_threshold_bytes"`
}

// EngineConfig holds engine-specific configurations.
type EngineConfig struct {
	Memtable       MemtableConfig `yaml:"memtable"`
	WindowCapacity int            `yaml:"window_capacity"`
}

// CoordinatorConfig holds the negotiation session configuration.
type CoordinatorConfig struct {
	Network        string `yaml:"network"`
	Endpoint       string `yaml:"endpoint"`
	PollInterval   string `yaml:"poll_interval"`
	Watermark      int    `yaml:"watermark"`
	ReceiveTimeout string `yaml:"receive_timeout"`
	RequireFlush   bool   `yaml:"require_flush"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // e.g., "debug", "info", "warn", "error"
	Output string `yaml:"output"` // e.g., "stdout", "file", "none"
	File   string `yaml:"file"`   // Path to the log file, used if output is "file"
}

// MetricsConfig holds Prometheus exposition configuration.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
}

// BenchmarkConfig holds harness output configuration.
type BenchmarkConfig struct {
	EventLogPath string `yaml:"event_log_path"`
}

// Config is the top-level configuration struct.
type Config struct {
	Engine      EngineConfig      `yaml:"engine"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Benchmark   BenchmarkConfig   `yaml:"benchmark"`
}

// ParseDuration parses a duration string, falling back to the given
// default when the string is empty, "0", or unparsable. An unparsable
// non-empty value logs a warning rather than failing startup.
func ParseDuration(durationStr string, defaultDuration time.Duration, logger *slog.Logger) time.Duration {
	if durationStr == "" || durationStr == "0" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		if logger != nil {
			logger.Warn("Invalid duration format, using default", "input", durationStr, "default", defaultDuration.String(), "error", err)
		}
		return defaultDuration
	}
	return d
}

// defaults is the complete configuration used when no file (or an empty
// file) is supplied; a config file overlays individual fields on top.
func defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			Memtable: MemtableConfig{
				Kind:               "skiplist",
				Param:              0,
				SizeThresholdBytes: 4 * 1024 * 1024, // 4 MiB
			},
			WindowCapacity: 10000,
		},
		Coordinator: CoordinatorConfig{
			Network:        "unix",
			Endpoint:       "/tmp/rocksdb-memtable-switching-ipc",
			PollInterval:   "1s",
			Watermark:      5000,
			ReceiveTimeout: "30s",
			RequireFlush:   true,
		},
		Logging: LoggingConfig{
			Level:  "debug",
			Output: "stdout",
			File:   "memtable-switching.log",
		},
		Metrics: MetricsConfig{
			Enabled:       false,
			ListenAddress: ":8088",
		},
		Benchmark: BenchmarkConfig{
			EventLogPath: "events.json",
		},
	}
}

// Load reads configuration from an io.Reader, overlaying it on the
// defaults. A nil reader or empty input yields the defaults unchanged.
func Load(r io.Reader) (*Config, error) {
	cfg := defaults()
	if r == nil {
		return cfg, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config data: %w", err)
	}
	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads configuration from a YAML file by path. A missing
// file is not an error; the defaults apply.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Load(nil)
		}
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	return Load(file)
}
