package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vango-dev/loom/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "loom.json"

	// DefaultYieldThreshold is the slice time below which the work loop yields.
	DefaultYieldThreshold = "1ms"

	// DefaultSliceBudget is the time granted to each work slice.
	DefaultSliceBudget = "16ms"

	// DefaultAddr is the server listen address.
	DefaultAddr = ":8080"

	// DefaultReadTimeout bounds reading a request's headers.
	DefaultReadTimeout = "10s"

	// DefaultApp is the demo application served.
	DefaultApp = "counter"
)

// Config represents the complete loom.json configuration.
type Config struct {
	// Scheduler contains work loop settings.
	Scheduler SchedulerConfig `json:"scheduler,omitempty"`

	// Server contains HTTP server settings.
	Server ServerConfig `json:"server,omitempty"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Snapshot contains committed-tree snapshot storage settings.
	Snapshot SnapshotConfig `json:"snapshot,omitempty"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// SchedulerConfig contains work loop settings.
type SchedulerConfig struct {
	// YieldThreshold is the remaining slice time below which the loop yields.
	YieldThreshold string `json:"yieldThreshold,omitempty"`

	// SliceBudget is the time granted to each work slice.
	SliceBudget string `json:"sliceBudget,omitempty"`

	// Debug enables hook count validation.
	Debug bool `json:"debug,omitempty"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty"`

	// ReadTimeout bounds reading request headers (e.g., "10s").
	ReadTimeout string `json:"readTimeout,omitempty"`

	// App is the demo application each session renders.
	App string `json:"app,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`

	// Path is the HTTP path of the metrics endpoint.
	Path string `json:"path,omitempty"`
}

// SnapshotConfig contains snapshot storage settings. Snapshots are disabled
// when Bucket is empty.
type SnapshotConfig struct {
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Region string `json:"region,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load loads loom.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile loads the configuration at path and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeInvalidConfig).
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " or run without --config to use defaults")
		}
		return nil, errors.New(errors.CodeInvalidConfig).Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeInvalidConfig).
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration back to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CodeInvalidConfig).Wrap(err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeInvalidConfig).Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the configuration was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) applyDefaults() {
	if c.Scheduler.YieldThreshold == "" {
		c.Scheduler.YieldThreshold = DefaultYieldThreshold
	}
	if c.Scheduler.SliceBudget == "" {
		c.Scheduler.SliceBudget = DefaultSliceBudget
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.App == "" {
		c.Server.App = DefaultApp
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "loom"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Snapshot.Prefix == "" {
		c.Snapshot.Prefix = "snapshots/"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks field values and returns the first problem found.
func (c *Config) Validate() error {
	durations := []struct {
		field string
		value string
	}{
		{"scheduler.yieldThreshold", c.Scheduler.YieldThreshold},
		{"scheduler.sliceBudget", c.Scheduler.SliceBudget},
		{"server.readTimeout", c.Server.ReadTimeout},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil || v < 0 {
			return errors.New(errors.CodeInvalidConfig).
				WithDetailf("%s: %q is not a non-negative duration", d.field, d.value)
		}
	}
	if c.SliceBudget() <= c.YieldThreshold() {
		return errors.New(errors.CodeInvalidConfig).
			WithDetailf("scheduler.sliceBudget (%s) must exceed scheduler.yieldThreshold (%s)",
				c.Scheduler.SliceBudget, c.Scheduler.YieldThreshold)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New(errors.CodeInvalidConfig).
			WithDetailf("metrics.path %q must start with /", c.Metrics.Path)
	}
	if _, ok := parseLevel(c.Log.Level); !ok {
		return errors.New(errors.CodeInvalidConfig).
			WithDetailf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// YieldThreshold returns the parsed yield threshold.
func (c *Config) YieldThreshold() time.Duration {
	return parseDuration(c.Scheduler.YieldThreshold, DefaultYieldThreshold)
}

// SliceBudget returns the parsed slice budget.
func (c *Config) SliceBudget() time.Duration {
	return parseDuration(c.Scheduler.SliceBudget, DefaultSliceBudget)
}

// ReadTimeout returns the parsed server read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, DefaultReadTimeout)
}

// LogLevel returns the configured slog level, or Info if unrecognized.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

// SnapshotsEnabled reports whether a snapshot bucket is configured.
func (c *Config) SnapshotsEnabled() bool {
	return c.Snapshot.Bucket != ""
}

// Exists reports whether dir contains loom.json.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

func parseDuration(s, fallback string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
