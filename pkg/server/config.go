package server

import (
	"net/http"
	"time"

	"github.com/vango-dev/loom/internal/config"
	"github.com/vango-dev/loom/pkg/driver"
	"github.com/vango-dev/loom/pkg/reconciler"
)

// Config holds configuration for the HTTP/WebSocket server.
type Config struct {
	// Addr is the address to listen on.
	// Default: ":8080".
	Addr string

	// ReadHeaderTimeout bounds reading HTTP request headers.
	// Default: 10 seconds.
	ReadHeaderTimeout time.Duration

	// SessionReadTimeout is the maximum time to wait for a client message.
	// Clients keep the session alive with pings.
	// Default: 60 seconds.
	SessionReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Default: 64KB.
	MaxMessageSize int64

	// ReadBufferSize and WriteBufferSize size the WebSocket buffers.
	// Default: 4096.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin validates the request origin.
	// Default: allows all origins.
	CheckOrigin func(r *http.Request) bool

	// SliceBudget is the time granted to each work slice.
	// Default: driver.DefaultSliceBudget.
	SliceBudget time.Duration

	// YieldThreshold is the remaining slice time below which the work loop
	// yields. Default: reconciler.DefaultYieldThreshold.
	YieldThreshold time.Duration

	// Debug validates hook counts between renders.
	Debug bool

	// MetricsPath is where metrics are served when a collector is set.
	// Default: "/metrics".
	MetricsPath string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  10 * time.Second,
		SessionReadTimeout: 60 * time.Second,
		WriteTimeout:       10 * time.Second,
		ShutdownTimeout:    30 * time.Second,
		MaxMessageSize:     64 * 1024,
		ReadBufferSize:     4096,
		WriteBufferSize:    4096,
		CheckOrigin:        func(*http.Request) bool { return true },
		SliceBudget:        driver.DefaultSliceBudget,
		YieldThreshold:     reconciler.DefaultYieldThreshold,
		MetricsPath:        "/metrics",
	}
}

// FromFile converts a loaded loom.json into a server Config.
func FromFile(c *config.Config) *Config {
	cfg := DefaultConfig()
	cfg.Addr = c.Server.Addr
	cfg.ReadHeaderTimeout = c.ReadTimeout()
	cfg.SliceBudget = c.SliceBudget()
	cfg.YieldThreshold = c.YieldThreshold()
	cfg.Debug = c.Scheduler.Debug
	cfg.MetricsPath = c.Metrics.Path
	return cfg
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if c.SessionReadTimeout <= 0 {
		c.SessionReadTimeout = d.SessionReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = d.CheckOrigin
	}
	if c.SliceBudget <= 0 {
		c.SliceBudget = d.SliceBudget
	}
	if c.YieldThreshold < 0 {
		c.YieldThreshold = d.YieldThreshold
	}
	if c.MetricsPath == "" {
		c.MetricsPath = d.MetricsPath
	}
}
