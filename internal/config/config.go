// Package config provides configuration types for mcpmux.
//
// The schema is intentionally small: a proxy process needs a listen
// address, a log level, a place to persist the app registry, and whether
// metrics are exposed. Everything else (which upstreams an app bundles) is
// admin-store state, not static configuration.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for mcpmux.
type Config struct {
	// Server configures the HTTP server listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Store configures where the app registry is persisted.
	Store StoreConfig `yaml:"store" mapstructure:"store"`

	// Metrics configures the Prometheus metrics endpoint.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// DevMode enables development defaults (verbose logging, in-memory
	// store) so mcpmux can run with no configuration file at all.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP server that serves both the downstream
// MCP surface and the admin REST API.
type ServerConfig struct {
	// HTTPAddr is the address to listen on (e.g. "127.0.0.1:8080").
	// Defaults to "127.0.0.1:8080" if empty.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// ShutdownTimeout bounds how long graceful shutdown waits for
	// in-flight SSE sessions and upstream clients to drain (e.g. "10s").
	ShutdownTimeout string `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"omitempty"`
}

// StoreConfig configures the app registry's backing store.
type StoreConfig struct {
	// Driver selects the store implementation: "sqlite" or "memory".
	// "memory" loses the registry on restart; intended for dev/testing.
	Driver string `yaml:"driver" mapstructure:"driver" validate:"required,oneof=sqlite memory"`

	// Path is the SQLite database file path. Only used when Driver is
	// "sqlite". Defaults to $HOME/.mcpmux/mcpmux.db, or "mcpmux.db" in the
	// working directory when no home directory can be determined.
	Path string `yaml:"path" mapstructure:"path" validate:"omitempty"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled controls whether /metrics is served. Defaults to true.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// SetDevDefaults applies permissive defaults for development mode, letting
// mcpmux run with no configuration file at all. The store driver becomes
// "memory" unless a driver was set explicitly, replacing the "sqlite"
// default that SetDefaults may already have applied.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	if c.Store.Driver == "" || !viper.IsSet("store.driver") {
		c.Store.Driver = "memory"
	}
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	if c.Server.HTTPAddr == "" {
		// Bind to localhost only by default; operators who need network
		// access must explicitly set http_addr.
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}

	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		c.Store.Path = defaultStorePath()
	}

	// Metrics default to enabled; only an explicit "false" in the config
	// file or environment turns them off.
	if !viper.IsSet("metrics.enabled") {
		c.Metrics.Enabled = true
	}
}

func defaultStorePath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".mcpmux", "mcpmux.db")
	}
	return "mcpmux.db"
}
