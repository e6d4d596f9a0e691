// Package artable wires the camera, calibration, tracking, projector and
// dashboard into the table application.
package artable

import (
	"os"
	"time"

	"github.com/teslashibe/go-artable/internal/config"
)

// Default configuration values.
const (
	DefaultZonesPath     = "zones.json"
	DefaultPort          = "8080"
	DefaultFrameInterval = 200 * time.Millisecond
)

// Config holds the application settings.
// Flag parsing is done in cmd/artable/main.go; this struct is data only.
type Config struct {
	// TablePath is the table configuration file.
	TablePath string

	// ZonesPath is the hot-reloadable zone file.
	ZonesPath string

	// Port serves the dashboard. Empty disables it.
	Port string

	// NotifyURL receives MARKER lines over a websocket. Empty disables it.
	NotifyURL string

	// LogLevel is debug, info, warn or error.
	LogLevel string

	// Preview shows the camera with detected markers during calibration.
	Preview bool

	// FrameInterval throttles the dashboard camera feed.
	FrameInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TablePath:     config.DefaultConfigPath,
		ZonesPath:     DefaultZonesPath,
		Port:          DefaultPort,
		LogLevel:      "info",
		FrameInterval: DefaultFrameInterval,
	}
}

// LoadEnvConfig applies environment variables to settings still at their
// defaults. Call this after flag parsing so explicit flags win.
func (c *Config) LoadEnvConfig() {
	def := DefaultConfig()
	if c.TablePath == def.TablePath {
		c.TablePath = config.Path(c.TablePath)
	}
	if p := os.Getenv("ARTABLE_ZONES"); p != "" && c.ZonesPath == def.ZonesPath {
		c.ZonesPath = p
	}
	if u := os.Getenv("ARTABLE_NOTIFY"); u != "" && c.NotifyURL == "" {
		c.NotifyURL = u
	}
	if l := os.Getenv("LOG_LEVEL"); l != "" && c.LogLevel == def.LogLevel {
		c.LogLevel = l
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.TablePath == "" {
		return &ConfigError{Field: "TablePath", Message: "table configuration path is required"}
	}
	if c.ZonesPath == "" {
		return &ConfigError{Field: "ZonesPath", Message: "zone file path is required"}
	}
	if c.FrameInterval <= 0 {
		return &ConfigError{Field: "FrameInterval", Message: "frame interval must be positive"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
