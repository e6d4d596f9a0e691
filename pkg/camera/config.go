// Package camera opens the table camera and holds its runtime-tunable
// capture settings.
package camera

import "fmt"

// Config holds the capture parameters applied to the device.
// These can be modified via the dashboard API at runtime.
type Config struct {
	// === Device ===
	Index int `json:"index"` // Capture device index

	// === Resolution ===
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS, 0 keeps the driver default

	// === Exposure ===
	// Exposure is the driver exposure value. Set to 0 for auto exposure.
	Exposure float64 `json:"exposure"`

	// Brightness in the driver's 0..1 range. Negative keeps the driver default.
	Brightness float64 `json:"brightness"`

	// Gain is manual sensor gain. Set to 0 for auto gain.
	Gain float64 `json:"gain"`

	// === Focus ===
	// Autofocus on by default. Projected light confuses some drivers, in
	// which case a fixed Focus works better.
	Autofocus bool    `json:"autofocus"`
	Focus     float64 `json:"focus"`
}

// Resolution limits
const (
	MinWidth  = 160
	MinHeight = 120
	MaxWidth  = 4096
	MaxHeight = 2160
	MaxFPS    = 120
)

// DefaultConfig returns the configuration used when the table file
// gives no camera resolution.
func DefaultConfig() Config {
	return Config{
		Index:      0,
		Width:      1280,
		Height:     720,
		Framerate:  30,
		Exposure:   0, // Auto
		Brightness: -1,
		Gain:       0, // Auto
		Autofocus:  true,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Index < 0 {
		errors = append(errors, "index must not be negative")
	}
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between %d and %d", MinWidth, MaxWidth))
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between %d and %d", MinHeight, MaxHeight))
	}
	if c.Framerate < 0 || c.Framerate > MaxFPS {
		errors = append(errors, fmt.Sprintf("framerate must be between 0 and %d", MaxFPS))
	}
	if c.Brightness > 1.0 {
		errors = append(errors, "brightness must be at most 1.0")
	}
	if c.Gain < 0 {
		errors = append(errors, "gain must be 0 (auto) or positive")
	}
	if c.Focus < 0 {
		errors = append(errors, "focus must not be negative")
	}

	return errors
}
