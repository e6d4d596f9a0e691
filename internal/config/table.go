// Package config loads the table description used for calibration and
// tracking, plus the hot-reloadable zone file used by the application.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/teslashibe/go-artable/pkg/geom"
)

// Default configuration values.
const (
	DefaultConfigPath = "table.json"
	DefaultDictionary = "DICT_4X4_250"

	maxFileSize = 1 * 1024 * 1024
)

// MarkerLayout places four calibration markers on a plane. Positions are
// corner-relative offsets in the order top-left, top-right, bottom-left,
// bottom-right; each offset is measured from its own corner of the plane to
// the nearest corner of the marker.
type MarkerLayout struct {
	IDs       []int        `json:"marker"`
	Positions [][2]float64 `json:"position"`
	Size      float64      `json:"size"`
}

// Offsets returns Positions as points.
func (m MarkerLayout) Offsets() []geom.Point {
	out := make([]geom.Point, len(m.Positions))
	for i, p := range m.Positions {
		out[i] = geom.Pt(p[0], p[1])
	}
	return out
}

// Camera selects and sizes the capture device.
type Camera struct {
	Index  int `json:"index"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Surface is the physical table in millimeters.
type Surface struct {
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Marker MarkerLayout `json:"marker"`
}

// Projector describes the projector output in pixels.
type Projector struct {
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Screen int          `json:"screen"`
	Marker MarkerLayout `json:"marker"`
}

// Table is the complete table configuration. Projector is optional; without
// it only the table plane is calibrated.
type Table struct {
	Camera     Camera     `json:"camera"`
	Table      Surface    `json:"table"`
	Projector  *Projector `json:"projector,omitempty"`
	Dictionary string     `json:"marker_dict"`
}

// HasProjector reports whether a projector is configured.
func (t *Table) HasProjector() bool {
	return t.Projector != nil
}

// TableSize returns the table dimensions in millimeters.
func (t *Table) TableSize() geom.Point {
	return geom.Pt(t.Table.Width, t.Table.Height)
}

// ProjectorSize returns the projector resolution, or the zero Point when no
// projector is configured.
func (t *Table) ProjectorSize() geom.Point {
	if t.Projector == nil {
		return geom.Point{}
	}
	return geom.Pt(float64(t.Projector.Width), float64(t.Projector.Height))
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "config: " + strings.Join(e.Problems, "; ")
}

// Validate checks ranges and marker layouts.
func (t *Table) Validate() error {
	var problems []string

	if t.Table.Width <= 0 || t.Table.Height <= 0 {
		problems = append(problems, "table width and height must be positive")
	}
	problems = append(problems, validateLayout("table", t.Table.Marker)...)

	if t.Camera.Index < 0 {
		problems = append(problems, "camera index must not be negative")
	}
	if t.Camera.Width < 0 || t.Camera.Height < 0 {
		problems = append(problems, "camera width and height must not be negative")
	}

	if p := t.Projector; p != nil {
		if p.Width <= 0 || p.Height <= 0 {
			problems = append(problems, "projector width and height must be positive")
		}
		if p.Screen < 0 {
			problems = append(problems, "projector screen must not be negative")
		}
		problems = append(problems, validateLayout("projector", p.Marker)...)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validateLayout(plane string, m MarkerLayout) []string {
	var problems []string
	if len(m.IDs) != 4 {
		problems = append(problems, fmt.Sprintf("%s marker needs exactly 4 ids, got %d", plane, len(m.IDs)))
	} else {
		seen := make(map[int]bool, 4)
		for _, id := range m.IDs {
			if id < 0 {
				problems = append(problems, fmt.Sprintf("%s marker id %d is negative", plane, id))
			}
			if seen[id] {
				problems = append(problems, fmt.Sprintf("%s marker id %d is repeated", plane, id))
			}
			seen[id] = true
		}
	}
	if len(m.Positions) != 4 {
		problems = append(problems, fmt.Sprintf("%s marker needs exactly 4 positions, got %d", plane, len(m.Positions)))
	}
	if m.Size <= 0 {
		problems = append(problems, fmt.Sprintf("%s marker size must be positive", plane))
	}
	return problems
}

// Load reads and validates a table configuration file. An empty marker
// dictionary defaults to DefaultDictionary.
func Load(path string) (*Table, error) {
	data, err := readJSONFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Table
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}
	if cfg.Dictionary == "" {
		cfg.Dictionary = DefaultDictionary
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv applies environment overrides. ARTABLE_CAMERA selects the camera
// index and ARTABLE_MARKER_DICT the marker dictionary.
func (t *Table) ApplyEnv() error {
	if v := os.Getenv("ARTABLE_CAMERA"); v != "" {
		idx, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ARTABLE_CAMERA: %w", err)
		}
		t.Camera.Index = idx
	}
	if v := os.Getenv("ARTABLE_MARKER_DICT"); v != "" {
		t.Dictionary = v
	}
	return nil
}

// Path returns the configuration path from ARTABLE_CONFIG, falling back to
// def when the variable is unset.
func Path(def string) string {
	if p := os.Getenv("ARTABLE_CONFIG"); p != "" {
		return p
	}
	return def
}

func readJSONFile(path string) ([]byte, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return data, nil
}
