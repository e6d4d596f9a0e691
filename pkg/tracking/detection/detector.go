// Package detection finds fiducial markers in camera frames
package detection

import (
	"errors"

	"github.com/teslashibe/go-artable/pkg/geom"
	"gocv.io/x/gocv"
)

var (
	// ErrEmptyFrame is returned when a frame has no pixels
	ErrEmptyFrame = errors.New("detection: empty frame")

	// ErrUnknownDictionary is returned for an unrecognized dictionary name
	ErrUnknownDictionary = errors.New("detection: unknown marker dictionary")
)

// Marker is one detected marker in camera pixel space. Corners follow the
// detector's order: top-left, top-right, bottom-right, bottom-left.
type Marker struct {
	ID      int
	Corners [4]geom.Point
}

// Centroid returns the mean of the four corners. Tracking uses this point
// because it is stable under small rotations.
func (m Marker) Centroid() geom.Point {
	return geom.Centroid(m.Corners[:]...)
}

// TopLeft returns the marker's first corner. Calibration aligns on this
// corner since the configured marker positions are top-left offsets.
func (m Marker) TopLeft() geom.Point {
	return m.Corners[0]
}

// Detector is the interface for marker detection backends
type Detector interface {
	// Detect finds all markers in the frame. No markers is not an error.
	Detect(frame gocv.Mat) ([]Marker, error)

	// Close releases resources
	Close() error
}

// Config holds detector configuration
type Config struct {
	Dictionary string // Symbolic dictionary name, e.g. DICT_4X4_250
}

// DefaultConfig returns the dictionary used by the stock marker set
func DefaultConfig() Config {
	return Config{
		Dictionary: "DICT_4X4_250",
	}
}

// FilterIDs returns the markers whose id is in ids, preserving order
func FilterIDs(markers []Marker, ids map[int]struct{}) []Marker {
	out := make([]Marker, 0, len(markers))
	for _, m := range markers {
		if _, ok := ids[m.ID]; ok {
			out = append(out, m)
		}
	}
	return out
}
