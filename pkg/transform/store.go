// Package transform holds the calibration homographies between the table,
// camera and projector planes and converts coordinates between them.
package transform

import (
	"errors"
	"sync/atomic"

	"github.com/teslashibe/go-artable/pkg/geom"
)

var (
	// ErrNotCalibrated is returned when transforms are read before calibration.
	ErrNotCalibrated = errors.New("transform: not calibrated")

	// ErrNoProjector is returned for projector or image conversions on a
	// table calibrated without a projector.
	ErrNoProjector = errors.New("transform: no projector configured")
)

// Transforms is one complete calibration result. The projector pair is only
// meaningful when HasProjector is set.
type Transforms struct {
	TableToCamera     geom.Homography
	CameraToTable     geom.Homography
	CameraToProjector geom.Homography
	ProjectorToCamera geom.Homography
	HasProjector      bool
}

// TableToProjector is CameraToProjector applied after TableToCamera.
func (t Transforms) TableToProjector() (geom.Homography, error) {
	if !t.HasProjector {
		return geom.Homography{}, ErrNoProjector
	}
	return t.CameraToProjector.Mul(t.TableToCamera), nil
}

// ProjectorToTable is CameraToTable applied after ProjectorToCamera.
func (t Transforms) ProjectorToTable() (geom.Homography, error) {
	if !t.HasProjector {
		return geom.Homography{}, ErrNoProjector
	}
	return t.CameraToTable.Mul(t.ProjectorToCamera), nil
}

// Store publishes calibration results. Readers always see a complete set:
// Set swaps every matrix at once.
type Store struct {
	current atomic.Pointer[Transforms]
}

// NewStore returns an empty, uncalibrated store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces all transforms with t.
func (s *Store) Set(t Transforms) {
	s.current.Store(&t)
}

// Load returns a snapshot of the current transforms.
func (s *Store) Load() (Transforms, error) {
	t := s.current.Load()
	if t == nil {
		return Transforms{}, ErrNotCalibrated
	}
	return *t, nil
}

// Calibrated reports whether Set has been called.
func (s *Store) Calibrated() bool {
	return s.current.Load() != nil
}

// CameraToTable maps camera pixels onto the table plane.
func (s *Store) CameraToTable(p geom.Point) (geom.Point, error) {
	t, err := s.Load()
	if err != nil {
		return geom.Point{}, err
	}
	return t.CameraToTable.Apply(p), nil
}

// TableToCamera maps a table coordinate to camera pixels.
func (s *Store) TableToCamera(p geom.Point) (geom.Point, error) {
	t, err := s.Load()
	if err != nil {
		return geom.Point{}, err
	}
	return t.TableToCamera.Apply(p), nil
}

// TableToProjector maps a table coordinate to projector pixels.
func (s *Store) TableToProjector(p geom.Point) (geom.Point, error) {
	t, err := s.Load()
	if err != nil {
		return geom.Point{}, err
	}
	h, err := t.TableToProjector()
	if err != nil {
		return geom.Point{}, err
	}
	return h.Apply(p), nil
}

// ProjectorToTable maps projector pixels onto the table plane.
func (s *Store) ProjectorToTable(p geom.Point) (geom.Point, error) {
	t, err := s.Load()
	if err != nil {
		return geom.Point{}, err
	}
	h, err := t.ProjectorToTable()
	if err != nil {
		return geom.Point{}, err
	}
	return h.Apply(p), nil
}
