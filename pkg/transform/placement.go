package transform

import (
	"errors"

	"github.com/teslashibe/go-artable/pkg/geom"
)

// ErrEmptyPlacement is returned when the displayed image has zero extent.
var ErrEmptyPlacement = errors.New("transform: empty image placement")

// Placement describes where the last displayed image sits on the table.
// Area is the table rectangle the image covers; ImageSize is the image's
// own pixel size.
type Placement struct {
	Area      geom.Rect
	ImageSize geom.Point
}

// PlacementSource is implemented by the display component. It must return
// the placement of the image currently shown.
type PlacementSource interface {
	Placement() Placement
}

// Stretched is the placement of an image scaled over the whole table.
func Stretched(tableSize, imageSize geom.Point) Placement {
	return Placement{
		Area:      geom.Rect{Max: tableSize},
		ImageSize: imageSize,
	}
}

// At is the placement of an image drawn unscaled with its top-left corner
// at xy.
func At(xy, imageSize geom.Point) Placement {
	return Placement{
		Area:      geom.Rect{Min: xy, Max: xy.Add(imageSize)},
		ImageSize: imageSize,
	}
}

func (pl Placement) valid() bool {
	sz := pl.Area.Size()
	return sz.X != 0 && sz.Y != 0 && pl.ImageSize.X != 0 && pl.ImageSize.Y != 0
}

// TableToImage maps a table coordinate into pixel coordinates of the image.
func (pl Placement) TableToImage(p geom.Point) (geom.Point, error) {
	if !pl.valid() {
		return geom.Point{}, ErrEmptyPlacement
	}
	sz := pl.Area.Size()
	return geom.Point{
		X: (p.X - pl.Area.Min.X) * pl.ImageSize.X / sz.X,
		Y: (p.Y - pl.Area.Min.Y) * pl.ImageSize.Y / sz.Y,
	}, nil
}

// ImageToTable maps image pixel coordinates back onto the table.
func (pl Placement) ImageToTable(p geom.Point) (geom.Point, error) {
	if !pl.valid() {
		return geom.Point{}, ErrEmptyPlacement
	}
	sz := pl.Area.Size()
	return geom.Point{
		X: p.X*sz.X/pl.ImageSize.X + pl.Area.Min.X,
		Y: p.Y*sz.Y/pl.ImageSize.Y + pl.Area.Min.Y,
	}, nil
}

// ImageMapper converts between table and displayed-image coordinates using
// whatever placement the display reports at call time.
type ImageMapper struct {
	source       PlacementSource
	hasProjector bool
}

// NewImageMapper returns a mapper reading placement from src. Conversions
// fail with ErrNoProjector when hasProjector is false.
func NewImageMapper(src PlacementSource, hasProjector bool) *ImageMapper {
	return &ImageMapper{source: src, hasProjector: hasProjector}
}

// TableToImage converts a single table point.
func (m *ImageMapper) TableToImage(p geom.Point) (geom.Point, error) {
	if !m.hasProjector {
		return geom.Point{}, ErrNoProjector
	}
	return m.source.Placement().TableToImage(p)
}

// ImageToTable converts a single image point.
func (m *ImageMapper) ImageToTable(p geom.Point) (geom.Point, error) {
	if !m.hasProjector {
		return geom.Point{}, ErrNoProjector
	}
	return m.source.Placement().ImageToTable(p)
}

// TableToImageAll converts a sequence, returning a slice of equal length.
// The placement is read once so every point uses the same image.
func (m *ImageMapper) TableToImageAll(pts []geom.Point) ([]geom.Point, error) {
	if !m.hasProjector {
		return nil, ErrNoProjector
	}
	return mapAll(pts, m.source.Placement().TableToImage)
}

// ImageToTableAll converts a sequence, returning a slice of equal length.
func (m *ImageMapper) ImageToTableAll(pts []geom.Point) ([]geom.Point, error) {
	if !m.hasProjector {
		return nil, ErrNoProjector
	}
	return mapAll(pts, m.source.Placement().ImageToTable)
}

func mapAll(pts []geom.Point, f func(geom.Point) (geom.Point, error)) ([]geom.Point, error) {
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		q, err := f(p)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}
