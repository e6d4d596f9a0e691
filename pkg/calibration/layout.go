// Package calibration discovers the table and projector homographies by
// locating known markers in camera frames.
package calibration

import (
	"fmt"
	"sort"

	"github.com/teslashibe/go-artable/internal/config"
	"github.com/teslashibe/go-artable/pkg/geom"
	"github.com/teslashibe/go-artable/pkg/tracking/detection"
)

// Corner indices used by Layout
const (
	TopLeft = iota
	TopRight
	BottomLeft
	BottomRight
)

// Layout is the set of four calibration markers on one plane. Offsets are
// measured from the plane corner matching their index to the nearest corner
// of the marker.
type Layout struct {
	IDs     [4]int
	Offsets [4]geom.Point
	Size    float64
}

// LayoutFrom converts a configured marker layout
func LayoutFrom(m config.MarkerLayout) (Layout, error) {
	if len(m.IDs) != 4 || len(m.Positions) != 4 {
		return Layout{}, fmt.Errorf("calibration: need 4 markers, got %d ids and %d positions",
			len(m.IDs), len(m.Positions))
	}
	var l Layout
	copy(l.IDs[:], m.IDs)
	copy(l.Offsets[:], m.Offsets())
	l.Size = m.Size
	return l, nil
}

// AbsolutePositions returns the top-left corner of each marker on a plane
// of the given width and height.
func AbsolutePositions(l Layout, width, height float64) [4]geom.Point {
	o, s := l.Offsets, l.Size
	return [4]geom.Point{
		TopLeft:     geom.Pt(o[TopLeft].X, o[TopLeft].Y),
		TopRight:    geom.Pt(width-o[TopRight].X-s, o[TopRight].Y),
		BottomLeft:  geom.Pt(o[BottomLeft].X, height-o[BottomLeft].Y-s),
		BottomRight: geom.Pt(width-o[BottomRight].X-s, height-o[BottomRight].Y-s),
	}
}

// SelectQuad keeps the markers whose id belongs to the layout, orders them
// by ascending id and returns the top-left corners of the first four. The
// i-th corner pairs with the i-th expected position. ok is false while
// fewer than four layout markers are visible.
func SelectQuad(markers []detection.Marker, ids [4]int) (quad [4]geom.Point, ok bool) {
	want := make(map[int]struct{}, 4)
	for _, id := range ids {
		want[id] = struct{}{}
	}
	found := detection.FilterIDs(markers, want)
	if len(found) < 4 {
		return quad, false
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].ID < found[j].ID })

	for i := range quad {
		quad[i] = found[i].TopLeft()
	}
	return quad, true
}

// Fit returns the transform from the expected plane positions to the
// observed camera positions, and the reverse fit.
func Fit(expected, observed [4]geom.Point) (forward, inverse geom.Homography, err error) {
	forward, err = geom.ComputePerspectiveTransform(expected, observed)
	if err != nil {
		return forward, inverse, err
	}
	inverse, err = geom.ComputePerspectiveTransform(observed, expected)
	return forward, inverse, err
}
