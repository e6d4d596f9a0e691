// Package geom provides the planar geometry shared by calibration and tracking:
// points, axis-aligned areas, and 3x3 projective transforms.
package geom

import "math"

// Point is a 2D coordinate. Units depend on the plane: millimeters on the
// table, pixels for camera and projector.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// DistSqr returns the squared Euclidean distance between p and q.
func (p Point) DistSqr(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx + dy*dy
}

// Near reports whether p and q differ by at most eps on both axes.
func (p Point) Near(q Point, eps float64) bool {
	return math.Abs(p.X-q.X) <= eps && math.Abs(p.Y-q.Y) <= eps
}

// Centroid returns the mean of pts. It returns the zero Point for no input.
func Centroid(pts ...Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var c Point
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(pts))
	return Point{X: c.X / n, Y: c.Y / n}
}

// Rect is an axis-aligned rectangle given by two corners.
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// R builds a Rect from two corners in any order.
func R(a, b Point) Rect {
	return Rect{
		Min: Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max: Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// Contains reports whether p lies inside r. All four bounds are inclusive.
func (r Rect) Contains(p Point) bool {
	return r.Min.X <= p.X && p.X <= r.Max.X &&
		r.Min.Y <= p.Y && p.Y <= r.Max.Y
}

// Size returns the width and height of r as a Point.
func (r Rect) Size() Point {
	return r.Max.Sub(r.Min)
}
