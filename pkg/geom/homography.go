package geom

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateQuad is returned when four correspondences do not define a
// projective transform (three or more points collinear, or duplicates).
var ErrDegenerateQuad = errors.New("geom: degenerate quadrilateral")

// Homography is a 3x3 projective transform in row-major order.
type Homography [3][3]float64

// Identity returns the identity transform.
func Identity() Homography {
	return Homography{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// ComputePerspectiveTransform fits the homography mapping src[i] to dst[i]
// for exactly four correspondences, with h22 fixed to 1.
func ComputePerspectiveTransform(src, dst [4]Point) (Homography, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i
		// x = (h00 X + h01 Y + h02) / (h20 X + h21 Y + 1)
		a.SetRow(r, []float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x})
		b.SetVec(r, x)
		// y = (h10 X + h11 Y + h12) / (h20 X + h21 Y + 1)
		a.SetRow(r+1, []float64{0, 0, 0, X, Y, 1, -X * y, -Y * y})
		b.SetVec(r+1, y)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerateQuad, err)
	}
	return Homography{
		{h.AtVec(0), h.AtVec(1), h.AtVec(2)},
		{h.AtVec(3), h.AtVec(4), h.AtVec(5)},
		{h.AtVec(6), h.AtVec(7), 1},
	}, nil
}

// Apply maps p through the transform. Points on the line at infinity map
// to infinite coordinates.
func (h Homography) Apply(p Point) Point {
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	return Point{
		X: (h[0][0]*p.X + h[0][1]*p.Y + h[0][2]) / w,
		Y: (h[1][0]*p.X + h[1][1]*p.Y + h[1][2]) / w,
	}
}

// ApplyAll maps every point, returning a new slice of the same length.
func (h Homography) ApplyAll(pts []Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = h.Apply(p)
	}
	return out
}

// Mul returns the composition h*o, i.e. o is applied first. The result is
// normalized.
func (h Homography) Mul(o Homography) Homography {
	var out mat.Dense
	out.Mul(h.dense(), o.dense())
	return fromDense(&out).Normalized()
}

// Inverse returns the inverse transform, normalized like
// ComputePerspectiveTransform output.
func (h Homography) Inverse() (Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.dense()); err != nil {
		return Homography{}, fmt.Errorf("geom: invert homography: %w", err)
	}
	return fromDense(&inv).Normalized(), nil
}

// Normalized scales h so that h[2][2] == 1. Transforms with h[2][2] == 0
// are returned unchanged.
func (h Homography) Normalized() Homography {
	s := h[2][2]
	if s == 0 {
		return h
	}
	for r := range h {
		for c := range h[r] {
			h[r][c] /= s
		}
	}
	return h
}

// Flat returns the nine coefficients in row-major order.
func (h Homography) Flat() []float64 {
	return []float64{
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2],
	}
}

func (h Homography) dense() *mat.Dense {
	return mat.NewDense(3, 3, h.Flat())
}

func fromDense(m *mat.Dense) Homography {
	var h Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r][c] = m.At(r, c)
		}
	}
	return h
}
