package calibration

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// MarkerRenderer draws marker id as a side x side bitmap
type MarkerRenderer func(id, side int) (image.Image, error)

// RenderPattern returns a white width x height canvas with the four layout
// markers drawn at their absolute positions.
func RenderPattern(l Layout, width, height int, render MarkerRenderer) (*image.NRGBA, error) {
	side := int(math.Round(l.Size))
	if side <= 0 {
		return nil, fmt.Errorf("calibration: marker size must be positive, got %v", l.Size)
	}

	canvas := imaging.New(width, height, color.White)
	for i, pos := range AbsolutePositions(l, float64(width), float64(height)) {
		marker, err := render(l.IDs[i], side)
		if err != nil {
			return nil, fmt.Errorf("calibration: render marker %d: %w", l.IDs[i], err)
		}
		at := image.Pt(int(math.Round(pos.X)), int(math.Round(pos.Y)))
		canvas = imaging.Paste(canvas, marker, at)
	}
	return canvas, nil
}
