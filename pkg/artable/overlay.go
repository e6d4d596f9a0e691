package artable

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/teslashibe/go-artable/pkg/geom"
	"github.com/teslashibe/go-artable/pkg/web"
)

// Overlay colors and sizes, in table units
var (
	zoneColor   = color.NRGBA{R: 40, G: 120, B: 255, A: 255}
	markerColor = color.NRGBA{R: 255, G: 200, B: 0, A: 255}
	borderColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	zoneOpacity = 0.3
	borderWidth = 3
	markerSize  = 30
)

// RenderOverlay draws every zone and a square under each tracked marker on
// a black table-sized canvas at 1px per table unit.
func RenderOverlay(tableSize geom.Point, zones []web.ZoneState) *image.NRGBA {
	w, h := int(math.Round(tableSize.X)), int(math.Round(tableSize.Y))
	canvas := imaging.New(w, h, color.Black)

	for _, z := range zones {
		r := pixelRect(z.Area).Intersect(canvas.Bounds())
		if r.Empty() {
			continue
		}
		canvas = imaging.Overlay(canvas, imaging.New(r.Dx(), r.Dy(), zoneColor), r.Min, zoneOpacity)
		canvas = outline(canvas, r)
	}

	for _, z := range zones {
		for _, m := range z.Markers {
			half := markerSize / 2
			at := image.Pt(int(math.Round(m.Position.X))-half, int(math.Round(m.Position.Y))-half)
			canvas = imaging.Paste(canvas, imaging.New(markerSize, markerSize, markerColor), at)
		}
	}
	return canvas
}

func pixelRect(r geom.Rect) image.Rectangle {
	return image.Rect(
		int(math.Floor(r.Min.X)), int(math.Floor(r.Min.Y)),
		int(math.Ceil(r.Max.X))+1, int(math.Ceil(r.Max.Y))+1,
	)
}

func outline(canvas *image.NRGBA, r image.Rectangle) *image.NRGBA {
	bw := min(borderWidth, r.Dx(), r.Dy())
	horizontal := imaging.New(r.Dx(), bw, borderColor)
	vertical := imaging.New(bw, r.Dy(), borderColor)
	canvas = imaging.Paste(canvas, horizontal, r.Min)
	canvas = imaging.Paste(canvas, horizontal, image.Pt(r.Min.X, r.Max.Y-bw))
	canvas = imaging.Paste(canvas, vertical, r.Min)
	canvas = imaging.Paste(canvas, vertical, image.Pt(r.Max.X-bw, r.Min.Y))
	return canvas
}
