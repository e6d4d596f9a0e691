// Package projector draws images onto the table through the projector,
// warping them with the calibrated table-to-projector homography.
package projector

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/teslashibe/go-artable/internal/config"
	"github.com/teslashibe/go-artable/internal/log"
	"github.com/teslashibe/go-artable/pkg/geom"
	"github.com/teslashibe/go-artable/pkg/transform"
	"gocv.io/x/gocv"
)

// Screen shows finished projector frames
type Screen interface {
	Show(frame gocv.Mat) error
	Close() error
}

// Projector renders table-space images to a Screen. Display and
// ShowPattern may be called from any goroutine.
type Projector struct {
	screen     Screen
	store      *transform.Store
	tableSize  geom.Point
	resolution image.Point
	log        *slog.Logger

	mu        sync.Mutex
	placement atomic.Pointer[transform.Placement]
}

// New creates a projector for cfg. It fails with transform.ErrNoProjector
// when cfg has no projector section.
func New(cfg *config.Table, store *transform.Store, screen Screen) (*Projector, error) {
	if !cfg.HasProjector() {
		return nil, transform.ErrNoProjector
	}
	p := &Projector{
		screen:     screen,
		store:      store,
		tableSize:  cfg.TableSize(),
		resolution: image.Pt(cfg.Projector.Width, cfg.Projector.Height),
		log:        log.Component("projector"),
	}
	empty := transform.Placement{}
	p.placement.Store(&empty)
	return p, nil
}

// ShowPattern shows img as-is, without warping. Used for calibration
// patterns that are already in projector pixels.
func (p *Projector) ShowPattern(img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("projector: convert pattern: %w", err)
	}
	defer mat.Close()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.screen.Show(mat)
}

// Display shows img on the table. With at nil the image is stretched over
// the whole table; otherwise it is drawn unscaled, 1px per table unit,
// with its top-left corner at *at. Display replaces whatever was shown
// before.
func (p *Projector) Display(img image.Image, at *geom.Point) error {
	tr, err := p.store.Load()
	if err != nil {
		return err
	}
	h, err := tr.TableToProjector()
	if err != nil {
		return err
	}

	canvas, placement := Compose(img, p.tableSize, at)

	src, err := gocv.ImageToMatRGB(canvas)
	if err != nil {
		return fmt.Errorf("projector: convert image: %w", err)
	}
	defer src.Close()

	m := homographyMat(h)
	defer m.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpPerspective(src, &dst, m, p.resolution)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.screen.Show(dst); err != nil {
		return err
	}
	p.placement.Store(&placement)
	return nil
}

// Placement returns where the image currently shown sits on the table
func (p *Projector) Placement() transform.Placement {
	return *p.placement.Load()
}

// Mapper returns a converter between table and displayed-image coordinates
func (p *Projector) Mapper() *transform.ImageMapper {
	return transform.NewImageMapper(p, true)
}

// Close closes the screen
func (p *Projector) Close() error {
	return p.screen.Close()
}

// Compose lays img out on a black table-sized canvas at 1px per table unit
// and returns the canvas with the resulting placement.
func Compose(img image.Image, tableSize geom.Point, at *geom.Point) (*image.NRGBA, transform.Placement) {
	w, h := int(math.Round(tableSize.X)), int(math.Round(tableSize.Y))
	b := img.Bounds()
	imageSize := geom.Pt(float64(b.Dx()), float64(b.Dy()))

	if at == nil {
		return imaging.Resize(img, w, h, imaging.Linear), transform.Stretched(tableSize, imageSize)
	}

	canvas := imaging.New(w, h, color.Black)
	canvas = imaging.Paste(canvas, img, image.Pt(int(math.Round(at.X)), int(math.Round(at.Y))))
	return canvas, transform.At(*at, imageSize)
}

func homographyMat(h geom.Homography) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, h[r][c])
		}
	}
	return m
}
