package calibration

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/teslashibe/go-artable/internal/config"
	"github.com/teslashibe/go-artable/internal/log"
	"github.com/teslashibe/go-artable/pkg/geom"
	"github.com/teslashibe/go-artable/pkg/transform"
	"github.com/teslashibe/go-artable/pkg/tracking/detection"
)

// Observer captures one frame and returns the markers visible in it
type Observer interface {
	Observe(ctx context.Context) ([]detection.Marker, error)
}

// PatternDisplay shows the projector calibration pattern
type PatternDisplay interface {
	ShowPattern(img image.Image) error
}

// Engine runs the calibration procedure
type Engine struct {
	cfg      *config.Table
	observer Observer
	display  PatternDisplay
	render   MarkerRenderer
	log      *slog.Logger

	// ReportEvery controls how often a still-searching engine logs what it sees
	ReportEvery time.Duration
}

// NewEngine creates an engine. display and render are only used when cfg
// has a projector.
func NewEngine(cfg *config.Table, obs Observer, display PatternDisplay, render MarkerRenderer) *Engine {
	return &Engine{
		cfg:         cfg,
		observer:    obs,
		display:     display,
		render:      render,
		log:         log.Component("calibration"),
		ReportEvery: 5 * time.Second,
	}
}

// Calibrate blocks until the table plane, and the projector plane when
// configured, have been located, or ctx is cancelled.
func (e *Engine) Calibrate(ctx context.Context) (transform.Transforms, error) {
	var result transform.Transforms

	tableLayout, err := LayoutFrom(e.cfg.Table.Marker)
	if err != nil {
		return result, err
	}
	size := e.cfg.TableSize()
	e.log.Info("calibrating table", "ids", tableLayout.IDs, "size", size)
	result.TableToCamera, result.CameraToTable, err = e.locate(ctx, "table",
		tableLayout, AbsolutePositions(tableLayout, size.X, size.Y))
	if err != nil {
		return result, err
	}

	if !e.cfg.HasProjector() {
		e.log.Info("calibration complete", "projector", false)
		return result, nil
	}

	projLayout, err := LayoutFrom(e.cfg.Projector.Marker)
	if err != nil {
		return result, err
	}
	w, h := e.cfg.Projector.Width, e.cfg.Projector.Height
	pattern, err := RenderPattern(projLayout, w, h, e.render)
	if err != nil {
		return result, err
	}
	if err := e.display.ShowPattern(pattern); err != nil {
		return result, err
	}

	e.log.Info("calibrating projector", "ids", projLayout.IDs, "resolution", [2]int{w, h})
	result.ProjectorToCamera, result.CameraToProjector, err = e.locate(ctx, "projector",
		projLayout, AbsolutePositions(projLayout, float64(w), float64(h)))
	if err != nil {
		return result, err
	}
	result.HasProjector = true

	e.log.Info("calibration complete", "projector", true)
	return result, nil
}

// locate observes frames until all four layout markers are visible and
// returns the fitted plane-to-camera transform and its inverse.
func (e *Engine) locate(ctx context.Context, plane string, l Layout, expected [4]geom.Point) (geom.Homography, geom.Homography, error) {
	var lastReport time.Time
	for {
		if err := ctx.Err(); err != nil {
			return geom.Homography{}, geom.Homography{}, err
		}

		markers, err := e.observer.Observe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return geom.Homography{}, geom.Homography{}, ctx.Err()
			}
			e.log.Warn("observe failed", "plane", plane, "error", err)
			continue
		}

		quad, ok := SelectQuad(markers, l.IDs)
		if !ok {
			if time.Since(lastReport) >= e.ReportEvery {
				e.log.Info("waiting for markers", "plane", plane, "want", l.IDs, "seen", ids(markers))
				lastReport = time.Now()
			}
			continue
		}

		forward, inverse, err := Fit(expected, quad)
		if err != nil {
			e.log.Warn("fit failed", "plane", plane, "quad", quad, "error", err)
			continue
		}
		e.log.Debug("plane located", "plane", plane, "quad", quad)
		return forward, inverse, nil
	}
}

func ids(markers []detection.Marker) []int {
	out := make([]int, len(markers))
	for i, m := range markers {
		out[i] = m.ID
	}
	return out
}
