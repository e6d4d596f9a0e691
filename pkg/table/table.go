// Package table runs the capture loop that feeds camera frames to the
// registered detector plugins.
package table

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-artable/internal/config"
	"github.com/teslashibe/go-artable/internal/log"
	"github.com/teslashibe/go-artable/pkg/geom"
	"github.com/teslashibe/go-artable/pkg/transform"
	"gocv.io/x/gocv"
)

var (
	// ErrUnknownUnit is returned by Size for units other than mm, cm, m and px
	ErrUnknownUnit = errors.New("table: unknown unit")

	// ErrSourceLost is returned by Run when the camera stops delivering frames
	ErrSourceLost = errors.New("table: camera stopped delivering frames")

	// ErrRunning is returned when Run is called twice concurrently
	ErrRunning = errors.New("table: capture loop already running")
)

// MaxReadFailures is the number of consecutive empty reads after which
// Run gives up on the camera.
const MaxReadFailures = 100

// Plugin consumes camera frames
type Plugin interface {
	// SetTransforms hands the plugin the current calibration
	SetTransforms(t transform.Transforms)
	// Removed is called when the plugin is unregistered
	Removed()
	// Update processes one frame on the capture goroutine
	Update(frame gocv.Mat)
}

// FrameSource is a blocking frame reader such as camera.Device
type FrameSource interface {
	Read(m *gocv.Mat) bool
}

// Table owns the camera, the homography store and the plugin set
type Table struct {
	cfg    *config.Table
	source FrameSource
	store  *transform.Store
	log    *slog.Logger

	mu      sync.Mutex
	plugins []Plugin

	running atomic.Bool
	stopped atomic.Bool
	frames  atomic.Uint64
}

// New creates a table reading from source. The store may already hold a
// calibration or receive one later through SetTransforms.
func New(cfg *config.Table, source FrameSource, store *transform.Store) *Table {
	return &Table{
		cfg:    cfg,
		source: source,
		store:  store,
		log:    log.Component("table"),
	}
}

// Store returns the homography store
func (t *Table) Store() *transform.Store {
	return t.store
}

// Config returns the static table configuration
func (t *Table) Config() *config.Table {
	return t.cfg
}

// SetTransforms installs a new calibration and passes it to every plugin
func (t *Table) SetTransforms(tr transform.Transforms) {
	t.store.Set(tr)
	for _, p := range t.snapshot() {
		p.SetTransforms(tr)
	}
}

// AddPlugin registers p, handing it the current calibration first.
// Adding a registered plugin again has no effect.
func (t *Table) AddPlugin(p Plugin) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.indexOf(p) >= 0 {
		return
	}
	if tr, err := t.store.Load(); err == nil {
		p.SetTransforms(tr)
	}
	t.plugins = append(t.plugins, p)
	t.log.Debug("plugin added", "plugins", len(t.plugins))
}

// RemovePlugin calls p.Removed and unregisters it
func (t *Table) RemovePlugin(p Plugin) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOf(p)
	if i < 0 {
		return
	}
	p.Removed()
	t.plugins = append(t.plugins[:i], t.plugins[i+1:]...)
	t.log.Debug("plugin removed", "plugins", len(t.plugins))
}

// Plugins returns the number of registered plugins
func (t *Table) Plugins() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.plugins)
}

func (t *Table) indexOf(p Plugin) int {
	for i, q := range t.plugins {
		if q == p {
			return i
		}
	}
	return -1
}

func (t *Table) snapshot() []Plugin {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Plugin, len(t.plugins))
	copy(out, t.plugins)
	return out
}

// Run reads frames and hands each one to every plugin in turn until ctx
// is cancelled or Stop is called. It returns ErrSourceLost after
// MaxReadFailures consecutive failed reads.
func (t *Table) Run(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer t.running.Store(false)

	frame := gocv.NewMat()
	defer frame.Close()

	t.log.Info("capture loop started")
	failures := 0
	for !t.stopped.Load() {
		if err := ctx.Err(); err != nil {
			t.log.Info("capture loop stopped", "frames", t.frames.Load())
			return err
		}

		if !t.source.Read(&frame) || frame.Empty() {
			failures++
			if failures >= MaxReadFailures {
				return fmt.Errorf("%w after %d reads", ErrSourceLost, failures)
			}
			continue
		}
		failures = 0
		t.frames.Add(1)

		for _, p := range t.snapshot() {
			p.Update(frame)
		}
	}

	t.log.Info("capture loop frozen", "frames", t.frames.Load())
	return nil
}

// Stop freezes the capture loop; plugins receive no further frames
func (t *Table) Stop() {
	t.stopped.Store(true)
}

// Frames returns the number of frames delivered so far
func (t *Table) Frames() uint64 {
	return t.frames.Load()
}

// Size returns the table size in mm, cm or m, or the projector
// resolution for px.
func (t *Table) Size(unit string) (geom.Point, error) {
	mm := t.cfg.TableSize()
	switch unit {
	case "mm":
		return mm, nil
	case "cm":
		return geom.Pt(mm.X/10, mm.Y/10), nil
	case "m":
		return geom.Pt(mm.X/1000, mm.Y/1000), nil
	case "px":
		if !t.cfg.HasProjector() {
			return geom.Point{}, transform.ErrNoProjector
		}
		return t.cfg.ProjectorSize(), nil
	}
	return geom.Point{}, fmt.Errorf("%w %q", ErrUnknownUnit, unit)
}
