package artable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-artable/internal/config"
	"github.com/teslashibe/go-artable/internal/log"
	"github.com/teslashibe/go-artable/pkg/calibration"
	"github.com/teslashibe/go-artable/pkg/camera"
	"github.com/teslashibe/go-artable/pkg/events"
	"github.com/teslashibe/go-artable/pkg/notify"
	"github.com/teslashibe/go-artable/pkg/projector"
	"github.com/teslashibe/go-artable/pkg/refresh"
	"github.com/teslashibe/go-artable/pkg/table"
	"github.com/teslashibe/go-artable/pkg/tracking"
	"github.com/teslashibe/go-artable/pkg/tracking/detection"
	"github.com/teslashibe/go-artable/pkg/transform"
	"github.com/teslashibe/go-artable/pkg/web"
)

// App is the table application
type App struct {
	config Config
	table  *config.Table
	log    *slog.Logger

	// Capture
	device        *camera.Device
	cameraManager *camera.Manager
	detector      *detection.ArucoDetector

	// Calibration & output
	store     *transform.Store
	projector *projector.Projector

	// Tracking
	capture *table.Table
	markers *tracking.MarkerPlugin
	state   *State
	queue   *refresh.Queue

	// Outer surfaces
	webServer *web.Server
	notifier  *notify.Notifier

	started     bool
	captureErr  chan error
	captureDone chan struct{}
}

// New loads the table configuration and creates the application.
func New(cfg Config) (*App, error) {
	cfg.LoadEnvConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Init(cfg.LogLevel)

	tcfg, err := config.Load(cfg.TablePath)
	if err != nil {
		return nil, fmt.Errorf("table config: %w", err)
	}
	if err := tcfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("table config: %w", err)
	}

	return &App{
		config:      cfg,
		table:       tcfg,
		log:         log.Component("app"),
		store:       transform.NewStore(),
		queue:       refresh.New(),
		captureErr:  make(chan error, 1),
		captureDone: make(chan struct{}),
	}, nil
}

// Init opens the camera and projector, calibrates and subscribes the
// zones. Camera failures are returned wrapping camera.ErrOpen or
// camera.ErrFirstFrame.
func (a *App) Init(ctx context.Context) error {
	a.log.Info("starting",
		"table", a.config.TablePath,
		"projector", a.table.HasProjector(),
		"dictionary", a.table.Dictionary)

	if err := a.initCamera(); err != nil {
		return err
	}

	det, err := detection.NewAruco(detection.Config{Dictionary: a.table.Dictionary})
	if err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	a.detector = det

	if a.table.HasProjector() {
		p := a.table.Projector
		win := projector.OpenWindow("artable", p.Screen, p.Width)
		a.projector, err = projector.New(a.table, a.store, win)
		if err != nil {
			win.Close()
			return fmt.Errorf("projector: %w", err)
		}
	}

	tr, err := a.calibrate(ctx)
	if err != nil {
		return fmt.Errorf("calibration: %w", err)
	}

	a.capture = table.New(a.table, a.device, a.store)
	a.capture.SetTransforms(tr)
	a.markers = tracking.NewMarkerPlugin(a.detector)
	a.capture.AddPlugin(a.markers)

	sinks := events.Fanout{events.SinkFunc(a.logEvent)}
	if a.config.Port != "" {
		a.webServer = web.NewServer(a.config.Port, a.cameraManager)
		a.webServer.OnReload = func() error { return a.reload("api") }
		a.capture.AddPlugin(web.NewFrameStreamer(a.webServer, a.config.FrameInterval))
		sinks = append(sinks, a.webServer)
	}
	if a.config.NotifyURL != "" {
		a.notifier = notify.New(a.config.NotifyURL)
		sinks = append(sinks, a.notifier)
	}

	a.state = NewState(sinks, a.queue)
	if a.projector != nil {
		a.state.SetMapper(a.projector.Mapper())
	}
	return a.ReloadZones()
}

func (a *App) initCamera() error {
	cfg := camera.DefaultConfig()
	cfg.Index = a.table.Camera.Index
	if a.table.Camera.Width > 0 && a.table.Camera.Height > 0 {
		cfg.Width, cfg.Height = a.table.Camera.Width, a.table.Camera.Height
	}

	dev, err := camera.Open(cfg)
	if err != nil {
		return err
	}
	a.device = dev
	a.cameraManager = camera.NewManager(cfg)
	a.cameraManager.OnConfigChange = dev.Apply
	return nil
}

func (a *App) calibrate(ctx context.Context) (transform.Transforms, error) {
	obs := camera.NewObserver(a.device, a.detector)
	defer obs.Close()
	if a.config.Preview {
		obs.EnablePreview("Marker (Calibration)")
	}

	var display calibration.PatternDisplay
	if a.projector != nil {
		display = a.projector
	}
	return calibration.NewEngine(a.table, obs, display, a.detector.Render).Calibrate(ctx)
}

// ReloadZones re-reads the zone file and applies it without dropping
// tracked markers of unchanged zones.
func (a *App) ReloadZones() error {
	zones, err := config.LoadZones(a.config.ZonesPath)
	if err != nil {
		return fmt.Errorf("zones %s: %w", a.config.ZonesPath, err)
	}
	a.state.Apply(zones, a.markers)
	a.log.Info("zones loaded", "path", a.config.ZonesPath, "zones", len(zones.Zones))
	return nil
}

// reload runs ReloadZones for source and reports the outcome on the
// dashboard. On failure the previous zones stay active.
func (a *App) reload(source string) error {
	err := a.ReloadZones()
	if err != nil {
		a.log.Error("zone reload failed, keeping previous zones", "source", source, "error", err)
	}
	if a.webServer != nil {
		if err != nil {
			a.webServer.AddLog("error", fmt.Sprintf("zone reload (%s) failed: %v", source, err))
		} else {
			a.webServer.AddLog("info", fmt.Sprintf("zones reloaded (%s)", source))
		}
	}
	return err
}

// Run starts the capture loop and the background services, then renders
// on every state change. Blocks until ctx is cancelled or the camera is
// lost.
func (a *App) Run(ctx context.Context) error {
	a.started = true
	go func() {
		defer close(a.captureDone)
		if err := a.capture.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.captureErr <- err
		}
	}()

	if a.notifier != nil {
		go a.notifier.Run(ctx)
	}
	if a.webServer != nil {
		a.webServer.StartAsync()
		a.webServer.AddLog("info", "table calibrated")
		go a.publishFrames(ctx)
	}
	go a.watchReload(ctx)

	a.queue.Notify()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-a.captureErr:
			return err
		case <-a.queue.C():
			a.render()
		}
	}
}

// render shows the current zones on the projector and the dashboard
func (a *App) render() {
	zones := a.state.Zones()

	if a.webServer != nil {
		a.webServer.UpdateState(func(s *web.State) {
			s.Calibrated = a.store.Calibrated()
			s.Projector = a.projector != nil
			s.Frames = a.capture.Frames()
			s.Zones = zones
		})
	}

	if a.projector != nil {
		overlay := RenderOverlay(a.table.TableSize(), zones)
		if err := a.projector.Display(overlay, nil); err != nil {
			a.log.Warn("display failed", "error", err)
		}
	}
}

// watchReload reloads the zone file on SIGHUP
func (a *App) watchReload(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := a.reload("signal"); err != nil {
				continue
			}
			a.log.Debug("zones reloaded on SIGHUP")
		}
	}
}

// publishFrames keeps the dashboard frame counter current
func (a *App) publishFrames(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frames := a.capture.Frames()
			a.webServer.UpdateState(func(s *web.State) { s.Frames = frames })
		}
	}
}

func (a *App) logEvent(e events.Event) {
	a.log.Info("marker event",
		"kind", e.Kind, "zone", e.Zone, "marker", e.Marker, "label", e.Label,
		"x", e.Position.X, "y", e.Position.Y)
	if a.webServer != nil {
		a.webServer.AddLog("event", fmt.Sprintf("%s %s %s", e.Label, e.Kind, e.Zone))
	}
}

// Shutdown stops the capture loop and releases all devices.
func (a *App) Shutdown() {
	a.log.Info("shutting down")

	if a.capture != nil && a.started {
		a.capture.Stop()
		select {
		case <-a.captureDone:
		case <-time.After(2 * time.Second):
			a.log.Warn("capture loop did not stop")
		}
	}
	if a.webServer != nil {
		a.webServer.Shutdown()
	}
	if a.projector != nil {
		a.projector.Close()
	}
	if a.detector != nil {
		a.detector.Close()
	}
	if a.device != nil {
		a.device.Close()
	}
}
