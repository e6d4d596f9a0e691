package camera

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-artable/internal/log"
	"gocv.io/x/gocv"
)

var (
	// ErrOpen is returned when the capture device cannot be opened
	ErrOpen = errors.New("camera: cannot open device")

	// ErrFirstFrame is returned when an opened device delivers no frame
	ErrFirstFrame = errors.New("camera: no frame from device")

	// ErrIndexChange is returned when Apply is asked to switch devices
	ErrIndexChange = errors.New("camera: device index cannot change while open")
)

// Device is an open capture device. Read and Apply may be called from
// different goroutines.
type Device struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	cfg     Config
	log     *slog.Logger
}

// Open opens the device at cfg.Index, applies the capture settings and
// checks that a first frame arrives.
func Open(cfg Config) (*Device, error) {
	capture, err := gocv.OpenVideoCapture(cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("%w %d: %v", ErrOpen, cfg.Index, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w %d", ErrOpen, cfg.Index)
	}

	d := &Device{
		capture: capture,
		cfg:     cfg,
		log:     log.Component("camera").With("index", cfg.Index),
	}
	d.apply(cfg)

	frame := gocv.NewMat()
	defer frame.Close()
	if !capture.Read(&frame) || frame.Empty() {
		capture.Close()
		return nil, fmt.Errorf("%w %d", ErrFirstFrame, cfg.Index)
	}

	d.log.Info("camera opened",
		"requested", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"actual", fmt.Sprintf("%dx%d", frame.Cols(), frame.Rows()))
	return d, nil
}

// Read grabs the next frame into m. It returns false when the device
// delivered nothing.
func (d *Device) Read(m *gocv.Mat) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capture.Read(m)
}

// Apply changes the capture settings of the open device
func (d *Device) Apply(cfg Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cfg.Index != d.cfg.Index {
		return ErrIndexChange
	}
	d.apply(cfg)
	d.cfg = cfg
	return nil
}

// Config returns the settings last applied
func (d *Device) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Close releases the device
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capture.Close()
}

func (d *Device) apply(cfg Config) {
	c := d.capture
	if cfg.Width > 0 && cfg.Height > 0 {
		c.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		c.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.Framerate > 0 {
		c.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}

	// V4L2 encodes auto exposure as 0.75 and manual as 0.25
	if cfg.Exposure == 0 {
		c.Set(gocv.VideoCaptureAutoExposure, 0.75)
	} else {
		c.Set(gocv.VideoCaptureAutoExposure, 0.25)
		c.Set(gocv.VideoCaptureExposure, cfg.Exposure)
	}

	if cfg.Brightness >= 0 {
		c.Set(gocv.VideoCaptureBrightness, cfg.Brightness)
	}
	if cfg.Gain > 0 {
		c.Set(gocv.VideoCaptureGain, cfg.Gain)
	}

	if cfg.Autofocus {
		c.Set(gocv.VideoCaptureAutoFocus, 1)
	} else {
		c.Set(gocv.VideoCaptureAutoFocus, 0)
		c.Set(gocv.VideoCaptureFocus, cfg.Focus)
	}

	d.log.Debug("capture settings applied",
		"width", cfg.Width, "height", cfg.Height, "fps", cfg.Framerate,
		"exposure", cfg.Exposure, "gain", cfg.Gain, "autofocus", cfg.Autofocus)
}
