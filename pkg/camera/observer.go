package camera

import (
	"context"
	"errors"

	"github.com/teslashibe/go-artable/pkg/tracking/detection"
	"gocv.io/x/gocv"
)

// ErrRead is returned by Observe when the source delivered no frame
var ErrRead = errors.New("camera: frame read failed")

// FrameReader is anything that fills a Mat with the next frame
type FrameReader interface {
	Read(m *gocv.Mat) bool
}

// Observer captures one frame and runs marker detection on it, without
// any table mapping. Calibration uses it before transforms exist.
type Observer struct {
	src      FrameReader
	detector detection.Detector
	frame    gocv.Mat
	preview  *gocv.Window
}

// NewObserver creates an observer reading from src
func NewObserver(src FrameReader, det detection.Detector) *Observer {
	return &Observer{
		src:      src,
		detector: det,
		frame:    gocv.NewMat(),
	}
}

// EnablePreview shows every observed frame with its detected markers in a
// window called name.
func (o *Observer) EnablePreview(name string) {
	if o.preview == nil {
		o.preview = gocv.NewWindow(name)
	}
}

// Observe reads a frame and returns the markers found in it
func (o *Observer) Observe(ctx context.Context) ([]detection.Marker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !o.src.Read(&o.frame) || o.frame.Empty() {
		return nil, ErrRead
	}

	markers, err := o.detector.Detect(o.frame)
	if err != nil {
		return nil, err
	}

	if o.preview != nil {
		detection.Draw(&o.frame, markers)
		o.preview.IMShow(o.frame)
		o.preview.WaitKey(1)
	}
	return markers, nil
}

// Close releases the frame buffer and the preview window
func (o *Observer) Close() error {
	if o.preview != nil {
		o.preview.Close()
		o.preview = nil
	}
	return o.frame.Close()
}
