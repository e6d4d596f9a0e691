package web

import (
	"bytes"
	"sync"
	"time"

	"github.com/teslashibe/go-artable/pkg/transform"
	"gocv.io/x/gocv"
)

// FrameStreamer is a capture plugin that forwards throttled JPEG frames
// to dashboard clients watching the camera feed.
type FrameStreamer struct {
	server   *Server
	interval time.Duration
	quality  int

	mu   sync.Mutex
	last time.Time
}

// NewFrameStreamer sends at most one frame per interval
func NewFrameStreamer(s *Server, interval time.Duration) *FrameStreamer {
	return &FrameStreamer{server: s, interval: interval, quality: 70}
}

// SetTransforms is a no-op; the feed shows raw camera frames
func (f *FrameStreamer) SetTransforms(transform.Transforms) {}

// Removed is a no-op
func (f *FrameStreamer) Removed() {}

// Update encodes frame when someone is watching and the interval passed
func (f *FrameStreamer) Update(frame gocv.Mat) {
	if f.server.CameraClients() == 0 {
		return
	}
	f.mu.Lock()
	if time.Since(f.last) < f.interval {
		f.mu.Unlock()
		return
	}
	f.last = time.Now()
	f.mu.Unlock()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, f.quality})
	if err != nil {
		f.server.log.Debug("frame encode failed", "error", err)
		return
	}
	defer buf.Close()
	f.server.SendCameraFrame(bytes.Clone(buf.GetBytes()))
}
