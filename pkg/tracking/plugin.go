package tracking

import (
	"log/slog"
	"sync"

	"github.com/teslashibe/go-artable/internal/log"
	"github.com/teslashibe/go-artable/pkg/transform"
	"github.com/teslashibe/go-artable/pkg/tracking/detection"
	"gocv.io/x/gocv"
)

// MarkerPlugin detects markers in every camera frame, maps their centroids
// onto the table and hands the batch to each registered listener.
type MarkerPlugin struct {
	detector detection.Detector
	log      *slog.Logger

	mu         sync.RWMutex
	transforms *transform.Transforms
	listeners  map[BatchListener]struct{}
}

// NewMarkerPlugin creates a plugin around det. It stays idle until the
// table hands it transforms.
func NewMarkerPlugin(det detection.Detector) *MarkerPlugin {
	return &MarkerPlugin{
		detector:  det,
		log:       log.Component("markers"),
		listeners: make(map[BatchListener]struct{}),
	}
}

// SetTransforms stores the calibration used to place markers on the table
func (p *MarkerPlugin) SetTransforms(t transform.Transforms) {
	p.mu.Lock()
	p.transforms = &t
	p.mu.Unlock()
}

// Removed drops the calibration; later frames are ignored
func (p *MarkerPlugin) Removed() {
	p.mu.Lock()
	p.transforms = nil
	p.mu.Unlock()
}

// AddListener subscribes l. Adding the same listener twice has no effect.
func (p *MarkerPlugin) AddListener(l BatchListener) {
	p.mu.Lock()
	p.listeners[l] = struct{}{}
	p.mu.Unlock()
}

// RemoveListener unsubscribes l
func (p *MarkerPlugin) RemoveListener(l BatchListener) {
	p.mu.Lock()
	delete(p.listeners, l)
	p.mu.Unlock()
}

// ListenerCount returns the number of subscribed listeners
func (p *MarkerPlugin) ListenerCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.listeners)
}

// Update runs detection on frame and dispatches the result
func (p *MarkerPlugin) Update(frame gocv.Mat) {
	markers, err := p.detector.Detect(frame)
	if err != nil {
		p.log.Debug("detect failed", "error", err)
		return
	}
	p.Process(markers)
}

// Process maps detected markers onto the table and dispatches one batch to
// every listener. It returns the batch, or nil when not calibrated.
func (p *MarkerPlugin) Process(markers []detection.Marker) []Observation {
	p.mu.RLock()
	tr := p.transforms
	listeners := make([]BatchListener, 0, len(p.listeners))
	for l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.RUnlock()

	if tr == nil {
		return nil
	}

	batch := Observe(markers, *tr)
	for _, l := range listeners {
		l.Update(batch)
	}
	return batch
}

// Observe converts camera-space markers to table observations using each
// marker's centroid.
func Observe(markers []detection.Marker, t transform.Transforms) []Observation {
	batch := make([]Observation, len(markers))
	for i, m := range markers {
		batch[i] = Observation{
			ID:       m.ID,
			Position: t.CameraToTable.Apply(m.Centroid()),
		}
	}
	return batch
}
