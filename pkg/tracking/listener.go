// Package tracking turns per-frame marker detections into table positions
// and area enter, move and leave events.
package tracking

import (
	"sort"
	"sync"
	"time"

	"github.com/teslashibe/go-artable/internal/timeutil"
	"github.com/teslashibe/go-artable/pkg/geom"
)

// Observation is one marker seen in one frame, in table coordinates
type Observation struct {
	ID       int
	Position geom.Point
}

// Listener receives semantic area events
type Listener interface {
	OnEnter(id int, position geom.Point)
	OnLeave(id int, lastPosition geom.Point)
	OnMove(id int, lastPosition, position geom.Point)
}

// BatchListener consumes one full observation batch per frame.
// An empty batch still counts as a frame.
type BatchListener interface {
	Update(batch []Observation)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Enter func(id int, position geom.Point)
	Leave func(id int, lastPosition geom.Point)
	Move  func(id int, lastPosition, position geom.Point)
}

// OnEnter calls f.Enter
func (f ListenerFuncs) OnEnter(id int, position geom.Point) {
	if f.Enter != nil {
		f.Enter(id, position)
	}
}

// OnLeave calls f.Leave
func (f ListenerFuncs) OnLeave(id int, lastPosition geom.Point) {
	if f.Leave != nil {
		f.Leave(id, lastPosition)
	}
}

// OnMove calls f.Move
func (f ListenerFuncs) OnMove(id int, lastPosition, position geom.Point) {
	if f.Move != nil {
		f.Move(id, lastPosition, position)
	}
}

type tracked struct {
	position geom.Point // baseline for the next move comparison
	seen     time.Time
}

// AreaListener tracks which of its markers are inside its area.
//
// Update must only be called from one goroutine (the capture loop).
// SetArea, SetIDs and SetThresholds may be called from any goroutine and
// take effect on the next batch.
type AreaListener struct {
	handler Listener
	clock   timeutil.Clock

	mu        sync.RWMutex
	area      geom.Rect
	ids       map[int]struct{}
	deltaSqr  float64
	threshold time.Duration

	last map[int]tracked
}

// NewAreaListener creates a listener that reports events to handler
func NewAreaListener(cfg AreaConfig, handler Listener) *AreaListener {
	l := &AreaListener{
		handler: handler,
		clock:   timeutil.RealClock{},
		last:    make(map[int]tracked),
	}
	l.SetArea(cfg.Area)
	l.SetIDs(cfg.IDs)
	l.SetThresholds(cfg.Delta, cfg.TimeThreshold)
	return l
}

// SetClock replaces the time source, for tests
func (l *AreaListener) SetClock(c timeutil.Clock) {
	l.clock = c
}

// SetArea replaces the watched area. Markers already tracked are not
// re-evaluated until they are next observed.
func (l *AreaListener) SetArea(area geom.Rect) {
	l.mu.Lock()
	l.area = area
	l.mu.Unlock()
}

// SetIDs replaces the set of ids of interest. Tracked markers whose id was
// dropped stay tracked until they are seen outside the area or time out.
func (l *AreaListener) SetIDs(ids []int) {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	l.mu.Lock()
	l.ids = set
	l.mu.Unlock()
}

// SetThresholds replaces the move distance and vanish timeout
func (l *AreaListener) SetThresholds(delta float64, timeThreshold time.Duration) {
	l.mu.Lock()
	l.deltaSqr = delta * delta
	l.threshold = timeThreshold
	l.mu.Unlock()
}

// Area returns the watched area
func (l *AreaListener) Area() geom.Rect {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.area
}

// IDs returns the ids of interest in ascending order
func (l *AreaListener) IDs() []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]int, 0, len(l.ids))
	for id := range l.ids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Update advances the state machine by one observation batch
func (l *AreaListener) Update(batch []Observation) {
	l.mu.RLock()
	area, ids, deltaSqr, threshold := l.area, l.ids, l.deltaSqr, l.threshold
	l.mu.RUnlock()

	now := l.clock.Now()

	for _, obs := range batch {
		prev, isTracked := l.last[obs.ID]
		_, wanted := ids[obs.ID]

		switch {
		case !area.Contains(obs.Position):
			if isTracked {
				delete(l.last, obs.ID)
				l.handler.OnLeave(obs.ID, prev.position)
			}
		case !wanted:
			// Stale id from a previous id set: no events, no refresh.
		case !isTracked:
			l.last[obs.ID] = tracked{position: obs.Position, seen: now}
			l.handler.OnEnter(obs.ID, obs.Position)
		case prev.position.DistSqr(obs.Position) > deltaSqr:
			l.last[obs.ID] = tracked{position: obs.Position, seen: now}
			l.handler.OnMove(obs.ID, prev.position, obs.Position)
		default:
			prev.seen = now
			l.last[obs.ID] = prev
		}
	}

	l.expire(now, threshold)
}

// expire fires OnLeave for markers not refreshed within threshold, in id order
func (l *AreaListener) expire(now time.Time, threshold time.Duration) {
	var gone []int
	for id, tr := range l.last {
		if now.Sub(tr.seen) > threshold {
			gone = append(gone, id)
		}
	}
	sort.Ints(gone)
	for _, id := range gone {
		tr := l.last[id]
		delete(l.last, id)
		l.handler.OnLeave(id, tr.position)
	}
}
