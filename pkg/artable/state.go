package artable

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/teslashibe/go-artable/internal/config"
	"github.com/teslashibe/go-artable/internal/log"
	"github.com/teslashibe/go-artable/pkg/events"
	"github.com/teslashibe/go-artable/pkg/geom"
	"github.com/teslashibe/go-artable/pkg/refresh"
	"github.com/teslashibe/go-artable/pkg/tracking"
	"github.com/teslashibe/go-artable/pkg/web"
)

// ListenerHost accepts area listeners, e.g. tracking.MarkerPlugin
type ListenerHost interface {
	AddListener(l tracking.BatchListener)
	RemoveListener(l tracking.BatchListener)
}

// ImageMapper converts table positions into pixels of the displayed image,
// e.g. projector.Projector.Mapper()
type ImageMapper interface {
	TableToImage(p geom.Point) (geom.Point, error)
}

// zone is one configured area with its listener and current occupants
type zone struct {
	cfg      config.Zone
	listener *tracking.AreaListener
	markers  map[int]geom.Point
}

// State is the application state shared by the capture goroutine, the
// render loop and the dashboard. Listener callbacks write it; everyone
// else reads snapshots.
type State struct {
	sink  events.Sink
	queue *refresh.Queue
	log   *slog.Logger

	mu     sync.RWMutex
	zones  map[string]*zone
	order  []string
	mapper ImageMapper
}

// NewState creates an empty state publishing events to sink and waking
// queue on every change.
func NewState(sink events.Sink, queue *refresh.Queue) *State {
	return &State{
		sink:  sink,
		queue: queue,
		log:   log.Component("state"),
		zones: make(map[string]*zone),
	}
}

// SetMapper makes events carry the marker position in the displayed image
func (s *State) SetMapper(m ImageMapper) {
	s.mu.Lock()
	s.mapper = m
	s.mu.Unlock()
}

// Apply installs zones, reusing the listener of every zone whose name is
// unchanged so its tracked markers survive the reload. Zones no longer
// present are unsubscribed from host.
func (s *State) Apply(zones *config.Zones, host ListenerHost) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make(map[string]bool, len(zones.Zones))
	order := make([]string, 0, len(zones.Zones))
	for _, zc := range zones.Zones {
		keep[zc.Name] = true
		order = append(order, zc.Name)
		ac := areaConfig(zc)

		if z, ok := s.zones[zc.Name]; ok {
			z.cfg = zc
			z.listener.SetArea(ac.Area)
			z.listener.SetIDs(ac.IDs)
			z.listener.SetThresholds(ac.Delta, ac.TimeThreshold)
			s.log.Info("zone updated", "zone", zc.Name, "ids", zc.IDs)
			continue
		}

		z := &zone{cfg: zc, markers: make(map[int]geom.Point)}
		z.listener = tracking.NewAreaListener(ac, &zoneHandler{state: s, name: zc.Name})
		s.zones[zc.Name] = z
		host.AddListener(z.listener)
		s.log.Info("zone added", "zone", zc.Name, "ids", zc.IDs)
	}

	for name, z := range s.zones {
		if !keep[name] {
			host.RemoveListener(z.listener)
			delete(s.zones, name)
			s.log.Info("zone removed", "zone", name)
		}
	}
	s.order = order
	s.queue.Notify()
}

// areaConfig starts from the zone preset and applies explicit thresholds
func areaConfig(zc config.Zone) tracking.AreaConfig {
	var ac tracking.AreaConfig
	switch zc.Preset {
	case config.PresetSlow:
		ac = tracking.SlowConfig(zc.Rect(), zc.IDs...)
	case config.PresetPointer:
		ac = tracking.PointerConfig(zc.Rect(), zc.IDs...)
	default:
		ac = tracking.DefaultAreaConfig(zc.Rect(), zc.IDs...)
	}
	if zc.Delta > 0 {
		ac.Delta = zc.Delta
	}
	if zc.TimeThreshold > 0 {
		ac.TimeThreshold = zc.Threshold()
	}
	return ac
}

// Zones returns every zone with its current occupants, in file order
func (s *State) Zones() []web.ZoneState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]web.ZoneState, 0, len(s.order))
	for _, name := range s.order {
		z := s.zones[name]
		zs := web.ZoneState{
			Name:    name,
			Area:    z.cfg.Rect(),
			IDs:     append([]int(nil), z.cfg.IDs...),
			Markers: make([]web.MarkerState, 0, len(z.markers)),
		}
		for id, pos := range z.markers {
			zs.Markers = append(zs.Markers, web.MarkerState{ID: id, Label: z.cfg.Label(id), Position: pos})
		}
		sort.Slice(zs.Markers, func(i, j int) bool { return zs.Markers[i].ID < zs.Markers[j].ID })
		out = append(out, zs)
	}
	return out
}

// record applies one listener event. Events for zones removed by a reload
// are dropped.
func (s *State) record(kind events.Kind, name string, id int, from *geom.Point, pos geom.Point) {
	s.mu.Lock()
	z, ok := s.zones[name]
	if !ok {
		s.mu.Unlock()
		return
	}
	if kind == events.Leave {
		delete(z.markers, id)
	} else {
		z.markers[id] = pos
	}
	label := z.cfg.Label(id)
	mapper := s.mapper
	s.mu.Unlock()

	e := events.New(kind, name, id, label, pos)
	e.From = from
	if mapper != nil {
		// Fails until the first image is displayed.
		if img, err := mapper.TableToImage(pos); err == nil {
			e.Image = &img
		}
	}
	s.sink.Publish(e)
	s.queue.Notify()
}

// zoneHandler routes listener callbacks of one zone into the state
type zoneHandler struct {
	state *State
	name  string
}

func (h *zoneHandler) OnEnter(id int, pos geom.Point) {
	h.state.record(events.Enter, h.name, id, nil, pos)
}

func (h *zoneHandler) OnMove(id int, last, pos geom.Point) {
	h.state.record(events.Move, h.name, id, &last, pos)
}

func (h *zoneHandler) OnLeave(id int, last geom.Point) {
	h.state.record(events.Leave, h.name, id, nil, last)
}
