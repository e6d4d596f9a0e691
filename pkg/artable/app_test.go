package artable

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-artable/internal/config"
	"github.com/teslashibe/go-artable/internal/log"
	"github.com/teslashibe/go-artable/internal/timeutil"
	"github.com/teslashibe/go-artable/pkg/events"
	"github.com/teslashibe/go-artable/pkg/geom"
	"github.com/teslashibe/go-artable/pkg/refresh"
	"github.com/teslashibe/go-artable/pkg/tracking"
	"github.com/teslashibe/go-artable/pkg/transform"
	"github.com/teslashibe/go-artable/pkg/web"
)

var _ ImageMapper = (*transform.ImageMapper)(nil)

type host struct {
	listeners map[tracking.BatchListener]bool
}

func newHost() *host { return &host{listeners: make(map[tracking.BatchListener]bool)} }

func (h *host) AddListener(l tracking.BatchListener)    { h.listeners[l] = true }
func (h *host) RemoveListener(l tracking.BatchListener) { delete(h.listeners, l) }

func (h *host) update(batch ...tracking.Observation) {
	for l := range h.listeners {
		l.Update(batch)
	}
}

type sink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *sink) Publish(e events.Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

type brief struct {
	Kind   events.Kind
	Zone   string
	Marker int
	Label  string
}

func (s *sink) take() []brief {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]brief, len(s.events))
	for i, e := range s.events {
		out[i] = brief{e.Kind, e.Zone, e.Marker, e.Label}
	}
	s.events = nil
	return out
}

func testZones() *config.Zones {
	return &config.Zones{Zones: []config.Zone{
		{
			Name:   "map",
			Area:   [2][2]float64{{0, 0}, {500, 400}},
			IDs:    []int{1, 2},
			Labels: map[string]string{"1": "solar", "2": "wind"},
		},
		{
			Name:          "legend",
			Area:          [2][2]float64{{600, 0}, {800, 400}},
			IDs:           []int{1},
			Delta:         20,
			TimeThreshold: 3,
		},
	}}
}

func obs(id int, x, y float64) tracking.Observation {
	return tracking.Observation{ID: id, Position: geom.Pt(x, y)}
}

func TestState_EventsAndOccupants(t *testing.T) {
	s := &sink{}
	q := refresh.New()
	state := NewState(s, q)
	h := newHost()

	state.Apply(testZones(), h)
	assert.Len(t, h.listeners, 2)
	assert.True(t, q.Pending())
	<-q.C()

	h.update(obs(1, 100, 100), obs(2, 700, 100))
	want := []brief{{events.Enter, "map", 1, "solar"}}
	if diff := cmp.Diff(want, s.take()); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	assert.True(t, q.Pending())

	zones := state.Zones()
	require.Len(t, zones, 2)
	assert.Equal(t, "map", zones[0].Name)
	assert.Equal(t, []web.MarkerState{{ID: 1, Label: "solar", Position: geom.Pt(100, 100)}}, zones[0].Markers)
	assert.Empty(t, zones[1].Markers)

	h.update(obs(1, 700, 100))
	want = []brief{
		{events.Leave, "map", 1, "solar"},
		{events.Enter, "legend", 1, "1"},
	}
	got := s.take()
	assert.ElementsMatch(t, want, got)

	zones = state.Zones()
	assert.Empty(t, zones[0].Markers)
	assert.Len(t, zones[1].Markers, 1)
}

func TestState_MoveCarriesFrom(t *testing.T) {
	s := &sink{}
	state := NewState(s, refresh.New())
	h := newHost()
	state.Apply(testZones(), h)

	h.update(obs(2, 100, 100))
	h.update(obs(2, 200, 100))

	require.Len(t, s.events, 2)
	move := s.events[1]
	assert.Equal(t, events.Move, move.Kind)
	require.NotNil(t, move.From)
	assert.Equal(t, geom.Pt(100, 100), *move.From)
	assert.Equal(t, geom.Pt(200, 100), move.Position)
}

func TestState_ReloadKeepsTrackedMarkers(t *testing.T) {
	s := &sink{}
	state := NewState(s, refresh.New())
	h := newHost()
	state.Apply(testZones(), h)

	h.update(obs(1, 100, 100))
	s.take()

	reloaded := testZones()
	reloaded.Zones = reloaded.Zones[:1]
	reloaded.Zones[0].IDs = []int{2}
	state.Apply(reloaded, h)

	assert.Len(t, h.listeners, 1, "legend unsubscribed")
	zones := state.Zones()
	require.Len(t, zones, 1)
	assert.Equal(t, []int{2}, zones[0].IDs)
	assert.Len(t, zones[0].Markers, 1, "marker 1 stays until it leaves")

	// Seen outside the area: the stale id still leaves.
	h.update(obs(1, 900, 900))
	assert.Equal(t, []brief{{events.Leave, "map", 1, "solar"}}, s.take())
}

func TestState_ThresholdDefaults(t *testing.T) {
	zones := testZones()

	def := areaConfig(zones.Zones[0])
	assert.Equal(t, tracking.DefaultAreaConfig(geom.Rect{}).Delta, def.Delta)
	assert.Equal(t, time.Second, def.TimeThreshold)

	custom := areaConfig(zones.Zones[1])
	assert.Equal(t, 20.0, custom.Delta)
	assert.Equal(t, 3*time.Second, custom.TimeThreshold)
	assert.Equal(t, geom.R(geom.Pt(600, 0), geom.Pt(800, 400)), custom.Area)
}

func TestState_ZonePresets(t *testing.T) {
	area := geom.R(geom.Pt(0, 0), geom.Pt(100, 100))
	tests := []struct {
		name string
		zone config.Zone
		want tracking.AreaConfig
	}{
		{
			name: "slow",
			zone: config.Zone{IDs: []int{3}, Area: [2][2]float64{{0, 0}, {100, 100}}, Preset: config.PresetSlow},
			want: tracking.SlowConfig(area, 3),
		},
		{
			name: "pointer",
			zone: config.Zone{IDs: []int{3}, Area: [2][2]float64{{0, 0}, {100, 100}}, Preset: config.PresetPointer},
			want: tracking.PointerConfig(area, 3),
		},
		{
			name: "pointer with explicit threshold",
			zone: config.Zone{IDs: []int{3}, Area: [2][2]float64{{0, 0}, {100, 100}}, Preset: config.PresetPointer, TimeThreshold: 4},
			want: func() tracking.AreaConfig {
				c := tracking.PointerConfig(area, 3)
				c.TimeThreshold = 4 * time.Second
				return c
			}(),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, areaConfig(tc.zone))
		})
	}
}

func TestState_TimedLeave(t *testing.T) {
	s := &sink{}
	state := NewState(s, refresh.New())
	h := newHost()
	state.Apply(testZones(), h)

	clock := timeutil.NewMockClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	for l := range h.listeners {
		l.(*tracking.AreaListener).SetClock(clock)
	}

	h.update(obs(2, 10, 10))
	clock.Advance(1500 * time.Millisecond)
	h.update()

	assert.Equal(t, []brief{
		{events.Enter, "map", 2, "wind"},
		{events.Leave, "map", 2, "wind"},
	}, s.take())
}

func TestRenderOverlay(t *testing.T) {
	zones := []web.ZoneState{{
		Name:    "map",
		Area:    geom.R(geom.Pt(10, 10), geom.Pt(110, 60)),
		Markers: []web.MarkerState{{ID: 1, Position: geom.Pt(60, 35)}},
	}}
	img := RenderOverlay(geom.Pt(200, 100), zones)
	require.Equal(t, 200, img.Bounds().Dx())
	require.Equal(t, 100, img.Bounds().Dy())

	rgb := func(x, y int) [3]uint8 {
		c := img.NRGBAAt(x, y)
		return [3]uint8{c.R, c.G, c.B}
	}
	assert.Equal(t, [3]uint8{0, 0, 0}, rgb(150, 80), "outside zones")
	assert.Equal(t, [3]uint8{255, 255, 255}, rgb(10, 30), "zone border")
	assert.Equal(t, [3]uint8{markerColor.R, markerColor.G, markerColor.B}, rgb(60, 35), "marker")

	inside := rgb(30, 50)
	assert.NotEqual(t, [3]uint8{0, 0, 0}, inside, "zone fill")
	assert.Greater(t, inside[2], inside[0], "zone fill is blue")
}

func TestRenderOverlay_ClipsZones(t *testing.T) {
	zones := []web.ZoneState{{Area: geom.R(geom.Pt(-50, -50), geom.Pt(-10, -10))}}
	img := RenderOverlay(geom.Pt(20, 20), zones)
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).R)
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.FrameInterval = 0
	var cerr *ConfigError
	require.ErrorAs(t, cfg.Validate(), &cerr)
	assert.Equal(t, "FrameInterval", cerr.Field)

	cfg = DefaultConfig()
	cfg.ZonesPath = ""
	assert.Error(t, cfg.Validate())
}

func TestLoadEnvConfig(t *testing.T) {
	t.Setenv("ARTABLE_CONFIG", "/etc/artable/table.json")
	t.Setenv("ARTABLE_ZONES", "/etc/artable/zones.json")
	t.Setenv("ARTABLE_NOTIFY", "ws://localhost:5500")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.LoadEnvConfig()
	assert.Equal(t, "/etc/artable/table.json", cfg.TablePath)
	assert.Equal(t, "/etc/artable/zones.json", cfg.ZonesPath)
	assert.Equal(t, "ws://localhost:5500", cfg.NotifyURL)
	assert.Equal(t, "debug", cfg.LogLevel)

	explicit := DefaultConfig()
	explicit.TablePath = "mine.json"
	explicit.LogLevel = "warn"
	explicit.LoadEnvConfig()
	assert.Equal(t, "mine.json", explicit.TablePath)
	assert.Equal(t, "warn", explicit.LogLevel)
}

func TestNew_LoadsTableConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "camera": {"index": 0},
  "table": {"width": 800, "height": 400,
    "marker": {"marker": [0, 1, 2, 3], "position": [[10, 10], [10, 10], [10, 10], [10, 10]], "size": 40}}
}`), 0o644))

	cfg := DefaultConfig()
	cfg.TablePath = path
	app, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, app.table.HasProjector())
	assert.Equal(t, config.DefaultDictionary, app.table.Dictionary)

	cfg.TablePath = filepath.Join(dir, "missing.json")
	_, err = New(cfg)
	assert.Error(t, err)
}

type doubleMapper struct{ err error }

func (m doubleMapper) TableToImage(p geom.Point) (geom.Point, error) {
	if m.err != nil {
		return geom.Point{}, m.err
	}
	return geom.Pt(p.X*2, p.Y*2), nil
}

func TestState_EventsCarryImagePosition(t *testing.T) {
	s := &sink{}
	state := NewState(s, refresh.New())
	h := newHost()
	state.Apply(testZones(), h)

	h.update(obs(2, 10, 20))
	require.Len(t, s.events, 1)
	assert.Nil(t, s.events[0].Image, "no mapper")

	state.SetMapper(doubleMapper{})
	h.update(obs(2, 100, 20))
	require.Len(t, s.events, 2)
	require.NotNil(t, s.events[1].Image)
	assert.Equal(t, geom.Pt(200, 40), *s.events[1].Image)

	state.SetMapper(doubleMapper{err: transform.ErrEmptyPlacement})
	h.update(obs(2, 200, 20))
	require.Len(t, s.events, 3)
	assert.Nil(t, s.events[2].Image, "nothing displayed yet")
}

func TestApp_ReloadReportsOutcome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"zones": [{"name": "map", "area": [[0, 0], [100, 100]], "ids": [1]}]}`), 0o644))

	srv := web.NewServer("0", nil)
	a := &App{
		config:    Config{ZonesPath: path},
		log:       log.Component("app"),
		markers:   tracking.NewMarkerPlugin(nil),
		state:     NewState(events.SinkFunc(func(events.Event) {}), refresh.New()),
		webServer: srv,
	}

	require.NoError(t, a.reload("signal"))

	require.NoError(t, os.WriteFile(path, []byte(`{"zones": [`), 0o644))
	require.Error(t, a.reload("signal"))

	logs := srv.Logs()
	require.Len(t, logs, 2)
	assert.Equal(t, "info", logs[0].Type)
	assert.Equal(t, "error", logs[1].Type)
	assert.Contains(t, logs[1].Message, "zone reload (signal) failed")
	assert.Len(t, a.state.Zones(), 1, "previous zones stay active")
}
