package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-artable/pkg/camera"
	"github.com/teslashibe/go-artable/pkg/events"
	"github.com/teslashibe/go-artable/pkg/geom"
)

func get(t *testing.T, s *Server, path string, out any) int {
	t.Helper()
	resp, err := s.app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, out))
	}
	return resp.StatusCode
}

func TestStatus(t *testing.T) {
	s := NewServer("0", nil)
	s.UpdateState(func(st *State) {
		st.Calibrated = true
		st.Zones = []ZoneState{{
			Name:    "map",
			Area:    geom.R(geom.Pt(0, 0), geom.Pt(10, 10)),
			IDs:     []int{1, 2},
			Markers: []MarkerState{{ID: 1, Label: "wind", Position: geom.Pt(3, 4)}},
		}}
	})

	var st State
	assert.Equal(t, 200, get(t, s, "/api/status", &st))
	assert.True(t, st.Calibrated)
	require.Len(t, st.Zones, 1)
	assert.Equal(t, "wind", st.Zones[0].Markers[0].Label)
}

func TestState_IsACopy(t *testing.T) {
	s := NewServer("0", nil)
	s.UpdateState(func(st *State) {
		st.Zones = []ZoneState{{Name: "a", IDs: []int{1}}}
	})

	st := s.State()
	st.Zones[0].IDs[0] = 99
	assert.Equal(t, 1, s.State().Zones[0].IDs[0])
}

func TestEventsAndLogs(t *testing.T) {
	s := NewServer("0", nil)
	s.Publish(events.New(events.Enter, "map", 3, "solar", geom.Pt(1, 2)))
	s.AddLog("event", "solar entered map")

	var evs []events.Event
	assert.Equal(t, 200, get(t, s, "/api/events", &evs))
	require.Len(t, evs, 1)
	assert.Equal(t, "solar", evs[0].Label)

	var logs []LogEntry
	assert.Equal(t, 200, get(t, s, "/api/logs", &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "event", logs[0].Type)

	copied := s.Logs()
	require.Len(t, copied, 1)
	copied[0].Message = "changed"
	assert.Equal(t, "solar entered map", s.Logs()[0].Message)
}

func TestEvents_Bounded(t *testing.T) {
	s := NewServer("0", nil)
	for i := 0; i < maxEvents+10; i++ {
		s.Publish(events.Event{Marker: i})
	}
	var evs []events.Event
	get(t, s, "/api/events", &evs)
	require.Len(t, evs, maxEvents)
	assert.Equal(t, 10, evs[0].Marker)
}

func TestReload(t *testing.T) {
	s := NewServer("0", nil)

	resp, err := s.app.Test(httptest.NewRequest("POST", "/api/reload", nil))
	require.NoError(t, err)
	assert.Equal(t, 501, resp.StatusCode)

	calls := 0
	s.OnReload = func() error { calls++; return nil }
	resp, err = s.app.Test(httptest.NewRequest("POST", "/api/reload", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 1, calls)

	s.OnReload = func() error { return errors.New("bad zones") }
	resp, err = s.app.Test(httptest.NewRequest("POST", "/api/reload", nil))
	require.NoError(t, err)
	assert.Equal(t, 422, resp.StatusCode)
}

func TestCameraSettings(t *testing.T) {
	mgr := camera.NewManager(camera.DefaultConfig())
	s := NewServer("0", mgr)

	var cfg map[string]any
	assert.Equal(t, 200, get(t, s, "/api/camera", &cfg))
	assert.Equal(t, float64(1280), cfg["width"])

	req := httptest.NewRequest("PUT", "/api/camera", strings.NewReader(`{"preset":"1080p","framerate":25}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 1920, mgr.GetConfig().Width)
	assert.Equal(t, 25, mgr.GetConfig().Framerate)

	req = httptest.NewRequest("PUT", "/api/camera", strings.NewReader(`{"width":10}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var presets []string
	get(t, s, "/api/camera/presets", &presets)
	assert.Contains(t, presets, camera.PresetLowLight)

	noCam := NewServer("0", nil)
	assert.Equal(t, 404, get(t, noCam, "/api/camera", nil))
}

func TestEventsWebSocket(t *testing.T) {
	s := NewServer("18091", nil)
	go s.Start()
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18091/ws/events", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return s.eventHub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	s.Publish(events.New(events.Move, "map", 7, "wind", geom.Pt(5, 6)))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Event
	require.NoError(t, ws.ReadJSON(&got))
	assert.Equal(t, events.Move, got.Kind)
	assert.Equal(t, 7, got.Marker)
	assert.Equal(t, geom.Pt(5, 6), got.Position)
}

func TestStatusWebSocketSendsSnapshot(t *testing.T) {
	s := NewServer("18092", nil)
	s.UpdateState(func(st *State) { st.Frames = 42 })
	go s.Start()
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18092/ws/status", nil)
	require.NoError(t, err)
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var st State
	require.NoError(t, ws.ReadJSON(&st))
	assert.Equal(t, uint64(42), st.Frames)
}
