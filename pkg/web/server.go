// Package web provides the real-time table dashboard
package web

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-artable/internal/log"
	"github.com/teslashibe/go-artable/pkg/camera"
	"github.com/teslashibe/go-artable/pkg/events"
	"github.com/teslashibe/go-artable/pkg/geom"
	"github.com/teslashibe/go-artable/pkg/hub"
)

const (
	maxLogs   = 500
	maxEvents = 200
)

// State is the table state shown on the dashboard
type State struct {
	Calibrated bool        `json:"calibrated"`
	Projector  bool        `json:"projector"`
	Frames     uint64      `json:"frames"`
	Zones      []ZoneState `json:"zones"`
}

// ZoneState is one watched area and the markers currently inside it
type ZoneState struct {
	Name    string        `json:"name"`
	Area    geom.Rect     `json:"area"`
	IDs     []int         `json:"ids"`
	Markers []MarkerState `json:"markers"`
}

// MarkerState is a tracked marker
type MarkerState struct {
	ID       int        `json:"id"`
	Label    string     `json:"label"`
	Position geom.Point `json:"position"`
}

// LogEntry represents a log line for the dashboard
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, event, calibration, error
	Message string `json:"message"`
}

// Server is the web dashboard server
type Server struct {
	app  *fiber.App
	port string
	log  *slog.Logger

	state   State
	stateMu sync.RWMutex

	// Log buffer (last maxLogs entries)
	logs   []LogEntry
	logsMu sync.RWMutex

	// Event buffer (last maxEvents entries)
	events   []events.Event
	eventsMu sync.RWMutex

	statusHub *hub.Hub
	logHub    *hub.Hub
	eventHub  *hub.Hub
	cameraHub *hub.Hub

	camera *camera.Manager

	// OnReload reloads the zone file
	OnReload func() error
}

// NewServer creates a dashboard on port. cam may be nil when camera
// settings are not adjustable.
func NewServer(port string, cam *camera.Manager) *Server {
	s := &Server{
		port:      port,
		log:       log.Component("web"),
		logs:      make([]LogEntry, 0, maxLogs),
		events:    make([]events.Event, 0, maxEvents),
		statusHub: hub.New("status"),
		logHub:    hub.New("logs"),
		eventHub:  hub.New("events"),
		cameraHub: hub.New("camera"),
		camera:    cam,
	}

	app := fiber.New(fiber.Config{
		AppName:               "ARTable Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// Static files
	app.Static("/", "./web")

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/logs", s.handleGetLogs)
	api.Get("/events", s.handleGetEvents)
	api.Post("/reload", s.handleReload)
	api.Get("/camera", s.handleGetCamera)
	api.Put("/camera", s.handleSetCamera)
	api.Get("/camera/presets", s.handleCameraPresets)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/events", websocket.New(s.handleEventsWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// Start starts the hubs and serves until Shutdown
func (s *Server) Start() error {
	s.log.Info("dashboard listening", "url", "http://localhost:"+s.port)

	go s.statusHub.Run()
	go s.logHub.Run()
	go s.eventHub.Run()
	go s.cameraHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.log.Error("web server stopped", "error", err)
		}
	}()
}

// Shutdown gracefully stops the web server and its hubs
func (s *Server) Shutdown() error {
	for _, h := range []*hub.Hub{s.statusHub, s.logHub, s.eventHub, s.cameraHub} {
		h.Stop()
	}
	return s.app.Shutdown()
}

// UpdateState updates the table state and broadcasts it to clients
func (s *Server) UpdateState(update func(*State)) {
	s.stateMu.Lock()
	update(&s.state)
	state := s.snapshot()
	s.stateMu.Unlock()

	s.statusHub.BroadcastJSON(state)
}

// State returns a copy of the current state
func (s *Server) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.snapshot()
}

// snapshot deep-copies the state. Callers hold stateMu.
func (s *Server) snapshot() State {
	out := s.state
	out.Zones = make([]ZoneState, len(s.state.Zones))
	for i, z := range s.state.Zones {
		z.IDs = append([]int(nil), z.IDs...)
		z.Markers = append([]MarkerState(nil), z.Markers...)
		out.Zones[i] = z
	}
	return out
}

// AddLog adds a log entry and broadcasts to clients
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON(entry)
}

// Logs returns a copy of the recent log entries, oldest first
func (s *Server) Logs() []LogEntry {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return append([]LogEntry(nil), s.logs...)
}

// Publish records an event and broadcasts it to clients
func (s *Server) Publish(e events.Event) {
	s.eventsMu.Lock()
	s.events = append(s.events, e)
	if len(s.events) > maxEvents {
		s.events = s.events[1:]
	}
	s.eventsMu.Unlock()

	s.eventHub.BroadcastJSON(e)
}

// SendCameraFrame sends a JPEG camera frame to all connected clients
func (s *Server) SendCameraFrame(jpegData []byte) {
	s.cameraHub.BroadcastBinary(jpegData)
}

// CameraClients returns the number of clients watching the camera feed
func (s *Server) CameraClients() int {
	return s.cameraHub.ClientCount()
}
