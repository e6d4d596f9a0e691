package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-artable/pkg/camera"
	"github.com/teslashibe/go-artable/pkg/hub"
)

// handleStatus returns the current table state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.State())
}

// handleGetLogs returns recent log entries
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	return c.JSON(s.Logs())
}

// handleGetEvents returns recent marker events
func (s *Server) handleGetEvents(c *fiber.Ctx) error {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	return c.JSON(s.events)
}

// handleReload reloads the zone file
func (s *Server) handleReload(c *fiber.Ctx) error {
	if s.OnReload == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
			"error": "reload not configured",
		})
	}
	if err := s.OnReload(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	s.AddLog("info", "zones reloaded")
	return c.JSON(fiber.Map{"reloaded": true})
}

// handleGetCamera returns the capture settings
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return fiber.ErrNotFound
	}
	return c.JSON(s.camera.GetConfigJSON())
}

// handleSetCamera applies a partial settings update or a preset
func (s *Server) handleSetCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return fiber.ErrNotFound
	}
	var params map[string]any
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err := s.camera.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.camera.GetConfigJSON())
}

// handleCameraPresets lists the preset names
func (s *Server) handleCameraPresets(c *fiber.Ctx) error {
	return c.JSON(camera.PresetNames())
}

// handleStatusWS sends the current state, then every update
func (s *Server) handleStatusWS(c *websocket.Conn) {
	initial, err := hub.JSON(s.State())
	if err != nil {
		return
	}
	hub.NewClient(s.statusHub, c, initial).Run()
}

// handleLogsWS sends recent logs, then live entries
func (s *Server) handleLogsWS(c *websocket.Conn) {
	s.logsMu.RLock()
	initial := make([]hub.Message, 0, len(s.logs))
	for _, entry := range s.logs {
		if msg, err := hub.JSON(entry); err == nil {
			initial = append(initial, msg)
		}
	}
	s.logsMu.RUnlock()

	hub.NewClient(s.logHub, c, initial...).Run()
}

// handleEventsWS streams live marker events
func (s *Server) handleEventsWS(c *websocket.Conn) {
	hub.NewClient(s.eventHub, c).Run()
}

// handleCameraWS streams JPEG camera frames
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}
