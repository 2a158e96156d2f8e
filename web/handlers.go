package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/soocke/cverlay-go/assets"
	"github.com/soocke/cverlay-go/config"
	"github.com/soocke/cverlay-go/domain/capture"
	"github.com/soocke/cverlay-go/domain/detect"
	"github.com/soocke/cverlay-go/domain/overlay"
	"github.com/soocke/cverlay-go/domain/scan"
)

// Stats is the body of GET /api/stats.
type Stats struct {
	Scheduler *scan.SchedulerStats         `json:"scheduler,omitempty"`
	Capture   *capture.CaptureStats        `json:"capture,omitempty"`
	Failures  uint64                       `json:"failures"`
	Clients   int                          `json:"clients"`
	Scanners  map[string]scan.ScannerStats `json:"scanners"`
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(assets.DashboardHTML)
}

func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	return c.JSON(s.cmds.Snapshot())
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	out := Stats{Clients: s.hub.ClientCount(), Scanners: make(map[string]scan.ScannerStats)}
	if s.opts.Scheduler != nil {
		st := s.opts.Scheduler.Stats()
		out.Scheduler = &st
	}
	if s.opts.Capture != nil {
		st := s.opts.Capture.Stats()
		out.Capture = &st
	}
	if s.opts.Failures != nil {
		out.Failures = s.opts.Failures()
	}
	for _, sv := range s.cmds.Snapshot().Scanners {
		out.Scanners[sv.ID] = sv.Stats
	}
	return c.JSON(out)
}

func (s *Server) handleOverlayPNG(c *fiber.Ctx) error {
	data := s.paint(c.QueryInt("w", 0), c.QueryInt("h", 0))
	if data == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "encode overlay"})
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(data)
}

func (s *Server) handleListCommands(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"commands": overlay.CommandNames()})
}

func (s *Server) handleCommand(c *fiber.Ctx) error {
	name := c.Params("name")
	mode, err := overlay.Run(s.cmds, name)
	if err != nil {
		return s.fail(c, err)
	}
	s.logger.Debug("web command", "command", name, "mode", mode.String())
	return c.JSON(mode)
}

func (s *Server) handleListDetectors(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"detectors": detect.Kinds()})
}

func (s *Server) handleAddScanner(c *fiber.Ctx) error {
	var sc config.ScannerConfig
	if err := c.BodyParser(&sc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	sc.EnsureID()
	scanner, err := config.BuildScanner(sc)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.cmds.AddScanner(scanner); err != nil {
		return s.fail(c, err)
	}
	if s.opts.OnScannerAdded != nil {
		if err := s.opts.OnScannerAdded(sc); err != nil {
			s.logger.Warn("persist scanner", "scanner", sc.ID, "error", err)
		}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": sc.ID})
}

func (s *Server) handleRemoveScanner(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.cmds.RemoveScanner(id); err != nil {
		return s.fail(c, err)
	}
	if s.opts.OnScannerRemoved != nil {
		if err := s.opts.OnScannerRemoved(id); err != nil {
			s.logger.Warn("persist scanner removal", "scanner", id, "error", err)
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleScannerState(c *fiber.Ctx) error {
	var state scan.State
	switch c.Params("action") {
	case "pause":
		state = scan.StatePaused
	case "resume":
		state = scan.StateRunning
	default:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown action " + c.Params("action")})
	}
	if err := s.cmds.SetScannerState(c.Params("id"), state); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"id": c.Params("id"), "state": state.String()})
}

// fail maps domain errors onto HTTP statuses.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, scan.ErrUnknownScanner), errors.Is(err, overlay.ErrUnknownCommand):
		status = fiber.StatusNotFound
	case errors.Is(err, scan.ErrDuplicateScanner):
		status = fiber.StatusConflict
	case errors.Is(err, scan.ErrConfig):
		status = fiber.StatusBadRequest
	}
	if status == fiber.StatusInternalServerError {
		s.logger.Error("web request", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
