// Package web serves the remote dashboard: a JSON API over the overlay
// command surface, a painted preview of the overlay and a websocket
// stream of snapshots.
package web

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/soocke/cverlay-go/config"
	"github.com/soocke/cverlay-go/domain/capture"
	"github.com/soocke/cverlay-go/domain/overlay"
	"github.com/soocke/cverlay-go/domain/scan"
	"github.com/soocke/cverlay-go/ui/images"
	"github.com/soocke/cverlay-go/ui/model"
)

const defaultStreamFPS = 10

// SchedulerStats and CaptureStats are the instrumentation sources
// reported by GET /api/stats. Either may be nil.
type SchedulerStats interface{ Stats() scan.SchedulerStats }
type CaptureStats interface{ Stats() capture.CaptureStats }

// Options configures a Server.
type Options struct {
	Addr      string
	StreamFPS float64         // snapshot stream cadence; defaults to 10
	Screen    image.Rectangle // area covered by /api/overlay.png
	Logger    *slog.Logger

	Scheduler SchedulerStats
	Capture   CaptureStats
	Failures  func() uint64

	// Called after a scanner was added or removed through the API so
	// the caller can persist it.
	OnScannerAdded   func(config.ScannerConfig) error
	OnScannerRemoved func(id string) error
}

// Server is the dashboard HTTP server.
type Server struct {
	app    *fiber.App
	opts   Options
	cmds   overlay.Commands
	logger *slog.Logger
	hub    *Hub

	paintMu sync.Mutex
	painter *images.Painter

	changes *model.RenderModel // used by stream only

	ctx     context.Context
	cancel  context.CancelFunc
	started sync.Once
	wg      sync.WaitGroup
}

func NewServer(cmds overlay.Commands, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if _, err := scan.FPSInterval(opts.StreamFPS); err != nil {
		opts.StreamFPS = defaultStreamFPS
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:    opts,
		cmds:    cmds,
		logger:  opts.Logger,
		hub:     NewHub("snapshot", opts.Logger),
		painter: images.NewPainter(opts.Screen),
		changes: model.NewRenderModel(),
		ctx:     ctx,
		cancel:  cancel,
	}

	app := fiber.New(fiber.Config{
		AppName:               "cverlay dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	api := app.Group("/api")
	api.Get("/snapshot", s.handleSnapshot)
	api.Get("/stats", s.handleStats)
	api.Get("/overlay.png", s.handleOverlayPNG)
	api.Get("/commands", s.handleListCommands)
	api.Post("/commands/:name", s.handleCommand)
	api.Get("/detectors", s.handleListDetectors)
	api.Post("/scanners", s.handleAddScanner)
	api.Delete("/scanners/:id", s.handleRemoveScanner)
	api.Post("/scanners/:id/:action", s.handleScannerState)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/snapshot", websocket.New(func(conn *websocket.Conn) {
		newClient(s.hub, conn).Serve()
	}))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Hub returns the snapshot hub.
func (s *Server) Hub() *Hub { return s.hub }

// Start runs the hub and snapshot stream, then listens on Addr. It blocks
// until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.startBackground()
	s.logger.Info("web dashboard", "url", "http://"+s.opts.Addr)
	return s.app.Listen(s.opts.Addr)
}

// StartAsync runs Start in a goroutine and logs a listener failure.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server", "error", err)
		}
	}()
}

// Shutdown stops the stream and hub, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	s.wg.Wait()
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) startBackground() {
	s.started.Do(func() {
		s.wg.Add(2)
		go func() {
			defer s.wg.Done()
			s.hub.Run(s.ctx)
		}()
		go func() {
			defer s.wg.Done()
			s.stream(s.ctx)
		}()
	})
}

// stream publishes the snapshot at StreamFPS whenever what it shows
// has changed.
func (s *Server) stream(ctx context.Context) {
	interval, _ := scan.FPSInterval(s.opts.StreamFPS)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.publish()
		}
	}
}

func (s *Server) publish() bool {
	snap := s.cmds.Snapshot()
	if !s.changes.NeedsPaint(snap) {
		return false
	}
	if err := s.hub.BroadcastJSON(snap); err != nil {
		s.logger.Error("encode snapshot", "error", err)
		return false
	}
	return true
}

// paint renders the current snapshot scaled to fit maxW x maxH (0 means
// unbounded) and encodes it as PNG.
func (s *Server) paint(maxW, maxH int) []byte {
	snap := s.cmds.Snapshot()
	s.paintMu.Lock()
	defer s.paintMu.Unlock()
	canvas := s.painter.Paint(snap)
	b := canvas.Bounds()
	if maxW <= 0 {
		maxW = b.Dx()
	}
	if maxH <= 0 {
		maxH = b.Dy()
	}
	return images.EncodePNG(images.ScaleToFit(canvas, maxW, maxH))
}
