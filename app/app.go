package app

import (
	"context"
	"errors"

	"github.com/soocke/cverlay-go/domain/scan"
	"github.com/soocke/cverlay-go/ui/model"
)

// Frontend is the blocking UI main loop. Run must return once the overlay
// state is quit.
type Frontend interface {
	Run()
}

// Start brings up the detection side and the optional command surfaces.
// Detection follows the play flag from here on.
func (c *Container) Start() {
	c.Failures.Start()
	c.Scheduler.Start()
	c.State.AttachPlayback(c.Scheduler)
	if c.Hotkeys != nil {
		c.Hotkeys.Start()
	}
	if c.Web != nil {
		c.Web.StartAsync()
	}
	c.Logger.Info("cverlay started",
		"scanners", len(c.State.Scanners()),
		"mode", c.State.Mode().String(),
		"screen", c.Screen.String(),
	)
}

// Shutdown stops everything Start started, bounded by the configured
// shutdown timeout.
func (c *Container) Shutdown() error {
	timeout := c.Config.ShutdownTimeout()
	if timeout <= 0 {
		timeout = scan.DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if c.Hotkeys != nil {
		c.Hotkeys.Stop()
	}
	if c.Web != nil {
		if err := c.Web.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.Scheduler.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	c.Failures.Stop()

	session, total := c.Session.Values()
	c.Logger.Info("cverlay stopped",
		"session", model.SessionSummary(session, total, c.Session.Sessions(), c.State.Mode().String()),
		"failures", c.Failures.Count(),
	)
	return errors.Join(errs...)
}

// Run starts c, blocks in front (or until quit when front is nil) and
// shuts down. Cancelling ctx quits the overlay.
func Run(ctx context.Context, c *Container, front Frontend) error {
	c.Start()
	stop := context.AfterFunc(ctx, c.State.Quit)
	defer stop()
	if front != nil {
		front.Run()
	} else {
		<-c.State.Done()
	}
	return c.Shutdown()
}
