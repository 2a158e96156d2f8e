package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soocke/cverlay-go/app"
	"github.com/soocke/cverlay-go/app/desktop"
	"github.com/soocke/cverlay-go/cli"
	_ "github.com/soocke/cverlay-go/domain/detect/cv"
	_ "github.com/soocke/cverlay-go/domain/detect/ocr"
	"github.com/soocke/cverlay-go/ui/hotkey"
	"github.com/soocke/cverlay-go/ui/hotkey/hook"
	"github.com/soocke/cverlay-go/ui/tray"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cli.Execute(ctx, os.Args[1:], launch); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// launch picks the frontend: Tk overlay windows by default, the tray
// (with the web dashboard as renderer) when headless.
func launch(ctx context.Context, c *app.Container, opts cli.Options) error {
	if c.Config.Hotkeys {
		c.Hotkeys = hook.NewListener(hotkey.DefaultBindings(), c.Commands.Handle, c.Logger)
	}
	var front app.Frontend
	if opts.Headless {
		if c.Web == nil {
			c.Logger.Warn("headless without --dashboard: nothing renders the overlay")
		}
		front = tray.New(c.State, c.Session, c.Commands.Handle, c.Logger)
	} else {
		front = desktop.New(c)
	}
	return app.Run(ctx, c, front)
}
