package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
	"github.com/zerkman/zest"
	"github.com/zerkman/zest/floppy"
	"github.com/zerkman/zest/logger"
	"github.com/zerkman/zest/uio"
)

func runFlags() []cli.Flag {
	return []cli.Flag{
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:  "floppy.a",
			Usage: "Image inserted in drive A",
		}),
		altsrc.NewBoolFlag(&cli.BoolFlag{
			Name:  "floppy.a-write-protect",
			Usage: "Write-protect drive A",
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:  "floppy.b",
			Usage: "Image inserted in drive B",
		}),
		altsrc.NewBoolFlag(&cli.BoolFlag{
			Name:  "floppy.b-write-protect",
			Usage: "Write-protect drive B",
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:  "floppy.jukebox-dir",
			Usage: "Cycle the images of `DIR` through the jukebox drive",
		}),
		altsrc.NewDurationFlag(&cli.DurationFlag{
			Name:  "floppy.jukebox-interval",
			Usage: "Time each jukebox image stays inserted",
			Value: 30 * time.Second,
		}),
		altsrc.NewIntFlag(&cli.IntFlag{
			Name:  "floppy.jukebox-drive",
			Usage: "Drive used by the jukebox, 0 (A) or 1 (B)",
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:  "uio.device",
			Usage: "UIO device of the register window",
			Value: uio.DefaultPath,
		}),
		altsrc.NewDurationFlag(&cli.DurationFlag{
			Name:  "uio.poll-interval",
			Usage: "Interrupt wait timeout",
			Value: floppy.DefaultPollInterval,
		}),
	}
}

type driveConfig struct {
	path    string
	protect bool
}

// insertDisks loads the configured images into drives A and B. An image that
// fails to open leaves its drive empty and is reported on `warnings`; the
// controller still runs.
func insertDisks(controller *floppy.Controller, warnings io.Writer, drives []driveConfig) {
	for i, d := range drives {
		if err := controller.SetWriteProtect(i, d.protect); err != nil {
			fmt.Fprintf(warnings, "warning: %v\n", err)
			continue
		}
		if d.path == "" {
			continue
		}
		if err := controller.ChangeFloppy(d.path, i); err != nil {
			fmt.Fprintf(warnings, "warning: drive %c left empty: %v\n", 'A'+i, err)
		}
	}
}

func runController(c *cli.Context) error {
	logger.SetEcho(os.Stderr)

	options, err := imageOptions(c)
	if err != nil {
		return err
	}

	device, err := uio.Open(c.String("uio.device"))
	if err != nil {
		return err
	}
	controller := floppy.New(device, options)
	controller.SetPollInterval(c.Duration("uio.poll-interval"))

	insertDisks(controller, c.App.ErrWriter, []driveConfig{
		{c.String("floppy.a"), c.Bool("floppy.a-write-protect")},
		{c.String("floppy.b"), c.Bool("floppy.b-write-protect")},
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if dir := c.String("floppy.jukebox-dir"); dir != "" {
		jukebox := &floppy.Jukebox{
			Dir:      dir,
			Interval: c.Duration("floppy.jukebox-interval"),
			Drive:    c.Int("floppy.jukebox-drive"),
			Changer:  controller,
		}
		go runJukebox(ctx, jukebox)
	}

	var result *multierror.Error
	if err := controller.Run(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := device.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func runJukebox(ctx context.Context, jukebox *floppy.Jukebox) {
	if err := jukebox.Run(ctx); err != nil {
		logger.Logf("jukebox", "stopped: %v", err)
	}
}

// Ensure the controller can be driven by the jukebox and queried for status.
var (
	_ zest.FloppyChanger  = (*floppy.Controller)(nil)
	_ zest.StatusReporter = (*floppy.Controller)(nil)
)
