// Command fwupdate drives the firmware updater against a file-backed flash
// image described by a YAML layout file.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/golang/glog"
	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "fwupdate",
		Usage: "Stage, verify and arm firmware images in a flash image",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "fwupdate.yaml",
				Usage:   "Path to the flash layout file",
			},
			&cli.IntFlag{
				Name:  "verbosity",
				Usage: "Log verbosity (1: state changes, 2: every flash step)",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Do not draw progress bars",
			},
		},
		Before: setupLogging,
		After: func(ctx context.Context, cmd *cli.Command) error {
			glog.Flush()
			return nil
		},
		Commands: []*cli.Command{
			InitCommand(),
			StateCommand(),
			StageCommand(),
			HashCommand(),
			KeygenCommand(),
			SignCommand(),
			VerifyCommand(),
			MarkUpdatedCommand(),
			MarkBootedCommand(),
			MarkDFUCommand(),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		glog.Exitf("fwupdate: %v", err)
	}
}
