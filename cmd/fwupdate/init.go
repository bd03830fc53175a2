package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/moffa90/go-fwupdate/flash"
)

// InitCommand creates the init command
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create an erased flash image for the configured layout",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing image",
			},
		},
		Action: runInitCommand,
	}
}

func runInitCommand(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	image := cfg.Flash.Image
	if image == "" {
		return fmt.Errorf("flash.image is not set in the config")
	}
	if _, err := os.Stat(image); err == nil && !cmd.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", image)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	dev, err := flash.CreateFileFlash(image, int(cfg.Flash.Size), cfg.Flash.EraseSize, cfg.Flash.WriteSize)
	if err != nil {
		return err
	}
	if err := dev.Sync(); err != nil {
		_ = dev.Close()
		return err
	}
	if err := dev.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "Created %s (%d bytes, write %d, erase %d)\n",
		image, cfg.Flash.Size, cfg.Flash.WriteSize, cfg.Flash.EraseSize)
	return nil
}
