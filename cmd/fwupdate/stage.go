package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/moffa90/go-fwupdate/bundle"
)

// StageCommand creates the stage command
func StageCommand() *cli.Command {
	return &cli.Command{
		Name:  "stage",
		Usage: "Write a firmware image into the DFU partition",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "image",
				Usage: "Path to a raw firmware image",
			},
			&cli.StringFlag{
				Name:  "bundle",
				Usage: "Path to a signed bundle created by 'fwupdate sign'",
			},
			&cli.BoolFlag{
				Name:  "bulk",
				Usage: "Erase the whole DFU partition first, then write without per-block erases",
			},
		},
		Action: runStageCommand,
	}
}

// readImage returns the raw image named by --image or --bundle.
func readImage(cmd *cli.Command) ([]byte, *bundle.Bundle, error) {
	imagePath := cmd.String("image")
	bundlePath := cmd.String("bundle")

	if imagePath == "" && bundlePath == "" {
		return nil, nil, fmt.Errorf("either --image or --bundle must be provided")
	}
	if imagePath != "" && bundlePath != "" {
		return nil, nil, fmt.Errorf("only one of --image or --bundle should be provided")
	}

	if imagePath != "" {
		image, err := os.ReadFile(imagePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read image: %w", err)
		}
		return image, nil, nil
	}

	b, err := bundle.Load(bundlePath)
	if err != nil {
		return nil, nil, err
	}
	image, err := b.Image()
	if err != nil {
		return nil, nil, err
	}
	return image, b, nil
}

func runStageCommand(ctx context.Context, cmd *cli.Command) error {
	image, _, err := readImage(cmd)
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	dfu := s.updater.DFUPartition()
	if uint64(len(image)) > uint64(dfu.Size()) {
		return fmt.Errorf("image is %d bytes, dfu partition holds %d", len(image), dfu.Size())
	}
	if len(image) == 0 {
		return fmt.Errorf("image is empty")
	}

	eraseSize := s.dev.EraseSize()
	bar := newProgressBar(cmd)

	if cmd.Bool("bulk") {
		p, err := s.updater.PrepareUpdateBlocking(s.dev)
		if err != nil {
			return fmt.Errorf("failed to erase dfu partition: %w", err)
		}

		data := padTo(image, s.dev.WriteSize())
		bar.start("writing", len(data))
		for off := 0; off < len(data); off += eraseSize {
			end := off + eraseSize
			if end > len(data) {
				end = len(data)
			}
			if err := p.WriteBlocking(s.dev, uint32(off), data[off:end]); err != nil {
				bar.finish()
				return fmt.Errorf("failed to write dfu at 0x%X: %w", off, err)
			}
			bar.set(end)
		}
		bar.finish()
	} else {
		data := padTo(image, eraseSize)
		bar.start("staging", len(data))
		for off := 0; off < len(data); off += eraseSize {
			if err := s.updater.WriteFirmwareBlocking(s.dev, uint32(off), data[off:off+eraseSize]); err != nil {
				bar.finish()
				return fmt.Errorf("failed to write dfu at 0x%X: %w", off, err)
			}
			bar.set(off + eraseSize)
		}
		bar.finish()
	}

	fmt.Fprintf(cmd.Root().Writer, "Staged %d bytes into dfu %s\n", len(image), dfu)
	return nil
}
