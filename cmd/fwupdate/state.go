package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/moffa90/go-fwupdate/flash"
)

// StateCommand creates the state command
func StateCommand() *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Show the state partition as the bootloader will see it",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output in JSON format",
			},
		},
		Action: runStateCommand,
	}
}

func runStateCommand(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := s.updater.Inspect(ctx, flash.NewAsync(s.dev), s.aligned())
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}

	out := cmd.Root().Writer
	if cmd.Bool("json") {
		jsonBytes, err := json.MarshalIndent(map[string]interface{}{
			"state": snap.State.String(),
			"magic": snap.Magic.String(),
			"dirty": snap.Dirty,
			"dfu":   s.updater.DFUPartition().String(),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		fmt.Fprintln(out, string(jsonBytes))
		return nil
	}

	fmt.Fprintf(out, "State:    %s\n", snap.State)
	fmt.Fprintf(out, "Magic:    %s\n", snap.Magic)
	progress := "clean"
	if snap.Dirty {
		progress = "dirty (transition interrupted)"
	}
	fmt.Fprintf(out, "Progress: %s\n", progress)
	fmt.Fprintf(out, "DFU:      %s\n", s.updater.DFUPartition())
	fmt.Fprintf(out, "Backend:  %s\n", s.updater.Backend().Name())
	return nil
}
