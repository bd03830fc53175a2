package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/moffa90/go-fwupdate/flash"
	"github.com/moffa90/go-fwupdate/updater"
)

// markFunc is one of the updater's async Mark methods.
type markFunc func(u *updater.FirmwareUpdater, ctx context.Context, f flash.AsyncNorFlash, aligned []byte) error

// MarkUpdatedCommand creates the mark-updated command
func MarkUpdatedCommand() *cli.Command {
	return &cli.Command{
		Name:   "mark-updated",
		Usage:  "Request a swap on next boot WITHOUT verifying the staged image",
		Action: markAction((*updater.FirmwareUpdater).MarkUpdated, "swap requested on next boot"),
	}
}

// MarkBootedCommand creates the mark-booted command
func MarkBootedCommand() *cli.Command {
	return &cli.Command{
		Name:   "mark-booted",
		Usage:  "Confirm the running image so the bootloader keeps it",
		Action: markAction((*updater.FirmwareUpdater).MarkBooted, "running image confirmed"),
	}
}

// MarkDFUCommand creates the mark-dfu command
func MarkDFUCommand() *cli.Command {
	return &cli.Command{
		Name:   "mark-dfu",
		Usage:  "Ask the bootloader to enter DFU mode on next boot",
		Action: markAction((*updater.FirmwareUpdater).MarkDFU, "DFU mode requested on next boot"),
	}
}

func markAction(mark markFunc, done string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := mark(s.updater, ctx, flash.NewAsync(s.dev), s.aligned()); err != nil {
			return fmt.Errorf("%s failed: %w", cmd.Name, err)
		}

		fmt.Fprintf(cmd.Root().Writer, "State updated: %s\n", done)
		return nil
	}
}
