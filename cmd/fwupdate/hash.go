package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/moffa90/go-fwupdate/digest"
	"github.com/moffa90/go-fwupdate/flash"
	"github.com/moffa90/go-fwupdate/updater"
)

// HashCommand creates the hash command
func HashCommand() *cli.Command {
	return &cli.Command{
		Name:  "hash",
		Usage: "Digest the first --len bytes of the DFU partition",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "len",
				Usage:    "Number of bytes to hash (decimal or 0x hex)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "algo",
				Usage: "Digest algorithm (defaults to hash.algorithm from the config)",
			},
		},
		Action: runHashCommand,
	}
}

func runHashCommand(ctx context.Context, cmd *cli.Command) error {
	updateLen, err := parseUint32("len", cmd.String("len"))
	if err != nil {
		return err
	}

	bar := newProgressBar(cmd)
	s, err := openSession(cmd, updater.WithProgressCallback(bar.update))
	if err != nil {
		return err
	}
	defer s.Close()

	if dfu := s.updater.DFUPartition(); updateLen > dfu.Size() {
		return fmt.Errorf("--len %d exceeds dfu partition size %d", updateLen, dfu.Size())
	}

	algo := cmd.String("algo")
	if algo == "" {
		algo = s.cfg.Hash.Algorithm
	}
	newDigest, err := digest.Lookup(algo)
	if err != nil {
		return err
	}

	output := make([]byte, newDigest().Size())
	chunk := make([]byte, s.cfg.Hash.ChunkSize)
	if err := s.updater.Hash(ctx, flash.NewAsync(s.dev), updateLen, chunk, newDigest, output); err != nil {
		return fmt.Errorf("failed to hash dfu: %w", err)
	}

	fmt.Fprintf(cmd.Root().Writer, "%s  %s[0:%d]\n", hex.EncodeToString(output), algo, updateLen)
	return nil
}
