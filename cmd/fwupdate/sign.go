package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/moffa90/go-fwupdate/bundle"
	"github.com/moffa90/go-fwupdate/signature"
)

// SignCommand creates the sign command
func SignCommand() *cli.Command {
	return &cli.Command{
		Name:  "sign",
		Usage: "Sign a raw firmware image into an update bundle",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "key",
				Usage:    "Path to a private key file from 'fwupdate keygen'",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "image",
				Usage:    "Path to the raw firmware image",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "out",
				Usage:    "Path of the bundle to write",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "signature-out",
				Usage: "Also write the hex signature to this file",
			},
		},
		Action: runSignCommand,
	}
}

func runSignCommand(ctx context.Context, cmd *cli.Command) error {
	signer, err := signature.LoadSigner(cmd.String("key"))
	if err != nil {
		return err
	}

	image, err := os.ReadFile(cmd.String("image"))
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	b, err := bundle.Sign(signer, image)
	if err != nil {
		return err
	}
	if err := bundle.Save(cmd.String("out"), b); err != nil {
		return err
	}

	if path := cmd.String("signature-out"); path != "" {
		if err := os.WriteFile(path, []byte(hex.EncodeToString(b.Signature)+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write signature: %w", err)
		}
	}

	fmt.Fprintf(cmd.Root().Writer, "Signed %d bytes with %s into %s\n", len(image), b.Backend, cmd.String("out"))
	return nil
}
