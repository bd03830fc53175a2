package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/moffa90/go-fwupdate/signature"
)

// KeygenCommand creates the keygen command
func KeygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate a signing key pair",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "backend",
				Value: signature.NameEd25519,
				Usage: "Signature scheme (ed25519 or ecdsa-p256)",
			},
			&cli.StringFlag{
				Name:  "out",
				Value: ".",
				Usage: "Directory for the key files",
			},
			&cli.StringFlag{
				Name:  "name",
				Value: "release",
				Usage: "Base name of the key files",
			},
		},
		Action: runKeygenCommand,
	}
}

func runKeygenCommand(ctx context.Context, cmd *cli.Command) error {
	signer, err := signature.GenerateKey(cmd.String("backend"))
	if err != nil {
		return err
	}

	dir, name := cmd.String("out"), cmd.String("name")
	if err := signature.SaveKeyPair(dir, name, signer); err != nil {
		return err
	}

	out := cmd.Root().Writer
	fmt.Fprintf(out, "Backend:     %s\n", signer.Backend())
	fmt.Fprintf(out, "Public key:  %s\n", filepath.Join(dir, name+".public"))
	fmt.Fprintf(out, "Private key: %s\n", filepath.Join(dir, name+".private"))
	return nil
}
