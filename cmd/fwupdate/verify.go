package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/moffa90/go-fwupdate/bundle"
	"github.com/moffa90/go-fwupdate/flash"
	"github.com/moffa90/go-fwupdate/signature"
	"github.com/moffa90/go-fwupdate/updater"
)

// VerifyCommand creates the verify command
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify the staged image and arm it for the bootloader",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "bundle",
				Usage: "Take signature and length from this bundle",
			},
			&cli.StringFlag{
				Name:  "signature",
				Usage: "Path to a hex signature file (requires --len)",
			},
			&cli.StringFlag{
				Name:  "len",
				Usage: "Length of the staged image (decimal or 0x hex)",
			},
			&cli.StringFlag{
				Name:  "public-key",
				Usage: "Path to a hex public key file (defaults to signature.public_key from the config)",
			},
		},
		Action: runVerifyCommand,
	}
}

func runVerifyCommand(ctx context.Context, cmd *cli.Command) error {
	bundlePath := cmd.String("bundle")
	sigPath := cmd.String("signature")

	if bundlePath == "" && sigPath == "" {
		return fmt.Errorf("either --bundle or --signature must be provided")
	}
	if bundlePath != "" && sigPath != "" {
		return fmt.Errorf("only one of --bundle or --signature should be provided")
	}

	bar := newProgressBar(cmd)
	s, err := openSession(cmd, updater.WithProgressCallback(bar.update))
	if err != nil {
		return err
	}
	defer s.Close()

	var sig []byte
	var updateLen uint32
	if bundlePath != "" {
		b, err := bundle.Load(bundlePath)
		if err != nil {
			return err
		}
		if b.Backend != s.updater.Backend().Name() {
			return fmt.Errorf("bundle is signed with %s, but the config selects %s", b.Backend, s.updater.Backend().Name())
		}
		sig, updateLen = b.Signature, b.ImageSize
	} else {
		if updateLen, err = parseUint32("len", cmd.String("len")); err != nil {
			return err
		}
		if sig, err = readHexFile(sigPath); err != nil {
			return fmt.Errorf("failed to read signature: %w", err)
		}
	}

	keyPath := cmd.String("public-key")
	if keyPath == "" {
		keyPath = s.cfg.Signature.PublicKey
	}
	if keyPath == "" {
		return fmt.Errorf("no public key: pass --public-key or set signature.public_key")
	}
	publicKey, err := signature.LoadPublicKey(keyPath)
	if err != nil {
		return err
	}

	if dfu := s.updater.DFUPartition(); updateLen > dfu.Size() {
		return fmt.Errorf("image length %d exceeds dfu partition size %d", updateLen, dfu.Size())
	}

	err = s.updater.VerifyAndMarkUpdated(ctx, flash.NewAsync(s.dev), publicKey, sig, updateLen, s.aligned())
	bar.finish()
	if updater.IsSignatureError(err) {
		return fmt.Errorf("image NOT armed: %w", err)
	}
	if err != nil {
		return fmt.Errorf("failed to verify: %w", err)
	}

	fmt.Fprintf(cmd.Root().Writer, "Verified %d bytes with %s, swap requested on next boot\n", updateLen, s.updater.Backend().Name())
	return nil
}

func readHexFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(strings.TrimSpace(string(content)))
}
