package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/moffa90/go-fwupdate/config"
	"github.com/moffa90/go-fwupdate/flash"
	"github.com/moffa90/go-fwupdate/updater"
)

// loadConfig reads, validates and normalizes the --config file. Relative
// paths inside it are resolved against the file's directory.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	dir := filepath.Dir(path)
	cfg.Flash.Image = resolvePath(dir, cfg.Flash.Image)
	cfg.Signature.PublicKey = resolvePath(dir, cfg.Signature.PublicKey)
	return cfg, nil
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// session is an opened flash image plus an updater for its layout.
type session struct {
	cfg     *config.Config
	dev     *flash.FileFlash
	updater *updater.FirmwareUpdater
}

func openSession(cmd *cli.Command, opts ...updater.Option) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	u, err := updater.NewFromConfig(cfg, append([]updater.Option{updater.WithLogger(glogLogger{})}, opts...)...)
	if err != nil {
		return nil, err
	}

	dev, err := flash.OpenFileFlash(cfg.Flash.Image, int(cfg.Flash.Size), cfg.Flash.EraseSize, cfg.Flash.WriteSize)
	if err != nil {
		return nil, fmt.Errorf("open flash image (run 'fwupdate init' first?): %w", err)
	}

	return &session{cfg: cfg, dev: dev, updater: u}, nil
}

// aligned returns a fresh scratch buffer of one write unit.
func (s *session) aligned() []byte {
	return make([]byte, s.dev.WriteSize())
}

// Close flushes and closes the flash image.
func (s *session) Close() error {
	if err := s.dev.Sync(); err != nil {
		_ = s.dev.Close()
		return err
	}
	return s.dev.Close()
}

// parseUint32 accepts decimal, 0x hex and 0o/0b prefixed values.
func parseUint32(name, s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s %q: %w", name, s, err)
	}
	return uint32(v), nil
}

// padTo extends data with the erase value up to a multiple of n.
func padTo(data []byte, n int) []byte {
	if rem := len(data) % n; rem != 0 {
		pad := make([]byte, n-rem)
		for i := range pad {
			pad[i] = flash.EraseValue
		}
		data = append(append([]byte(nil), data...), pad...)
	}
	return data
}
