package updater

import "github.com/moffa90/go-fwupdate/signature"

// Config holds the updater configuration.
type Config struct {
	// Backend verifies staged images. Defaults to signature.None, which
	// refuses every image.
	Backend signature.Backend

	// ProgressCallback is called while hashing and staging (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Backend: signature.None{},
	}
}

// Option is a functional option for configuring the FirmwareUpdater.
type Option func(*Config)

// WithBackend selects the signature backend used by VerifyAndMarkUpdated.
// A nil backend keeps the fail-closed default.
//
// Example:
//
//	u := updater.New(dfu, state, updater.WithBackend(signature.Ed25519{}))
func WithBackend(backend signature.Backend) Option {
	return func(c *Config) {
		if backend != nil {
			c.Backend = backend
		}
	}
}

// WithProgressCallback sets a callback function to track hashing and
// staging progress.
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the updater operations.
//
// Example:
//
//	u := updater.New(dfu, state, updater.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
