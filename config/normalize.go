package config

import "strings"

const (
	DefaultBackend   = "none"
	DefaultAlgorithm = "sha256"
	DefaultChunkSize = 1024
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Signature.Backend = strings.ToLower(cfg.Signature.Backend)
	if cfg.Signature.Backend == "" {
		cfg.Signature.Backend = DefaultBackend
	}

	cfg.Hash.Algorithm = strings.ToLower(cfg.Hash.Algorithm)
	if cfg.Hash.Algorithm == "" {
		cfg.Hash.Algorithm = DefaultAlgorithm
	}
	if cfg.Hash.ChunkSize == 0 {
		cfg.Hash.ChunkSize = DefaultChunkSize
	}
}
