package config

import (
	"fmt"

	"github.com/moffa90/go-fwupdate/digest"
	"github.com/moffa90/go-fwupdate/protocol"
	"github.com/moffa90/go-fwupdate/signature"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// ------------------------------------------------------------
	// FLASH GEOMETRY
	// ------------------------------------------------------------

	f := cfg.Flash
	if f.Size == 0 || f.WriteSize <= 0 || f.EraseSize <= 0 {
		return fmt.Errorf("flash: size, write_size and erase_size must be positive")
	}
	if f.EraseSize%f.WriteSize != 0 {
		return fmt.Errorf("flash: erase_size %d is not a multiple of write_size %d", f.EraseSize, f.WriteSize)
	}
	if f.Size%uint32(f.EraseSize) != 0 {
		return fmt.Errorf("flash: size %d is not a multiple of erase_size %d", f.Size, f.EraseSize)
	}

	// ------------------------------------------------------------
	// PARTITIONS
	// ------------------------------------------------------------

	for _, p := range []struct {
		name string
		r    Range
	}{
		{"state", cfg.Partitions.State},
		{"dfu", cfg.Partitions.DFU},
	} {
		if p.r.From >= p.r.To {
			return fmt.Errorf("partition %s: from 0x%X must be below to 0x%X", p.name, p.r.From, p.r.To)
		}
		if p.r.To > f.Size {
			return fmt.Errorf("partition %s: ends at 0x%X past flash size 0x%X", p.name, p.r.To, f.Size)
		}
		if p.r.From%uint32(f.EraseSize) != 0 || p.r.To%uint32(f.EraseSize) != 0 {
			return fmt.Errorf("partition %s: bounds must be aligned to erase_size %d", p.name, f.EraseSize)
		}
	}

	state, dfu := cfg.Partitions.State, cfg.Partitions.DFU
	if state.From < dfu.To && dfu.From < state.To {
		return fmt.Errorf("partitions state and dfu overlap")
	}
	if need := protocol.MinStateSize(f.WriteSize); state.To-state.From < need {
		return fmt.Errorf("partition state: must hold at least %d bytes", need)
	}

	// ------------------------------------------------------------
	// BACKENDS (empty means default)
	// ------------------------------------------------------------

	if cfg.Signature.Backend != "" {
		if _, err := signature.Lookup(cfg.Signature.Backend); err != nil {
			return fmt.Errorf("signature: %w", err)
		}
	}
	if cfg.Hash.Algorithm != "" {
		if _, err := digest.Lookup(cfg.Hash.Algorithm); err != nil {
			return fmt.Errorf("hash: %w", err)
		}
	}
	if cfg.Hash.ChunkSize < 0 {
		return fmt.Errorf("hash: chunk_size cannot be negative")
	}

	return nil
}
