// Package config loads the flash layout and backend selection used by the
// fwupdate tool from a YAML file.
//
// The expected sequence is Load, Validate, Normalize:
//
//	cfg, err := config.Load("fwupdate.yaml")
//	if err != nil { ... }
//	if err := config.Validate(cfg); err != nil { ... }
//	config.Normalize(cfg)
package config

import "github.com/moffa90/go-fwupdate/partition"

type Config struct {
	Flash      FlashConfig     `yaml:"flash"`
	Partitions Layout          `yaml:"partitions"`
	Signature  SignatureConfig `yaml:"signature"`
	Hash       HashConfig      `yaml:"hash"`
}

// ---- FLASH ----

// FlashConfig describes the file-backed flash image.
type FlashConfig struct {
	Image     string `yaml:"image"`
	Size      uint32 `yaml:"size"`
	WriteSize int    `yaml:"write_size"`
	EraseSize int    `yaml:"erase_size"`
}

// ---- PARTITIONS ----

// Layout holds the partition bounds a bootloader build would get from its
// linker script.
type Layout struct {
	State Range `yaml:"state"`
	DFU   Range `yaml:"dfu"`
}

// Range is an absolute [from, to) byte range of the flash image.
type Range struct {
	From uint32 `yaml:"from"`
	To   uint32 `yaml:"to"`
}

// Partition converts the range. Panics if From > To; run Validate first.
func (r Range) Partition() partition.Partition {
	return partition.New(r.From, r.To)
}

// ---- SIGNATURE ----

type SignatureConfig struct {
	Backend   string `yaml:"backend"`    // ed25519 | ecdsa-p256 | none
	PublicKey string `yaml:"public_key"` // hex key file, optional
}

// ---- HASH ----

type HashConfig struct {
	Algorithm string `yaml:"algorithm"`  // used by "fwupdate hash" when --algo is not given
	ChunkSize int    `yaml:"chunk_size"` // bytes per flash read while hashing
}
