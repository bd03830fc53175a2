// Package bundle implements the signed update container produced by
// "fwupdate sign" and consumed by "fwupdate stage" and "fwupdate verify".
//
// A bundle is the borsh encoding of Bundle. The payload is either the raw
// image or its LZSS compression; the signature always covers the digest
// of the raw image, computed with the digest of the named backend.
package bundle

import (
	"fmt"
	"os"

	"github.com/blacktop/lzss"
	"github.com/near/borsh-go"

	"github.com/moffa90/go-fwupdate/digest"
	"github.com/moffa90/go-fwupdate/signature"
)

// FormatVersion is the only bundle layout this package understands.
const FormatVersion uint8 = 1

// Payload compression schemes.
const (
	CompressionNone uint8 = 0
	CompressionLZSS uint8 = 1
)

// Bundle is a signed firmware image.
type Bundle struct {
	Version     uint8  `borsh:"version"`
	Backend     string `borsh:"backend"`
	Compression uint8  `borsh:"compression"`
	ImageSize   uint32 `borsh:"image_size"`
	Signature   []byte `borsh:"signature"`
	Payload     []byte `borsh:"payload"`
}

// Sign digests image with the digest of the signer's backend and wraps
// the result in an uncompressed bundle.
func Sign(s signature.Signer, image []byte) (*Bundle, error) {
	backend, err := signature.Lookup(s.Backend())
	if err != nil {
		return nil, err
	}

	sig, err := s.Sign(digest.Sum(backend.Digest(), image))
	if err != nil {
		return nil, fmt.Errorf("sign image: %w", err)
	}

	return &Bundle{
		Version:     FormatVersion,
		Backend:     backend.Name(),
		Compression: CompressionNone,
		ImageSize:   uint32(len(image)),
		Signature:   sig,
		Payload:     append([]byte(nil), image...),
	}, nil
}

// Encode serializes b.
func Encode(b *Bundle) ([]byte, error) {
	raw, err := borsh.Serialize(*b)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize bundle: %w", err)
	}
	return raw, nil
}

// Decode parses and checks a serialized bundle.
func Decode(raw []byte) (*Bundle, error) {
	var b Bundle
	if err := borsh.Deserialize(&b, raw); err != nil {
		return nil, fmt.Errorf("failed to deserialize bundle: %w", err)
	}

	if b.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported bundle version %d", b.Version)
	}
	if _, err := signature.Lookup(b.Backend); err != nil {
		return nil, err
	}
	switch b.Compression {
	case CompressionNone:
		if uint32(len(b.Payload)) != b.ImageSize {
			return nil, fmt.Errorf("payload is %d bytes, header says %d", len(b.Payload), b.ImageSize)
		}
	case CompressionLZSS:
	default:
		return nil, fmt.Errorf("unsupported compression %d", b.Compression)
	}
	return &b, nil
}

// Image returns the raw firmware image.
func (b *Bundle) Image() ([]byte, error) {
	if b.Compression != CompressionLZSS {
		return b.Payload, nil
	}

	data := lzss.Decompress(b.Payload)
	if uint32(len(data)) != b.ImageSize {
		return nil, fmt.Errorf("payload inflated %d to %d bytes, but image has %d bytes", len(b.Payload), len(data), b.ImageSize)
	}
	return data, nil
}

// Load reads and decodes a bundle file.
func Load(path string) (*Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}
	return Decode(raw)
}

// Save encodes b into path.
func Save(path string, b *Bundle) error {
	raw, err := Encode(b)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	return nil
}
