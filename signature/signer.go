package signature

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
)

// Signer produces signatures a Backend of the same name can verify. It is
// host-side tooling for building signed update bundles.
type Signer interface {
	// Backend is the name of the verifying backend
	Backend() string

	// PublicKey is the raw public key in the backend's parse format
	PublicKey() []byte

	// Sign signs an image digest
	Sign(digest []byte) ([]byte, error)
}

// GenerateKey creates a new signing key for the named backend.
func GenerateKey(backend string) (Signer, error) {
	switch strings.ToLower(backend) {
	case NameEd25519:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate ed25519 key: %w", err)
		}
		return &ed25519Signer{key: priv}, nil
	case NameECDSAP256:
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate p256 key: %w", err)
		}
		return &p256Signer{key: priv}, nil
	default:
		return nil, fmt.Errorf("backend %q cannot sign", backend)
	}
}

// NewEd25519Signer wraps an existing Ed25519 private key.
func NewEd25519Signer(key ed25519.PrivateKey) Signer {
	return &ed25519Signer{key: key}
}

// NewP256Signer wraps an existing P-256 private key.
func NewP256Signer(key *ecdsa.PrivateKey) Signer {
	return &p256Signer{key: key}
}

type ed25519Signer struct {
	key ed25519.PrivateKey
}

func (s *ed25519Signer) Backend() string { return NameEd25519 }

func (s *ed25519Signer) PublicKey() []byte {
	return append([]byte(nil), s.key.Public().(ed25519.PublicKey)...)
}

func (s *ed25519Signer) Sign(digest []byte) ([]byte, error) {
	return ed25519.Sign(s.key, digest), nil
}

type p256Signer struct {
	key *ecdsa.PrivateKey
}

func (s *p256Signer) Backend() string { return NameECDSAP256 }

func (s *p256Signer) PublicKey() []byte {
	return elliptic.Marshal(elliptic.P256(), s.key.X, s.key.Y)
}

// Sign returns the fixed 64-byte r||s form.
func (s *p256Signer) Sign(digest []byte) ([]byte, error) {
	r, ss, err := ecdsa.Sign(rand.Reader, s.key, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to sign with ECDSA: %w", err)
	}

	out := make([]byte, 2*p256ScalarSize)
	r.FillBytes(out[:p256ScalarSize])
	ss.FillBytes(out[p256ScalarSize:])
	return out, nil
}

// Key files
//
// A key pair named <name> is stored as two files:
//
//	<name>.public  - hex-encoded raw public key
//	<name>.private - "hexkey:scheme", scheme is "ed25519" or "p256"
//
// For ed25519 hexkey is the 32-byte seed, for p256 the private scalar.

const (
	publicKeySuffix  = ".public"
	privateKeySuffix = ".private"
)

// SaveKeyPair writes the key pair of s into dir under name.
func SaveKeyPair(dir, name string, s Signer) error {
	var privateHex, scheme string
	switch k := s.(type) {
	case *ed25519Signer:
		privateHex, scheme = hex.EncodeToString(k.key.Seed()), "ed25519"
	case *p256Signer:
		d := make([]byte, p256ScalarSize)
		k.key.D.FillBytes(d)
		privateHex, scheme = hex.EncodeToString(d), "p256"
	default:
		return fmt.Errorf("unsupported signer %T", s)
	}

	publicPath := filepath.Join(dir, name+publicKeySuffix)
	if err := os.WriteFile(publicPath, []byte(hex.EncodeToString(s.PublicKey())+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write public key file: %w", err)
	}

	privatePath := filepath.Join(dir, name+privateKeySuffix)
	if err := os.WriteFile(privatePath, []byte(privateHex+":"+scheme+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write private key file: %w", err)
	}
	return nil
}

// LoadSigner reads a "<hexkey>:<scheme>" private key file.
func LoadSigner(path string) (Signer, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	parts := strings.Split(strings.TrimSpace(string(content)), ":")
	if len(parts) != 2 {
		return nil, errors.New("invalid private key format, expected 'hexkey:scheme'")
	}

	raw, err := hex.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key hex: %w", err)
	}

	switch parts[1] {
	case "ed25519":
		if len(raw) != ed25519.SeedSize {
			return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(raw))
		}
		return &ed25519Signer{key: ed25519.NewKeyFromSeed(raw)}, nil
	case "p256":
		if len(raw) != p256ScalarSize {
			return nil, fmt.Errorf("p256 scalar must be %d bytes, got %d", p256ScalarSize, len(raw))
		}
		curve := elliptic.P256()
		priv := &ecdsa.PrivateKey{
			PublicKey: ecdsa.PublicKey{Curve: curve},
			D:         new(big.Int).SetBytes(raw),
		}
		priv.X, priv.Y = curve.ScalarBaseMult(raw)
		return &p256Signer{key: priv}, nil
	default:
		return nil, fmt.Errorf("unsupported scheme: %s", parts[1])
	}
}

// LoadPublicKey reads a hex-encoded public key file.
func LoadPublicKey(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}

	key, err := hex.DecodeString(strings.TrimSpace(string(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key hex: %w", err)
	}
	return key, nil
}
