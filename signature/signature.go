// Package signature provides the pluggable signature backends used to
// authenticate a staged firmware image.
//
// # Backends
//
// Exactly one Backend is active for an updater. A backend knows which
// digest the signer used and how to parse its key and signature formats:
//
//   - Ed25519: 32-byte keys, 64-byte signatures over the SHA-512 digest
//   - ECDSAP256: 65-byte uncompressed or 33-byte compressed keys, 64-byte
//     r||s or DER signatures over the SHA-256 digest
//   - None: the fail-closed default; every parse fails with ErrNoBackend
//
// # Verification
//
// The message handed to PublicKey.Verify is the image digest, not the
// image itself:
//
//	backend := signature.Ed25519{}
//	key, err := backend.ParsePublicKey(pub)
//	sig, err := backend.ParseSignature(raw)
//	err = key.Verify(digest, sig)
//
// Every failure wraps one of ErrMalformedKey, ErrMalformedSignature,
// ErrVerification or ErrNoBackend. Callers that decide whether to arm an
// update must treat all four the same way.
package signature

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/moffa90/go-fwupdate/digest"
)

var (
	// ErrMalformedKey means the public key bytes could not be parsed.
	ErrMalformedKey = errors.New("malformed public key")

	// ErrMalformedSignature means the signature bytes could not be parsed.
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrVerification means the signature does not match the message.
	ErrVerification = errors.New("signature verification failed")

	// ErrNoBackend means no signature backend is configured.
	ErrNoBackend = errors.New("no signature backend configured")
)

// Backend parses keys and signatures of one signature scheme.
type Backend interface {
	// Name is the configuration name of the backend
	Name() string

	// Digest is the hash the signer applied to the image
	Digest() digest.Factory

	// ParsePublicKey parses raw public key bytes
	ParsePublicKey(b []byte) (PublicKey, error)

	// ParseSignature parses raw signature bytes
	ParseSignature(b []byte) (Signature, error)
}

// PublicKey verifies signatures of its backend.
type PublicKey interface {
	// Verify returns nil iff sig is a valid signature of message.
	Verify(message []byte, sig Signature) error
}

// Signature is a parsed signature.
type Signature interface {
	Bytes() []byte
}

// Backend names understood by Lookup.
const (
	NameEd25519   = "ed25519"
	NameECDSAP256 = "ecdsa-p256"
	NameNone      = "none"
)

var backends = map[string]Backend{
	NameEd25519:   Ed25519{},
	NameECDSAP256: ECDSAP256{},
	NameNone:      None{},
}

// Lookup returns the backend registered under name (case-insensitive).
func Lookup(name string) (Backend, error) {
	b, ok := backends[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(backends))
		for n := range backends {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown signature backend %q (known: %s)", name, strings.Join(names, ", "))
	}
	return b, nil
}

// rawSignature is a Signature holding its encoded bytes.
type rawSignature []byte

func (s rawSignature) Bytes() []byte { return []byte(s) }
