package signature

import (
	"crypto/ed25519"
	"crypto/sha512"
	"fmt"

	"github.com/moffa90/go-fwupdate/digest"
)

// Ed25519 verifies Ed25519 signatures over the SHA-512 digest of the image.
type Ed25519 struct{}

func (Ed25519) Name() string { return NameEd25519 }

func (Ed25519) Digest() digest.Factory { return sha512.New }

func (Ed25519) ParsePublicKey(b []byte) (PublicKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: ed25519 key is %d bytes, got %d", ErrMalformedKey, ed25519.PublicKeySize, len(b))
	}
	return ed25519PublicKey(append([]byte(nil), b...)), nil
}

func (Ed25519) ParseSignature(b []byte) (Signature, error) {
	if len(b) != ed25519.SignatureSize {
		return nil, fmt.Errorf("%w: ed25519 signature is %d bytes, got %d", ErrMalformedSignature, ed25519.SignatureSize, len(b))
	}
	return rawSignature(append([]byte(nil), b...)), nil
}

type ed25519PublicKey ed25519.PublicKey

func (k ed25519PublicKey) Verify(message []byte, sig Signature) error {
	if !ed25519.Verify(ed25519.PublicKey(k), message, sig.Bytes()) {
		return ErrVerification
	}
	return nil
}
