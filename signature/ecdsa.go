package signature

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/moffa90/go-fwupdate/digest"
)

// p256ScalarSize is the byte length of a P-256 scalar.
const p256ScalarSize = 32

// ECDSAP256 verifies ECDSA P-256 signatures over the SHA-256 digest of the image.
type ECDSAP256 struct{}

// ecdsaSignature is the ASN.1 form of an ECDSA signature.
type ecdsaSignature struct {
	R, S *big.Int
}

func (ECDSAP256) Name() string { return NameECDSAP256 }

func (ECDSAP256) Digest() digest.Factory { return sha256.New }

// ParsePublicKey accepts the uncompressed (0x04 || X || Y) and the
// compressed (0x02/0x03 || X) SEC 1 encodings.
func (ECDSAP256) ParsePublicKey(b []byte) (PublicKey, error) {
	curve := elliptic.P256()

	var x, y *big.Int
	switch len(b) {
	case 1 + 2*p256ScalarSize:
		x, y = elliptic.Unmarshal(curve, b)
	case 1 + p256ScalarSize:
		x, y = elliptic.UnmarshalCompressed(curve, b)
	default:
		return nil, fmt.Errorf("%w: p256 key must be 33 or 65 bytes, got %d", ErrMalformedKey, len(b))
	}
	if x == nil {
		return nil, fmt.Errorf("%w: point is not on P-256", ErrMalformedKey)
	}

	return &p256PublicKey{key: &ecdsa.PublicKey{Curve: curve, X: x, Y: y}}, nil
}

// ParseSignature accepts the fixed 64-byte r||s form and ASN.1 DER.
func (ECDSAP256) ParseSignature(b []byte) (Signature, error) {
	var sig p256Signature

	if len(b) == 2*p256ScalarSize {
		sig.r = new(big.Int).SetBytes(b[:p256ScalarSize])
		sig.s = new(big.Int).SetBytes(b[p256ScalarSize:])
	} else {
		var der ecdsaSignature
		rest, err := asn1.Unmarshal(b, &der)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
		}
		if len(rest) != 0 || der.R == nil || der.S == nil {
			return nil, fmt.Errorf("%w: trailing or missing DER data", ErrMalformedSignature)
		}
		sig.r, sig.s = der.R, der.S
	}

	if sig.r.Sign() <= 0 || sig.s.Sign() <= 0 {
		return nil, fmt.Errorf("%w: r and s must be positive", ErrMalformedSignature)
	}
	return &sig, nil
}

type p256PublicKey struct {
	key *ecdsa.PublicKey
}

func (k *p256PublicKey) Verify(message []byte, sig Signature) error {
	s, ok := sig.(*p256Signature)
	if !ok {
		return fmt.Errorf("%w: not a p256 signature", ErrMalformedSignature)
	}
	if !ecdsa.Verify(k.key, message, s.r, s.s) {
		return ErrVerification
	}
	return nil
}

type p256Signature struct {
	r, s *big.Int
}

// Bytes returns the fixed-width r||s encoding.
func (s *p256Signature) Bytes() []byte {
	out := make([]byte, 2*p256ScalarSize)
	s.r.FillBytes(out[:p256ScalarSize])
	s.s.FillBytes(out[p256ScalarSize:])
	return out
}
