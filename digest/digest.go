// Package digest provides the pluggable streaming hashes used to measure a
// staged firmware image.
//
// A digest adapter is a Factory returning a fresh hash.Hash; the updater
// calls it once per measurement, feeds the image with Write and reads the
// result with Sum. Adapters are looked up by name from configuration.
package digest

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"sort"
	"strings"
)

// Factory creates a fresh streaming hash.
type Factory func() hash.Hash

// Algorithm names understood by Lookup.
const (
	SHA1   = "sha1"
	SHA256 = "sha256"
	SHA512 = "sha512"
	CRC16  = "crc16"
)

var registry = map[string]Factory{
	SHA1:   sha1.New,
	SHA256: sha256.New,
	SHA512: sha512.New,
	CRC16:  func() hash.Hash { return NewCRC16() },
}

// Lookup returns the factory registered under name (case-insensitive).
func Lookup(name string) (Factory, error) {
	f, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown digest %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return f, nil
}

// Names returns the registered algorithm names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sum computes the digest of data in one shot.
func Sum(newDigest Factory, data []byte) []byte {
	h := newDigest()
	h.Write(data)
	return h.Sum(nil)
}
