// Package crypto provides the hashing and signing primitives used by scavctl.
package crypto

import (
	"golang.org/x/crypto/blake2b"

	"github.com/scavmine/scavctl/pkg/types"
)

// Blake2b224 computes a BLAKE2b-224 hash of the input data.
// This is the digest used for payment and stake key hashes.
func Blake2b224(data []byte) []byte {
	h, _ := blake2b.New(types.KeyHashSize, nil)
	h.Write(data)
	return h.Sum(nil)
}

// Blake2b256 computes a BLAKE2b-256 hash of the input data.
func Blake2b256(data []byte) [32]byte {
	return blake2b.Sum256(data)
}

// KeyHash derives the 28-byte key hash of a 32-byte public key.
func KeyHash(pubKey []byte) []byte {
	return Blake2b224(pubKey)
}
