package crypto

import (
	"crypto/ed25519"
	"fmt"
)

// Signer signs messages with an Ed25519 private key.
type Signer interface {
	// Sign produces a 64-byte Ed25519 signature over the message bytes.
	Sign(message []byte) []byte
	// PublicKey returns the 32-byte public key.
	PublicKey() []byte
}

// Verifier verifies Ed25519 signatures.
type Verifier interface {
	// Verify checks a signature against a message and 32-byte public key.
	Verify(message, signature, publicKey []byte) bool
}

// PrivateKey wraps an Ed25519 private key for signing.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// PrivateKeyFromSeed creates a PrivateKey from a 32-byte seed.
// Key hashes and addresses are computed over the public key this expands to.
func PrivateKeyFromSeed(seed []byte) (*PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &PrivateKey{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// Sign produces a 64-byte Ed25519 signature over the message bytes.
func (pk *PrivateKey) Sign(message []byte) []byte {
	return ed25519.Sign(pk.key, message)
}

// PublicKey returns the 32-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	pub := make([]byte, ed25519.PublicKeySize)
	copy(pub, pk.key[ed25519.SeedSize:])
	return pub
}

// Zero overwrites the private key material in memory.
func (pk *PrivateKey) Zero() {
	for i := range pk.key {
		pk.key[i] = 0
	}
}

// VerifySignature checks an Ed25519 signature against a message and a
// 32-byte public key. Returns false on any error.
func VerifySignature(message, signature, publicKey []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature)
}

// Ed25519Verifier implements the Verifier interface.
type Ed25519Verifier struct{}

// Verify checks a signature against a message and 32-byte public key.
func (v Ed25519Verifier) Verify(message, signature, publicKey []byte) bool {
	return VerifySignature(message, signature, publicKey)
}

// Zero overwrites a byte slice with zeros. Used to discard seed and key
// material on every exit path.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
