package wallet

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/pbkdf2"
)

// Derivation path constants.
// Full path: m/1852'/1815'/account'/role/index
const (
	// FirstHardenedIndex marks the start of the hardened index range.
	FirstHardenedIndex uint32 = 0x80000000

	// PurposeShelley is the CIP-1852 purpose field (hardened).
	PurposeShelley = FirstHardenedIndex + 1852

	// CoinTypeAda is the registered ada coin type (hardened).
	CoinTypeAda = FirstHardenedIndex + 1815

	// RolePayment is the role of per-index payment keys.
	RolePayment = 0

	// RoleStaking is the role of the shared stake key.
	RoleStaking = 2
)

// masterKeyIterations and masterKeyLength are the PBKDF2 parameters for
// master key generation from entropy (Icarus scheme).
const (
	masterKeyIterations = 4096
	masterKeyLength     = 96
)

// XPrv is an extended private key: a 64-byte key (kL || kR) plus a 32-byte
// chain code, derived per BIP32-Ed25519 (V2).
type XPrv struct {
	key       []byte // 64 bytes: kL (scalar part) || kR (nonce part)
	chainCode []byte // 32 bytes
}

// NewMasterKey generates the root extended private key from mnemonic entropy.
// The entropy is stretched with PBKDF2-HMAC-SHA512 and the scalar part is
// clamped so it stays a valid non-clamping Ed25519 scalar.
func NewMasterKey(entropy []byte) (*XPrv, error) {
	if len(entropy) == 0 {
		return nil, fmt.Errorf("empty entropy")
	}
	raw := pbkdf2.Key([]byte(""), entropy, masterKeyIterations, masterKeyLength, sha512.New)
	raw[0] &= 0b11111000
	raw[31] &= 0b00011111
	raw[31] |= 0b01000000
	return &XPrv{key: raw[:64], chainCode: raw[64:]}, nil
}

// Derive derives the child key at the given index. Indices at or above
// FirstHardenedIndex use hardened derivation (over the private key); lower
// indices use soft derivation (over the public key point).
func (x *XPrv) Derive(index uint32) *XPrv {
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], index)

	var z, cc []byte
	if index >= FirstHardenedIndex {
		z = x.mac(0x00, x.key, idx[:])
		cc = x.mac(0x01, x.key, idx[:])[32:]
	} else {
		pub := x.PublicKey()
		z = x.mac(0x02, pub, idx[:])
		cc = x.mac(0x03, pub, idx[:])[32:]
	}

	key := make([]byte, 64)
	// kL' = 8*ZL[:28] + kL, kR' = ZR + kR mod 2^256 (little-endian).
	copy(key[:32], add28Mul8(x.key[:32], z[:28]))
	copy(key[32:], add256(x.key[32:], z[32:]))

	return &XPrv{key: key, chainCode: cc}
}

// DerivePath derives a key along a sequence of indices.
// Intermediate keys are zeroed before returning.
func (x *XPrv) DerivePath(indices ...uint32) *XPrv {
	current := x
	for _, idx := range indices {
		child := current.Derive(idx)
		if current != x {
			current.Zero()
		}
		current = child
	}
	return current
}

// PublicKey returns the 32-byte public key point A = [kL]B,
// computed without Ed25519 clamping.
func (x *XPrv) PublicKey() []byte {
	var wide [64]byte
	copy(wide[:32], x.key[:32])
	s, err := new(edwards25519.Scalar).SetUniformBytes(wide[:])
	if err != nil {
		// Input is always 64 bytes; SetUniformBytes cannot fail here.
		panic(err)
	}
	return new(edwards25519.Point).ScalarBaseMult(s).Bytes()
}

// KeySeed returns the 32-byte scalar part kL, which doubles as the Ed25519
// signing seed for the exported key pair. The returned slice aliases the
// extended key; Zero() invalidates it.
func (x *XPrv) KeySeed() []byte {
	return x.key[:32]
}

// Zero overwrites the extended key material in memory.
func (x *XPrv) Zero() {
	for i := range x.key {
		x.key[i] = 0
	}
	for i := range x.chainCode {
		x.chainCode[i] = 0
	}
}

// mac computes HMAC-SHA512(chainCode, tag || data || index).
func (x *XPrv) mac(tag byte, data, index []byte) []byte {
	h := hmac.New(sha512.New, x.chainCode)
	h.Write([]byte{tag})
	h.Write(data)
	h.Write(index)
	return h.Sum(nil)
}

// add28Mul8 computes k + 8*z over little-endian byte strings, where z is
// truncated to 28 bytes. The result is truncated to 32 bytes.
func add28Mul8(k, z []byte) []byte {
	out := make([]byte, 32)
	var carry uint16
	for i := 0; i < 28; i++ {
		r := uint16(k[i]) + uint16(z[i])<<3 + carry
		out[i] = byte(r)
		carry = r >> 8
	}
	for i := 28; i < 32; i++ {
		r := uint16(k[i]) + carry
		out[i] = byte(r)
		carry = r >> 8
	}
	return out
}

// add256 computes (a + b) mod 2^256 over little-endian byte strings.
func add256(a, b []byte) []byte {
	out := make([]byte, 32)
	var carry uint16
	for i := 0; i < 32; i++ {
		r := uint16(a[i]) + uint16(b[i]) + carry
		out[i] = byte(r)
		carry = r >> 8
	}
	return out
}
