package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// AddressSize is the length of a base address in bytes:
// 1 header byte + 28-byte payment key hash + 28-byte stake key hash.
const AddressSize = 57

// KeyHashSize is the length of a payment/stake key hash in bytes (BLAKE2b-224).
const KeyHashSize = 28

// Address HRP (human-readable part) constants for bech32 encoding.
const (
	MainnetHRP = "addr"
	TestnetHRP = "addr_test"
)

// Network identifiers carried in the low nibble of the address header.
const (
	MainnetID byte = 1
	TestnetID byte = 0
)

// activeHRP is the address HRP used by String() and MarshalJSON().
// Set once at startup via SetAddressHRP(). Default is mainnet.
var activeHRP = MainnetHRP

// SetAddressHRP sets the active address HRP (call once at startup).
func SetAddressHRP(hrp string) {
	activeHRP = hrp
}

// GetAddressHRP returns the currently active address HRP.
func GetAddressHRP() string {
	return activeHRP
}

// NetworkID returns the network identifier matching the active HRP.
func NetworkID() byte {
	if activeHRP == TestnetHRP {
		return TestnetID
	}
	return MainnetID
}

// Address represents a base address: a header byte binding the address type
// and network, followed by the payment and stake key hashes.
type Address [AddressSize]byte

// NewBaseAddress builds a base address (type 0: payment key hash + stake key
// hash) from two 28-byte key hashes, bound to the active network.
func NewBaseAddress(paymentHash, stakeHash []byte) (Address, error) {
	if len(paymentHash) != KeyHashSize {
		return Address{}, fmt.Errorf("payment key hash must be %d bytes, got %d", KeyHashSize, len(paymentHash))
	}
	if len(stakeHash) != KeyHashSize {
		return Address{}, fmt.Errorf("stake key hash must be %d bytes, got %d", KeyHashSize, len(stakeHash))
	}
	var a Address
	// Header: high nibble = address type (0b0000 for key/key base address),
	// low nibble = network id.
	a[0] = NetworkID()
	copy(a[1:1+KeyHashSize], paymentHash)
	copy(a[1+KeyHashSize:], stakeHash)
	return a, nil
}

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the bech32-encoded address (e.g. "addr1...").
func (a Address) String() string {
	s, err := Bech32Encode(activeHRP, a[:])
	if err != nil {
		// Fallback to hex if encoding fails (should never happen).
		return activeHRP + ":" + hex.EncodeToString(a[:])
	}
	return s
}

// Hex returns the raw hex-encoded address bytes.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// Bytes returns a copy of the address as a byte slice.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// PaymentKeyHash returns the 28-byte payment key hash part.
func (a Address) PaymentKeyHash() []byte {
	b := make([]byte, KeyHashSize)
	copy(b, a[1:1+KeyHashSize])
	return b
}

// StakeKeyHash returns the 28-byte stake key hash part.
func (a Address) StakeKeyHash() []byte {
	b := make([]byte, KeyHashSize)
	copy(b, a[1+KeyHashSize:])
	return b
}

// MarshalJSON encodes the address as a bech32 string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a bech32 string into an address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses a bech32-encoded base address string.
// The HRP must be a known address HRP ("addr" or "addr_test").
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}
	hrp, data, err := Bech32Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 address: %w", err)
	}
	if hrp != MainnetHRP && hrp != TestnetHRP {
		return Address{}, fmt.Errorf("unknown address HRP %q", hrp)
	}
	if len(data) != AddressSize {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(data))
	}
	var a Address
	copy(a[:], data)
	return a, nil
}

// HasNetworkPrefix reports whether s looks like an address on the active
// network (e.g. "addr1..." on mainnet). Used to validate user-supplied
// destination addresses before any signing happens.
func HasNetworkPrefix(s string) bool {
	return strings.HasPrefix(s, activeHRP+"1")
}
