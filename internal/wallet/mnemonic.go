// Package wallet implements hierarchical deterministic key derivation.
package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// ErrInvalidMnemonic is returned when a mnemonic fails the BIP-39
// word-count or checksum rules.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// mnemonicWordCounts are the accepted BIP-39 phrase lengths.
var mnemonicWordCounts = map[int]bool{12: true, 15: true, 18: true, 21: true, 24: true}

// ValidateMnemonic checks if a mnemonic is valid per BIP-39
// (correct word count, valid words, valid checksum).
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(normalizeMnemonic(mnemonic))
}

// EntropyFromMnemonic recovers the raw entropy bytes from a mnemonic phrase.
// The entropy is the seed material for master key generation; callers must
// zero it when done.
func EntropyFromMnemonic(mnemonic string) ([]byte, error) {
	m := normalizeMnemonic(mnemonic)
	words := len(strings.Fields(m))
	if !mnemonicWordCounts[words] {
		return nil, fmt.Errorf("%w: %d words (must be 12, 15, 18, 21, or 24)", ErrInvalidMnemonic, words)
	}
	entropy, err := bip39.EntropyFromMnemonic(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return entropy, nil
}

// normalizeMnemonic lowercases the phrase and collapses whitespace.
func normalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
}
