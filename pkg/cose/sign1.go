// Package cose builds and verifies single-signer detached signature
// envelopes (COSE_Sign1) in the profile the rewards service verifies:
// EdDSA over a canonical Sig_structure, with the signer's address bound
// into the protected headers.
package cose

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/scavmine/scavctl/pkg/crypto"
	"github.com/scavmine/scavctl/pkg/types"
)

// Protected header labels and values.
const (
	// labelAlgorithm is the COSE algorithm header label.
	labelAlgorithm = 1

	// labelKeyID carries the raw address bytes. The same bytes are
	// duplicated under the "address" text label for consumer compatibility.
	labelKeyID = 4

	// algEdDSA is the COSE EdDSA algorithm identifier.
	algEdDSA = -8

	// sigContext is the fixed context string of the single-signer
	// Sig_structure.
	sigContext = "Signature1"
)

// encMode encodes deterministically so the protected header bytes and the
// Sig_structure are reproducible bit for bit. Any deviation here produces
// signatures the service rejects.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// SignedEnvelope is a serialized COSE_Sign1 structure:
// [protected, unprotected, payload, signature].
type SignedEnvelope struct {
	Protected []byte // canonical encoding of the protected header map
	Payload   []byte // raw UTF-8 message bytes
	Signature []byte // 64-byte EdDSA signature
	raw       []byte // full envelope encoding
}

// Bytes returns the serialized envelope.
func (e *SignedEnvelope) Bytes() []byte {
	b := make([]byte, len(e.raw))
	copy(b, e.raw)
	return b
}

// Hex returns the hex-encoded serialized envelope, the transport form
// expected by the service.
func (e *SignedEnvelope) Hex() string {
	return hex.EncodeToString(e.raw)
}

// Sign builds a signed envelope over message for the given signer and
// address. The signature covers the canonical Sig_structure
// [context, protected, external_aad, payload]; the payload itself is the
// raw message bytes, not re-encoded.
func Sign(message string, signer crypto.Signer, addr types.Address) (*SignedEnvelope, error) {
	addrBytes := addr.Bytes()

	protected, err := encMode.Marshal(map[interface{}]interface{}{
		labelAlgorithm: algEdDSA,
		labelKeyID:     addrBytes,
		"address":      addrBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("encode protected headers: %w", err)
	}

	payload := []byte(message)

	sigStructure, err := encMode.Marshal([]interface{}{
		sigContext,
		protected,
		[]byte{}, // external_aad
		payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode signing structure: %w", err)
	}

	signature := signer.Sign(sigStructure)

	raw, err := encMode.Marshal([]interface{}{
		protected,
		map[string]interface{}{"hashed": false},
		payload,
		signature,
	})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	return &SignedEnvelope{
		Protected: protected,
		Payload:   payload,
		Signature: signature,
		raw:       raw,
	}, nil
}

// Decoded is a parsed envelope, used for verification.
type Decoded struct {
	Protected    []byte
	Payload      []byte
	Signature    []byte
	Algorithm    int64
	AddressBytes []byte
	Hashed       bool
}

// Decode parses a hex-encoded envelope back into its parts.
func Decode(envelopeHex string) (*Decoded, error) {
	raw, err := hex.DecodeString(envelopeHex)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}

	var parts []cbor.RawMessage
	if err := cbor.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if len(parts) != 4 {
		return nil, fmt.Errorf("envelope must have 4 elements, got %d", len(parts))
	}

	d := &Decoded{}
	if err := cbor.Unmarshal(parts[0], &d.Protected); err != nil {
		return nil, fmt.Errorf("decode protected headers: %w", err)
	}
	var unprotected map[string]bool
	if err := cbor.Unmarshal(parts[1], &unprotected); err != nil {
		return nil, fmt.Errorf("decode unprotected headers: %w", err)
	}
	d.Hashed = unprotected["hashed"]
	if err := cbor.Unmarshal(parts[2], &d.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if err := cbor.Unmarshal(parts[3], &d.Signature); err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}

	var headers map[interface{}]interface{}
	if err := cbor.Unmarshal(d.Protected, &headers); err != nil {
		return nil, fmt.Errorf("decode protected header map: %w", err)
	}
	if alg, ok := headers[uint64(labelAlgorithm)].(int64); ok {
		d.Algorithm = alg
	}
	if addr, ok := headers["address"].([]byte); ok {
		d.AddressBytes = addr
	}

	return d, nil
}

// Verify checks the envelope's signature against a 32-byte public key by
// rebuilding the Sig_structure the signature must cover.
func (d *Decoded) Verify(publicKey []byte) bool {
	sigStructure, err := encMode.Marshal([]interface{}{
		sigContext,
		d.Protected,
		[]byte{},
		d.Payload,
	})
	if err != nil {
		return false
	}
	return crypto.VerifySignature(sigStructure, d.Signature, publicKey)
}
