package wallet

import (
	"fmt"

	"github.com/scavmine/scavctl/internal/log"
	"github.com/scavmine/scavctl/pkg/crypto"
	"github.com/scavmine/scavctl/pkg/types"
)

// KeyPairRecord is one derived address with its payment key pair.
// Private key material lives only in memory; call Zero() when done.
type KeyPairRecord struct {
	Index      uint32
	Address    types.Address
	PaymentKey *crypto.PrivateKey
	PaymentPub []byte
}

// Zero overwrites the record's private key material.
func (r *KeyPairRecord) Zero() {
	if r.PaymentKey != nil {
		r.PaymentKey.Zero()
	}
}

// ZeroRecords zeroes the key material of every record in the list.
func ZeroRecords(records []KeyPairRecord) {
	for i := range records {
		records[i].Zero()
	}
}

// Index builds an address-string lookup over a record list.
func Index(records []KeyPairRecord) map[string]*KeyPairRecord {
	m := make(map[string]*KeyPairRecord, len(records))
	for i := range records {
		m[records[i].Address.String()] = &records[i]
	}
	return m
}

// Derive expands mnemonic entropy into count key-pair records at indices
// 0..count-1. The stake key at account/2/0 is derived once and shared by
// every address; payment keys follow account/0/index. Deterministic: the
// same entropy and count always produce the same records, and extending
// count never changes earlier records.
func Derive(entropy []byte, count int) ([]KeyPairRecord, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}

	master, err := NewMasterKey(entropy)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	defer master.Zero()

	account := master.DerivePath(PurposeShelley, CoinTypeAda, FirstHardenedIndex)
	defer account.Zero()

	// Shared stake key: derived once, only its hash ends up in addresses.
	stake := account.DerivePath(RoleStaking, 0)
	stakeKey, err := crypto.PrivateKeyFromSeed(stake.KeySeed())
	stake.Zero()
	if err != nil {
		return nil, fmt.Errorf("stake key: %w", err)
	}
	stakeHash := crypto.KeyHash(stakeKey.PublicKey())
	stakeKey.Zero()

	records := make([]KeyPairRecord, 0, count)
	for i := 0; i < count; i++ {
		payment := account.DerivePath(RolePayment, uint32(i))
		paymentKey, err := crypto.PrivateKeyFromSeed(payment.KeySeed())
		payment.Zero()
		if err != nil {
			ZeroRecords(records)
			return nil, fmt.Errorf("payment key %d: %w", i, err)
		}

		pub := paymentKey.PublicKey()
		addr, err := types.NewBaseAddress(crypto.KeyHash(pub), stakeHash)
		if err != nil {
			paymentKey.Zero()
			ZeroRecords(records)
			return nil, fmt.Errorf("address %d: %w", i, err)
		}

		records = append(records, KeyPairRecord{
			Index:      uint32(i),
			Address:    addr,
			PaymentKey: paymentKey,
			PaymentPub: pub,
		})

		if (i+1)%10 == 0 {
			log.Wallet.Info().Int("derived", i+1).Int("total", count).Msg("deriving addresses")
		}
	}

	log.Wallet.Info().Int("count", count).Msg("derivation complete")
	return records, nil
}
