package rewards

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scavmine/scavctl/internal/batch"
	"github.com/scavmine/scavctl/internal/ledger"
	"github.com/scavmine/scavctl/internal/log"
	"github.com/scavmine/scavctl/internal/scavenger"
	"github.com/scavmine/scavctl/internal/wallet"
	"github.com/scavmine/scavctl/pkg/cose"
)

// RegisterAll derives count addresses from entropy and registers each one
// with the service, signing the service's registration message per address.
// Safe to re-run: addresses already in the progress ledger are skipped.
// All derived key material is zeroed before returning, on every path.
func (s *Service) RegisterAll(ctx context.Context, entropy []byte, count int) (*batch.Summary, error) {
	if count < MinAddressCount || count > MaxAddressCount {
		return nil, fmt.Errorf("count must be between %d and %d, got %d", MinAddressCount, MaxAddressCount, count)
	}

	// One message per batch, reused verbatim for every signature.
	message, err := s.Client.Terms(ctx)
	if err != nil {
		return nil, err
	}

	records, err := wallet.Derive(entropy, count)
	if err != nil {
		return nil, err
	}
	defer wallet.ZeroRecords(records)

	targets := make([]string, len(records))
	for i := range records {
		targets[i] = records[i].Address.String()
	}
	log.Info().
		Str("first", targets[0]).
		Str("last", targets[len(targets)-1]).
		Msg("derived address range")

	// Signatures are produced in the submitter but persisted by the
	// recorder; carry them across by address.
	signatures := make(map[string]string, len(records))

	submit := func(ctx context.Context, rec *wallet.KeyPairRecord) (scavenger.Result, error) {
		envelope, err := cose.Sign(message, rec.PaymentKey, rec.Address)
		if err != nil {
			return scavenger.Result{}, fmt.Errorf("build envelope: %w", err)
		}
		address := rec.Address.String()
		signatures[address] = envelope.Hex()
		return s.Client.Register(ctx, address, envelope.Hex(), hex.EncodeToString(rec.PaymentPub)), nil
	}

	record := func(rec *wallet.KeyPairRecord, _ scavenger.Result) error {
		address := rec.Address.String()
		return s.Orch.Ledger.RecordSuccess(address, ledger.RegistrationEntry{
			Address:   address,
			Signature: signatures[address],
			Pubkey:    hex.EncodeToString(rec.PaymentPub),
		})
	}

	summary, err := s.Orch.Run(ctx, targets, wallet.Index(records), submit, record)
	if err != nil {
		return summary, err
	}

	if err := s.saveRegistrationSnapshot(targets); err != nil {
		return summary, err
	}

	// The snapshot is now the system of record; keep the ledger only if
	// there is outstanding work to resume.
	if summary.Failures == 0 {
		if err := s.Orch.Ledger.Reset(); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// saveRegistrationSnapshot writes the registration entries recorded so far,
// in derivation order. If a snapshot already exists it is left untouched:
// the new entries go to a separate file and the leading addresses are
// compared so the operator can review before replacing it.
func (s *Service) saveRegistrationSnapshot(targets []string) error {
	entries := make([]ledger.RegistrationEntry, 0, len(targets))
	for _, address := range targets {
		var entry ledger.RegistrationEntry
		ok, err := s.Orch.Ledger.Get(address, &entry)
		if err != nil {
			return err
		}
		if ok {
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 {
		log.Warn().Msg("no successful registrations, snapshot not written")
		return nil
	}

	path := filepath.Join(s.Dir, RegistrationsFile)
	if _, err := os.Stat(path); err == nil {
		old, err := ledger.LoadRegistrations(path)
		if err == nil {
			n := len(old)
			if len(entries) < n {
				n = len(entries)
			}
			if n > 3 {
				n = 3
			}
			matches := 0
			for i := 0; i < n; i++ {
				if old[i].Address == entries[i].Address {
					matches++
				}
			}
			log.Warn().
				Int("matched", matches).
				Int("checked", n).
				Str("file", NewRegistrationsFile).
				Msg("existing snapshot kept, review and rename the new one")
		}
		path = filepath.Join(s.Dir, NewRegistrationsFile)
	}

	if err := ledger.SaveRegistrations(path, entries); err != nil {
		return err
	}
	log.Info().Int("count", len(entries)).Str("file", filepath.Base(path)).Msg("saved registrations")
	return nil
}
