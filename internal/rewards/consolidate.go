package rewards

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/scavmine/scavctl/internal/batch"
	"github.com/scavmine/scavctl/internal/ledger"
	"github.com/scavmine/scavctl/internal/log"
	"github.com/scavmine/scavctl/internal/scavenger"
	"github.com/scavmine/scavctl/internal/wallet"
	"github.com/scavmine/scavctl/pkg/cose"
	"github.com/scavmine/scavctl/pkg/types"
)

// ConsolidateAll redirects all rewards of every registered address to
// destination. Irreversible once accepted by the service. Before any
// signing or network call, the run verifies that the first re-derived
// address matches the first registered address byte for byte; a mismatch
// means the seed does not own the registered set, and the run aborts.
func (s *Service) ConsolidateAll(ctx context.Context, entropy []byte, destination string) (*batch.Summary, error) {
	if !types.HasNetworkPrefix(destination) {
		return nil, fmt.Errorf("%w: %q must start with %q", ErrBadDestination, destination, types.GetAddressHRP()+"1")
	}

	registered, err := ledger.LoadRegistrations(filepath.Join(s.Dir, RegistrationsFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRegistrations, err)
	}
	if len(registered) == 0 {
		return nil, ErrNoRegistrations
	}

	targets := make([]string, len(registered))
	for i, entry := range registered {
		targets[i] = entry.Address
	}

	// Re-derive just enough records to cover the registered set.
	records, err := wallet.Derive(entropy, len(targets))
	if err != nil {
		return nil, err
	}
	defer wallet.ZeroRecords(records)

	if derived := records[0].Address.String(); derived != targets[0] {
		log.Error().
			Str("derived", derived).
			Str("registered", targets[0]).
			Msg("wrong seed phrase, derivation path, or network")
		return nil, ErrFirstAddressMismatch
	}
	log.Info().Int("count", len(targets)).Str("destination", destination).Msg("derived addresses match registered set")

	message := ConsolidationMessage(destination)

	submit := func(ctx context.Context, rec *wallet.KeyPairRecord) (scavenger.Result, error) {
		envelope, err := cose.Sign(message, rec.PaymentKey, rec.Address)
		if err != nil {
			return scavenger.Result{}, fmt.Errorf("build envelope: %w", err)
		}
		return s.Client.DonateTo(ctx, destination, rec.Address.String(), envelope.Hex()), nil
	}

	record := func(rec *wallet.KeyPairRecord, _ scavenger.Result) error {
		address := rec.Address.String()
		return s.Orch.Ledger.RecordSuccess(address, ledger.ConsolidationEntry{
			Address: address,
			Success: true,
		})
	}

	summary, err := s.Orch.Run(ctx, targets, wallet.Index(records), submit, record)
	if err != nil {
		return summary, err
	}

	if err := s.saveConsolidationResults(destination, summary); err != nil {
		return summary, err
	}
	if summary.Failures == 0 {
		if err := s.Orch.Ledger.Reset(); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// saveConsolidationResults persists the full per-address result set,
// independent of the live ledger.
func (s *Service) saveConsolidationResults(destination string, summary *batch.Summary) error {
	results := &ledger.ConsolidationResults{
		Destination: destination,
		Total:       summary.Total,
		Successful:  summary.Successes,
		Failed:      summary.Failures,
		Results:     make([]ledger.ConsolidationEntry, 0, len(summary.Results)),
	}
	for _, r := range summary.Results {
		results.Results = append(results.Results, ledger.ConsolidationEntry{
			Address:     r.Address,
			Success:     r.Success,
			Error:       r.Error,
			Status:      r.Status,
			RateLimited: r.RateLimited,
		})
	}
	path := filepath.Join(s.Dir, ResultsFile)
	if err := ledger.SaveConsolidationResults(path, results); err != nil {
		return err
	}
	log.Info().Str("file", ResultsFile).Msg("saved consolidation results")
	return nil
}
