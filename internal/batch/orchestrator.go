// Package batch sequences per-address operations against the rewards
// service: skip-if-done, sign, submit, record, with pacing and backoff.
package batch

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/ratelimit"

	"github.com/scavmine/scavctl/internal/ledger"
	"github.com/scavmine/scavctl/internal/log"
	"github.com/scavmine/scavctl/internal/scavenger"
	"github.com/scavmine/scavctl/internal/wallet"
)

// ErrRecordNotFound means a target address has no matching derived record,
// signalling an index/count mismatch between the registered set and the
// derived set. Per-address and non-fatal to the batch.
var ErrRecordNotFound = errors.New("address not found in derived records")

// AddressResult is the terminal outcome for one address.
type AddressResult struct {
	Address     string `json:"address"`
	Success     bool   `json:"success"`
	Skipped     bool   `json:"skipped,omitempty"` // recorded by a prior run
	Error       string `json:"error,omitempty"`
	Status      int    `json:"status,omitempty"`
	RateLimited bool   `json:"rate_limited,omitempty"`
}

// Summary aggregates a whole run. Addresses recorded by prior runs count
// toward Successes and Total.
type Summary struct {
	Total     int
	Successes int
	Failures  int
	Results   []AddressResult
}

// Submitter signs and submits the operation for one derived record.
// A returned error is a local (signing/build) failure; remote outcomes are
// carried in the Result.
type Submitter func(ctx context.Context, rec *wallet.KeyPairRecord) (scavenger.Result, error)

// Recorder persists one successful submission to the ledger.
type Recorder func(rec *wallet.KeyPairRecord, res scavenger.Result) error

// Orchestrator drives one batch operation over a target list, one address
// at a time. Sequential on purpose: the service is rate limited and the
// ledger must observe one consistent write per completed address.
type Orchestrator struct {
	Ledger *ledger.Ledger

	// Limiter paces submissions (the fixed inter-request delay).
	Limiter ratelimit.Limiter

	// Backoff is the pause after a rate-limited response when the service
	// gives no Retry-After hint.
	Backoff time.Duration

	// MaxAttempts bounds submissions per address under rate limiting.
	MaxAttempts int
}

// New creates an orchestrator that paces requests to at most perMinute
// submissions per minute.
func New(led *ledger.Ledger, perMinute int, backoff time.Duration) *Orchestrator {
	return &Orchestrator{
		Ledger:      led,
		Limiter:     ratelimit.New(perMinute, ratelimit.Per(time.Minute)),
		Backoff:     backoff,
		MaxAttempts: 5,
	}
}

// Run processes targets in list order. Each address's operation is
// independent; order matters only for resumability and progress reporting.
// The returned error is non-nil only when the run as a whole must stop
// (context cancelled, or the ledger cannot persist); per-address failures
// are carried in the Summary.
func (o *Orchestrator) Run(
	ctx context.Context,
	targets []string,
	records map[string]*wallet.KeyPairRecord,
	submit Submitter,
	record Recorder,
) (*Summary, error) {
	summary := &Summary{
		Total:   len(targets),
		Results: make([]AddressResult, 0, len(targets)),
	}

	for i, address := range targets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		progress := log.Batch.With().
			Int("index", i+1).
			Int("total", len(targets)).
			Str("address", shortAddr(address)).
			Logger()

		if o.Ledger.AlreadyDone(address) {
			progress.Info().Msg("already recorded, skipping")
			summary.Successes++
			summary.Results = append(summary.Results, AddressResult{
				Address: address, Success: true, Skipped: true,
			})
			continue
		}

		rec, ok := records[address]
		if !ok {
			progress.Error().Msg("no derived record (index/count mismatch?)")
			summary.Failures++
			summary.Results = append(summary.Results, AddressResult{
				Address: address, Error: ErrRecordNotFound.Error(),
			})
			continue
		}

		result, err := o.processAddress(ctx, rec, submit, progress)
		if err != nil {
			// Local build/sign failure: per-address, batch continues.
			progress.Error().Err(err).Msg("failed")
			summary.Failures++
			summary.Results = append(summary.Results, AddressResult{
				Address: address, Error: err.Error(),
			})
			continue
		}

		switch result.Outcome {
		case scavenger.OutcomeSuccess:
			if err := record(rec, result); err != nil {
				// The ledger must persist before we advance; a write
				// failure makes resuming unsafe, so stop the run.
				return summary, err
			}
			progress.Info().Msg("recorded")
			summary.Successes++
			summary.Results = append(summary.Results, AddressResult{
				Address: address, Success: true,
			})
		case scavenger.OutcomeRateLimited:
			progress.Warn().Msg("rate limited, attempts exhausted")
			summary.Failures++
			summary.Results = append(summary.Results, AddressResult{
				Address: address, Error: result.Detail(), RateLimited: true,
			})
		default:
			progress.Error().Str("detail", result.Detail()).Msg("failed")
			summary.Failures++
			summary.Results = append(summary.Results, AddressResult{
				Address: address, Error: result.Detail(), Status: result.Status,
			})
		}
	}

	log.Batch.Info().
		Int("successes", summary.Successes).
		Int("total", summary.Total).
		Msg("batch complete")
	return summary, nil
}

// processAddress submits one address, pausing and re-submitting on
// rate-limited responses until attempts run out. The final result is
// returned even when rate limiting persists.
func (o *Orchestrator) processAddress(
	ctx context.Context,
	rec *wallet.KeyPairRecord,
	submit Submitter,
	progress zerolog.Logger,
) (scavenger.Result, error) {
	var result scavenger.Result
	for attempt := 1; attempt <= o.MaxAttempts; attempt++ {
		o.Limiter.Take()

		var err error
		result, err = submit(ctx, rec)
		if err != nil {
			return scavenger.Result{}, err
		}
		if result.Outcome != scavenger.OutcomeRateLimited {
			return result, nil
		}

		if attempt == o.MaxAttempts {
			break
		}
		delay := result.RetryAfter
		if delay <= 0 {
			delay = o.Backoff
		}
		progress.Warn().
			Dur("backoff", delay).
			Int("attempt", attempt).
			Msg("rate limited, backing off")
		if err := sleepContext(ctx, delay); err != nil {
			return result, nil
		}
	}
	return result, nil
}

// sleepContext pauses for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// shortAddr trims an address for progress output.
func shortAddr(address string) string {
	if len(address) <= 24 {
		return address
	}
	return address[:24] + "..."
}
