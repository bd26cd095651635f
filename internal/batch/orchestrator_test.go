package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/ratelimit"

	"github.com/scavmine/scavctl/internal/ledger"
	"github.com/scavmine/scavctl/internal/scavenger"
	"github.com/scavmine/scavctl/internal/storage"
	"github.com/scavmine/scavctl/internal/wallet"
)

// testOrchestrator returns an orchestrator with no pacing and a tiny
// backoff, so tests run instantly.
func testOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	led, err := ledger.Open(storage.NewMemory(), "test")
	if err != nil {
		t.Fatalf("ledger.Open() error: %v", err)
	}
	return &Orchestrator{
		Ledger:      led,
		Limiter:     ratelimit.NewUnlimited(),
		Backoff:     time.Millisecond,
		MaxAttempts: 3,
	}
}

// testRecords builds records and targets for n fake addresses. The key
// material is irrelevant here; the orchestrator only passes records through.
func testRecords(n int) ([]string, map[string]*wallet.KeyPairRecord) {
	targets := make([]string, n)
	records := make(map[string]*wallet.KeyPairRecord, n)
	for i := 0; i < n; i++ {
		addr := "addr1test" + string(rune('a'+i))
		targets[i] = addr
		records[addr] = &wallet.KeyPairRecord{Index: uint32(i)}
	}
	return targets, records
}

func noRecord(_ *wallet.KeyPairRecord, _ scavenger.Result) error { return nil }

func TestRun_AllSucceed(t *testing.T) {
	o := testOrchestrator(t)
	targets, records := testRecords(3)

	submitted := 0
	submit := func(_ context.Context, _ *wallet.KeyPairRecord) (scavenger.Result, error) {
		submitted++
		return scavenger.Result{Outcome: scavenger.OutcomeSuccess}, nil
	}
	record := func(rec *wallet.KeyPairRecord, _ scavenger.Result) error {
		return o.Ledger.RecordSuccess(targets[rec.Index], ledger.RegistrationEntry{})
	}

	summary, err := o.Run(context.Background(), targets, records, submit, record)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if submitted != 3 {
		t.Errorf("submitted = %d, want 3", submitted)
	}
	if summary.Successes != 3 || summary.Failures != 0 || summary.Total != 3 {
		t.Errorf("summary = %d/%d of %d, want 3/0 of 3", summary.Successes, summary.Failures, summary.Total)
	}
}

func TestRun_SkipsRecorded(t *testing.T) {
	o := testOrchestrator(t)
	targets, records := testRecords(5)

	// Addresses 0 and 1 completed in a previous run.
	o.Ledger.RecordSuccess(targets[0], ledger.RegistrationEntry{})
	o.Ledger.RecordSuccess(targets[1], ledger.RegistrationEntry{})

	submitted := 0
	submit := func(_ context.Context, _ *wallet.KeyPairRecord) (scavenger.Result, error) {
		submitted++
		return scavenger.Result{Outcome: scavenger.OutcomeSuccess}, nil
	}
	record := func(rec *wallet.KeyPairRecord, _ scavenger.Result) error {
		return o.Ledger.RecordSuccess(targets[rec.Index], ledger.RegistrationEntry{})
	}

	summary, err := o.Run(context.Background(), targets, records, submit, record)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// Only the three new addresses hit the service; skipped ones still
	// count as successes in the totals.
	if submitted != 3 {
		t.Errorf("submitted = %d, want 3", submitted)
	}
	if summary.Successes != 5 || summary.Total != 5 {
		t.Errorf("summary = %d of %d, want 5 of 5", summary.Successes, summary.Total)
	}

	skipped := 0
	for _, r := range summary.Results {
		if r.Skipped {
			skipped++
		}
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
}

func TestRun_Idempotent(t *testing.T) {
	o := testOrchestrator(t)
	targets, records := testRecords(3)

	submit := func(_ context.Context, _ *wallet.KeyPairRecord) (scavenger.Result, error) {
		return scavenger.Result{Outcome: scavenger.OutcomeSuccess}, nil
	}
	record := func(rec *wallet.KeyPairRecord, _ scavenger.Result) error {
		return o.Ledger.RecordSuccess(targets[rec.Index], ledger.RegistrationEntry{})
	}

	if _, err := o.Run(context.Background(), targets, records, submit, record); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}

	// Second run over the same targets submits nothing.
	resubmitted := 0
	submit2 := func(_ context.Context, _ *wallet.KeyPairRecord) (scavenger.Result, error) {
		resubmitted++
		return scavenger.Result{Outcome: scavenger.OutcomeSuccess}, nil
	}
	summary, err := o.Run(context.Background(), targets, records, submit2, noRecord)
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if resubmitted != 0 {
		t.Errorf("resubmitted = %d, want 0", resubmitted)
	}
	if summary.Successes != 3 {
		t.Errorf("Successes = %d, want 3", summary.Successes)
	}
}

func TestRun_MissingRecord(t *testing.T) {
	o := testOrchestrator(t)
	targets, records := testRecords(2)
	delete(records, targets[1])

	submit := func(_ context.Context, _ *wallet.KeyPairRecord) (scavenger.Result, error) {
		return scavenger.Result{Outcome: scavenger.OutcomeSuccess}, nil
	}

	summary, err := o.Run(context.Background(), targets, records, submit, noRecord)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if summary.Successes != 1 || summary.Failures != 1 {
		t.Errorf("summary = %d/%d, want 1/1", summary.Successes, summary.Failures)
	}
	if summary.Results[1].Error != ErrRecordNotFound.Error() {
		t.Errorf("Results[1].Error = %q, want record-not-found", summary.Results[1].Error)
	}
}

func TestRun_LocalFailureContinues(t *testing.T) {
	o := testOrchestrator(t)
	targets, records := testRecords(3)

	submit := func(_ context.Context, rec *wallet.KeyPairRecord) (scavenger.Result, error) {
		if rec.Index == 1 {
			return scavenger.Result{}, errors.New("sign failed")
		}
		return scavenger.Result{Outcome: scavenger.OutcomeSuccess}, nil
	}

	summary, err := o.Run(context.Background(), targets, records, submit, noRecord)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if summary.Successes != 2 || summary.Failures != 1 {
		t.Errorf("summary = %d/%d, want 2/1", summary.Successes, summary.Failures)
	}
}

func TestRun_HTTPErrorContinues(t *testing.T) {
	o := testOrchestrator(t)
	targets, records := testRecords(2)

	submit := func(_ context.Context, rec *wallet.KeyPairRecord) (scavenger.Result, error) {
		if rec.Index == 0 {
			return scavenger.Result{Outcome: scavenger.OutcomeHTTPError, Status: 500, Body: "boom"}, nil
		}
		return scavenger.Result{Outcome: scavenger.OutcomeSuccess}, nil
	}

	summary, err := o.Run(context.Background(), targets, records, submit, noRecord)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if summary.Failures != 1 || summary.Successes != 1 {
		t.Errorf("summary = %d/%d, want 1/1", summary.Successes, summary.Failures)
	}
	if summary.Results[0].Status != 500 {
		t.Errorf("Results[0].Status = %d, want 500", summary.Results[0].Status)
	}
}

func TestRun_RateLimitedRetriesThenSucceeds(t *testing.T) {
	o := testOrchestrator(t)
	targets, records := testRecords(1)

	attempts := 0
	submit := func(_ context.Context, _ *wallet.KeyPairRecord) (scavenger.Result, error) {
		attempts++
		if attempts < 3 {
			return scavenger.Result{Outcome: scavenger.OutcomeRateLimited}, nil
		}
		return scavenger.Result{Outcome: scavenger.OutcomeSuccess}, nil
	}

	summary, err := o.Run(context.Background(), targets, records, submit, noRecord)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if summary.Successes != 1 {
		t.Errorf("Successes = %d, want 1", summary.Successes)
	}
}

func TestRun_RateLimitedExhausted(t *testing.T) {
	o := testOrchestrator(t)
	targets, records := testRecords(1)

	attempts := 0
	submit := func(_ context.Context, _ *wallet.KeyPairRecord) (scavenger.Result, error) {
		attempts++
		return scavenger.Result{Outcome: scavenger.OutcomeRateLimited}, nil
	}

	summary, err := o.Run(context.Background(), targets, records, submit, noRecord)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if attempts != o.MaxAttempts {
		t.Errorf("attempts = %d, want %d", attempts, o.MaxAttempts)
	}
	if summary.Failures != 1 {
		t.Errorf("Failures = %d, want 1", summary.Failures)
	}
	if !summary.Results[0].RateLimited {
		t.Error("result should be marked rate limited")
	}
}

func TestRun_RecordFailureStops(t *testing.T) {
	o := testOrchestrator(t)
	targets, records := testRecords(3)

	submit := func(_ context.Context, _ *wallet.KeyPairRecord) (scavenger.Result, error) {
		return scavenger.Result{Outcome: scavenger.OutcomeSuccess}, nil
	}
	recordErr := errors.New("disk full")
	record := func(_ *wallet.KeyPairRecord, _ scavenger.Result) error {
		return recordErr
	}

	// A ledger write failure makes resuming unsafe: the run must stop.
	_, err := o.Run(context.Background(), targets, records, submit, record)
	if !errors.Is(err, recordErr) {
		t.Fatalf("Run() error = %v, want the record error", err)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	o := testOrchestrator(t)
	targets, records := testRecords(3)

	ctx, cancel := context.WithCancel(context.Background())
	submitted := 0
	submit := func(_ context.Context, _ *wallet.KeyPairRecord) (scavenger.Result, error) {
		submitted++
		cancel() // cancel after the first submission
		return scavenger.Result{Outcome: scavenger.OutcomeSuccess}, nil
	}
	record := func(rec *wallet.KeyPairRecord, _ scavenger.Result) error {
		return o.Ledger.RecordSuccess(targets[rec.Index], ledger.RegistrationEntry{})
	}

	_, err := o.Run(ctx, targets, records, submit, record)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if submitted != 1 {
		t.Errorf("submitted = %d, want 1 (stop after in-flight address)", submitted)
	}

	// The completed address stays recorded, so a resumed run skips it.
	if !o.Ledger.AlreadyDone(targets[0]) {
		t.Error("completed address should be recorded despite cancellation")
	}
}
