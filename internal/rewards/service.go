// Package rewards composes the derivation engine, envelope builder,
// progress ledger, and remote client into the two batch flows:
// registration and consolidation.
package rewards

import (
	"context"
	"errors"

	"github.com/scavmine/scavctl/internal/batch"
	"github.com/scavmine/scavctl/internal/scavenger"
)

// Fatal precondition errors. These abort a run before any signing or
// network call happens.
var (
	// ErrFirstAddressMismatch means the seed does not reproduce the
	// registered address set (wrong phrase, derivation path, or network).
	ErrFirstAddressMismatch = errors.New("first derived address does not match first registered address")

	// ErrBadDestination means the destination address does not carry the
	// active network's address prefix.
	ErrBadDestination = errors.New("destination address does not match the network address prefix")

	// ErrNoRegistrations means the registration snapshot is missing or empty.
	ErrNoRegistrations = errors.New("no registered addresses found")
)

// Registration count bounds (inclusive).
const (
	MinAddressCount = 1
	MaxAddressCount = 1000
)

// Snapshot file names, relative to the service directory.
const (
	RegistrationsFile    = "registrations.json"
	NewRegistrationsFile = "registrations-new.json"
	ResultsFile          = "consolidation-results.json"
)

// APIClient is the remote service surface the flows depend on.
type APIClient interface {
	Terms(ctx context.Context) (string, error)
	Register(ctx context.Context, address, signatureHex, pubkeyHex string) scavenger.Result
	DonateTo(ctx context.Context, destination, original, signatureHex string) scavenger.Result
}

// Service runs the batch flows.
type Service struct {
	Client APIClient
	Orch   *batch.Orchestrator

	// Dir is where durable snapshots live (registrations, results).
	Dir string
}

// consolidationMessagePrefix is fixed by the service; the destination is
// appended verbatim.
const consolidationMessagePrefix = "Assign accumulated Scavenger rights to: "

// ConsolidationMessage is the exact text each address signs to redirect
// its rewards to destination.
func ConsolidationMessage(destination string) string {
	return consolidationMessagePrefix + destination
}
