// Package ledger persists which addresses have completed a batch operation,
// making interrupted runs safe to resume without duplicating work.
package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/scavmine/scavctl/internal/storage"
)

// RegistrationEntry records one successfully registered address.
type RegistrationEntry struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
	Pubkey    string `json:"pubkey"`
}

// ConsolidationEntry records the outcome of one consolidation attempt.
type ConsolidationEntry struct {
	Address     string `json:"address"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	Status      int    `json:"status,omitempty"`
	RateLimited bool   `json:"rate_limited,omitempty"`
}

// Ledger is an append-only record of completed per-address work for one
// batch operation. Entries are keyed by address; an address appears at
// most once. Each RecordSuccess is written through to the database before
// the caller advances to the next address.
type Ledger struct {
	db   *storage.PrefixDB
	done map[string]struct{}
}

// Open returns the ledger for the named operation ("register",
// "consolidate", ...), backed by its own namespace of db, with prior
// entries loaded.
func Open(db storage.DB, operation string) (*Ledger, error) {
	l := &Ledger{
		db:   storage.NewPrefixDB(db, []byte(operation+"/")),
		done: make(map[string]struct{}),
	}
	if err := l.Load(); err != nil {
		return nil, err
	}
	return l, nil
}

// Load reads all prior entries into the in-memory done set.
func (l *Ledger) Load() error {
	l.done = make(map[string]struct{})
	err := l.db.ForEach(nil, func(key, _ []byte) error {
		l.done[string(key)] = struct{}{}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	return nil
}

// AlreadyDone reports whether the address has a recorded entry.
func (l *Ledger) AlreadyDone(address string) bool {
	_, ok := l.done[address]
	return ok
}

// RecordSuccess durably persists an entry for the address. Recording the
// same address twice overwrites the entry but never duplicates it.
func (l *Ledger) RecordSuccess(address string, entry interface{}) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode ledger entry: %w", err)
	}
	if err := l.db.Put([]byte(address), value); err != nil {
		return fmt.Errorf("persist ledger entry: %w", err)
	}
	l.done[address] = struct{}{}
	return nil
}

// Get unmarshals the entry recorded for the address into out.
// Returns false if no entry exists.
func (l *Ledger) Get(address string, out interface{}) (bool, error) {
	if !l.AlreadyDone(address) {
		return false, nil
	}
	value, err := l.db.Get([]byte(address))
	if err != nil {
		return false, fmt.Errorf("read ledger entry: %w", err)
	}
	if err := json.Unmarshal(value, out); err != nil {
		return false, fmt.Errorf("decode ledger entry: %w", err)
	}
	return true, nil
}

// Count returns the number of recorded addresses.
func (l *Ledger) Count() int {
	return len(l.done)
}

// Reset removes all entries for this operation. Called once a completed
// run's results have been written to the durable snapshot.
func (l *Ledger) Reset() error {
	if err := l.db.DeleteAll(); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}
	l.done = make(map[string]struct{})
	return nil
}
