package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ConsolidationResults is the final structured summary of a consolidation
// run, persisted for post-hoc inspection regardless of overall outcome.
type ConsolidationResults struct {
	Destination string               `json:"destination"`
	Total       int                  `json:"total"`
	Successful  int                  `json:"successful"`
	Failed      int                  `json:"failed"`
	Results     []ConsolidationEntry `json:"results"`
}

// LoadRegistrations reads a registration snapshot, the system of record
// for which addresses exist.
func LoadRegistrations(path string) ([]RegistrationEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registrations: %w", err)
	}
	var entries []RegistrationEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode registrations: %w", err)
	}
	return entries, nil
}

// SaveRegistrations writes a registration snapshot atomically
// (write to a temp file, then rename).
func SaveRegistrations(path string, entries []RegistrationEntry) error {
	return writeJSON(path, entries)
}

// SaveConsolidationResults writes the consolidation summary.
func SaveConsolidationResults(path string, results *ConsolidationResults) error {
	return writeJSON(path, results)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
