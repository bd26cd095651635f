package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestRegistrationsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registrations.json")

	entries := []RegistrationEntry{
		{Address: "addr1a", Signature: "84aa", Pubkey: "01"},
		{Address: "addr1b", Signature: "84bb", Pubkey: "02"},
	}
	if err := SaveRegistrations(path, entries); err != nil {
		t.Fatalf("SaveRegistrations() error: %v", err)
	}

	loaded, err := LoadRegistrations(path)
	if err != nil {
		t.Fatalf("LoadRegistrations() error: %v", err)
	}
	if len(loaded) != len(entries) {
		t.Fatalf("len(loaded) = %d, want %d", len(loaded), len(entries))
	}
	for i := range entries {
		if loaded[i] != entries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, loaded[i], entries[i])
		}
	}

	// No temp file left behind.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}
}

func TestLoadRegistrations_Missing(t *testing.T) {
	if _, err := LoadRegistrations(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadRegistrations_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registrations.json")
	os.WriteFile(path, []byte("{not json"), 0600)

	if _, err := LoadRegistrations(path); err == nil {
		t.Error("expected error for corrupt file")
	}
}

func TestSaveConsolidationResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "consolidation-results.json")

	results := &ConsolidationResults{
		Destination: "addr1dest",
		Total:       3,
		Successful:  2,
		Failed:      1,
		Results: []ConsolidationEntry{
			{Address: "addr1a", Success: true},
			{Address: "addr1b", Success: true},
			{Address: "addr1c", Error: "HTTP 500", Status: 500},
		},
	}
	if err := SaveConsolidationResults(path, results); err != nil {
		t.Fatalf("SaveConsolidationResults() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	var loaded ConsolidationResults
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("decode results: %v", err)
	}

	if loaded.Destination != results.Destination {
		t.Errorf("destination = %q, want %q", loaded.Destination, results.Destination)
	}
	if loaded.Total != 3 || loaded.Successful != 2 || loaded.Failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", loaded.Total, loaded.Successful, loaded.Failed)
	}
	if len(loaded.Results) != 3 {
		t.Fatalf("len(Results) = %d, want 3", len(loaded.Results))
	}
	if loaded.Results[2].Error != "HTTP 500" {
		t.Errorf("Results[2].Error = %q, want %q", loaded.Results[2].Error, "HTTP 500")
	}
}
