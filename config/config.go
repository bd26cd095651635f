// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Protocol facts: derivation path, address format, message formats —
//     fixed in code, not configurable
//   - Run settings: network, endpoints, pacing — adjustable per run
package config

import (
	"os"
	"path/filepath"
	"time"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds run-specific settings.
type Config struct {
	// Core
	Network NetworkType
	DataDir string

	// Remote rewards service
	API APIConfig

	// Batch pacing
	Batch BatchConfig

	// Logging
	Log LogConfig
}

// APIConfig holds remote service settings.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// BatchConfig holds pacing and backoff settings.
type BatchConfig struct {
	// RegisterPerMinute paces registration submissions (default 30: one
	// every 2 seconds).
	RegisterPerMinute int

	// ConsolidatePerMinute paces consolidation submissions (default 120:
	// one every 500ms).
	ConsolidatePerMinute int

	// Backoff is the pause after a rate-limited response without a
	// Retry-After hint.
	Backoff time.Duration

	// MaxAttempts bounds submissions per address under rate limiting.
	MaxAttempts int
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
	File  string
	JSON  bool
}

// RunDir returns the per-network working directory (ledger + snapshots).
func (c *Config) RunDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// LedgerDir returns the progress ledger database directory.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.RunDir(), "ledger")
}

// DefaultDataDir returns the default data directory (~/.scavctl).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scavctl"
	}
	return filepath.Join(home, ".scavctl")
}
