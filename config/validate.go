package config

import (
	"fmt"
	"net/url"
)

// Validate checks run config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api url %q is not a valid URL", cfg.API.BaseURL)
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}
	if cfg.Batch.RegisterPerMinute < 1 {
		return fmt.Errorf("register pacing must be at least 1 request per minute")
	}
	if cfg.Batch.ConsolidatePerMinute < 1 {
		return fmt.Errorf("consolidate pacing must be at least 1 request per minute")
	}
	if cfg.Batch.Backoff <= 0 {
		return fmt.Errorf("backoff must be positive")
	}
	if cfg.Batch.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1")
	}
	return nil
}
