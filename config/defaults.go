package config

import "time"

// DefaultAPIBaseURL is the production rewards service endpoint.
const DefaultAPIBaseURL = "https://scavenger.prod.gd.midnighttge.io"

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		API: APIConfig{
			BaseURL: DefaultAPIBaseURL,
			Timeout: 10 * time.Second,
		},
		Batch: BatchConfig{
			RegisterPerMinute:    30,
			ConsolidatePerMinute: 120,
			Backoff:              15 * time.Second,
			MaxAttempts:          5,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
