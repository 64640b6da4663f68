// Package config resolves client configuration from explicit sources.
//
// Environment lookup is one Source implementation rather than an implicit
// global: constructors receive a Config (or a Source) and never read
// process state themselves.
package config

import "os"

// Well-known configuration keys.
const (
	KeyRPCEndpoint = "SOLANA_RPC_URL"
	KeyWSEndpoint  = "SOLANA_WS_URL"
	KeyPrivateKey  = "WALLET_PRIVATE_KEY"
	KeyPostgresDSN = "POSTGRES_DSN"
	KeyCommitment  = "SOLANA_COMMITMENT"
)

// Default endpoints used when no source provides a value.
const (
	DefaultRPCEndpoint = "https://api.mainnet-beta.solana.com"
	DefaultWSEndpoint  = "wss://api.mainnet-beta.solana.com"
	DefaultCommitment  = "confirmed"
)

// Source provides configuration values by key.
type Source interface {
	// Lookup returns the value for key and whether it was present.
	Lookup(key string) (string, bool)
}

// EnvSource reads configuration from process environment variables.
type EnvSource struct{}

// Lookup returns the environment variable named key.
func (EnvSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapSource reads configuration from a fixed map. Useful for tests and
// for callers that resolve settings elsewhere (flags, files).
type MapSource map[string]string

// Lookup returns the map entry for key.
func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Chain tries each source in order and returns the first hit.
type Chain []Source

// Lookup returns the first value any source provides for key.
func (c Chain) Lookup(key string) (string, bool) {
	for _, s := range c {
		if v, ok := s.Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}

// Config holds resolved client settings.
type Config struct {
	// RPCEndpoint is the HTTP JSON-RPC endpoint URL.
	RPCEndpoint string
	// WSEndpoint is the WebSocket endpoint URL.
	WSEndpoint string
	// Commitment is the default commitment level for queries.
	Commitment string
	// PostgresDSN is the submission journal DSN; empty disables postgres.
	PostgresDSN string
}

// Load resolves a Config from src, applying defaults for absent keys.
// A nil src yields pure defaults.
func Load(src Source) Config {
	cfg := Config{
		RPCEndpoint: DefaultRPCEndpoint,
		WSEndpoint:  DefaultWSEndpoint,
		Commitment:  DefaultCommitment,
	}
	if src == nil {
		return cfg
	}
	if v, ok := src.Lookup(KeyRPCEndpoint); ok && v != "" {
		cfg.RPCEndpoint = v
	}
	if v, ok := src.Lookup(KeyWSEndpoint); ok && v != "" {
		cfg.WSEndpoint = v
	}
	if v, ok := src.Lookup(KeyCommitment); ok && v != "" {
		cfg.Commitment = v
	}
	if v, ok := src.Lookup(KeyPostgresDSN); ok {
		cfg.PostgresDSN = v
	}
	return cfg
}
