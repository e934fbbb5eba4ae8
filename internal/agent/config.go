package agent

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"time"
)

// ProductionNetwork is the network whose root key is pinned rather than fetched
const ProductionNetwork = "ic"

// Config holds configuration for agents and the game service actor
type Config struct {
	// Host is the base URL of the replica serving the game canister
	Host string
	// Network names the target network; anything other than ProductionNetwork fetches its root key
	Network string
	// CanisterID addresses the game service on the host
	CanisterID string
	// RootKey is the pinned root key used on the production network
	RootKey ed25519.PublicKey
	// CallTimeout bounds each remote call
	CallTimeout time.Duration
}

// DefaultConfig returns default agent configuration for a local replica
func DefaultConfig() Config {
	return Config{
		Host:        "http://127.0.0.1:4943",
		Network:     "local",
		CallTimeout: 30 * time.Second,
	}
}

// IsProduction reports whether the config targets the production network
func (c Config) IsProduction() bool {
	return c.Network == ProductionNetwork
}

// ParseRootKey decodes a base64 ed25519 public key
func ParseRootKey(s string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode root key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("root key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}
