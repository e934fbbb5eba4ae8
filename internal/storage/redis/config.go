package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// TTL settings for the stored entity types
	DelegationTTL   time.Duration
	PendingLoginTTL time.Duration

	// SealKey encrypts delegations at rest when set
	SealKey *[32]byte
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:             "redis://localhost:6379",
		PoolSize:        10,
		MinIdleConns:    2,
		DelegationTTL:   8 * time.Hour,
		PendingLoginTTL: 10 * time.Minute,
	}
}
