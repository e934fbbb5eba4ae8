package authclient

import (
	"strings"
	"time"
)

// DefaultIdentityProvider is the identity provider used when none is configured
const DefaultIdentityProvider = "https://identity.ic0.app"

// Config holds configuration for the authentication client
type Config struct {
	// IdentityProvider is the provider base URL; AuthURL and TokenURL default to paths under it
	IdentityProvider string
	AuthURL          string
	TokenURL         string

	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// MaxTimeToLive caps how long a delegation stays valid, regardless of token expiry
	MaxTimeToLive time.Duration
	// PendingLoginTTL bounds how long the user has to finish the provider flow
	PendingLoginTTL time.Duration
}

// DefaultConfig returns default authentication client configuration
func DefaultConfig() Config {
	return Config{
		IdentityProvider: DefaultIdentityProvider,
		Scopes:           []string{"openid"},
		MaxTimeToLive:    8 * time.Hour,
		PendingLoginTTL:  10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.IdentityProvider == "" {
		c.IdentityProvider = def.IdentityProvider
	}
	base := strings.TrimSuffix(c.IdentityProvider, "/")
	if c.AuthURL == "" {
		c.AuthURL = base + "/authorize"
	}
	if c.TokenURL == "" {
		c.TokenURL = base + "/token"
	}
	if len(c.Scopes) == 0 {
		c.Scopes = def.Scopes
	}
	if c.MaxTimeToLive == 0 {
		c.MaxTimeToLive = def.MaxTimeToLive
	}
	if c.PendingLoginTTL == 0 {
		c.PendingLoginTTL = def.PendingLoginTTL
	}
	return c
}
