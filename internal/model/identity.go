package model

import "time"

// SessionID identifies one browser session (the sid cookie)
type SessionID string

// Principal is the provider-assigned identifier of an authenticated user
type Principal string

// Identity is the delegated identity handed to the game service agent
type Identity struct {
	Principal   Principal
	AccessToken string
	ExpiresAt   time.Time
}

// Expired reports whether the identity is no longer usable at now
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Delegation is what the authentication client keeps for a browser session
// Stored separately from the in-memory page state so a restart can rebuild it
type Delegation struct {
	SessionID    SessionID
	Principal    Principal
	AccessToken  string
	RefreshToken string
	IDToken      string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Identity returns the identity handle carried by the delegation
func (d *Delegation) Identity() Identity {
	return Identity{
		Principal:   d.Principal,
		AccessToken: d.AccessToken,
		ExpiresAt:   d.ExpiresAt,
	}
}

// PendingLogin tracks an authorization request that has been sent to the provider
type PendingLogin struct {
	State        string
	SessionID    SessionID
	CodeVerifier string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}
