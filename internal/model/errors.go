package model

import "errors"

// Common errors used across the application
var (
	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")

	// Identity provider errors
	ErrDelegationNotFound   = errors.New("delegation not found")
	ErrDelegationExpired    = errors.New("delegation has expired")
	ErrPendingLoginNotFound = errors.New("pending login not found or expired")

	// Game service errors
	ErrRootKeyUnavailable = errors.New("root key unavailable")
	ErrInvalidCertificate = errors.New("invalid reply certificate")

	// Input errors
	ErrInvalidGuess = errors.New("invalid guess")
)
