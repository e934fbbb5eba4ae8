package storage

import (
	"context"

	"github.com/mcoot/guessgame/internal/model"
)

// Storage defines the interface for the authentication client's session storage
type Storage interface {
	// Delegation operations
	SaveDelegation(ctx context.Context, d *model.Delegation) error
	GetDelegation(ctx context.Context, id model.SessionID) (*model.Delegation, error)
	DeleteDelegation(ctx context.Context, id model.SessionID) error

	// Pending login operations
	SavePendingLogin(ctx context.Context, p *model.PendingLogin) error
	// TakePendingLogin returns and removes the pending login for a state value
	TakePendingLogin(ctx context.Context, state string) (*model.PendingLogin, error)
}
