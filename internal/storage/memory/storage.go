package memory

import (
	"context"
	"sync"

	"github.com/mcoot/guessgame/internal/model"
	"github.com/mcoot/guessgame/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	delegations   map[model.SessionID]*model.Delegation
	pendingLogins map[string]*model.PendingLogin
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		delegations:   make(map[model.SessionID]*model.Delegation),
		pendingLogins: make(map[string]*model.PendingLogin),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Delegation operations

func (s *Storage) SaveDelegation(ctx context.Context, d *model.Delegation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.delegations[d.SessionID] = &cp
	return nil
}

func (s *Storage) GetDelegation(ctx context.Context, id model.SessionID) (*model.Delegation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.delegations[id]
	if !ok {
		return nil, model.ErrDelegationNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *Storage) DeleteDelegation(ctx context.Context, id model.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.delegations, id)
	return nil
}

// Pending login operations

func (s *Storage) SavePendingLogin(ctx context.Context, p *model.PendingLogin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.pendingLogins[p.State] = &cp
	return nil
}

func (s *Storage) TakePendingLogin(ctx context.Context, state string) (*model.PendingLogin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pendingLogins[state]
	if !ok {
		return nil, model.ErrPendingLoginNotFound
	}
	delete(s.pendingLogins, state)
	return p, nil
}
