package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/guessgame/internal/model"
	"github.com/mcoot/guessgame/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Delegation operations

func (s *Storage) SaveDelegation(ctx context.Context, d *model.Delegation) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}

	if s.cfg.SealKey != nil {
		if data, err = seal(s.cfg.SealKey, data); err != nil {
			return err
		}
	}

	return s.client.Set(ctx, delegationKey(d.SessionID), data, s.cfg.DelegationTTL).Err()
}

func (s *Storage) GetDelegation(ctx context.Context, id model.SessionID) (*model.Delegation, error) {
	data, err := s.client.Get(ctx, delegationKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrDelegationNotFound
		}
		return nil, err
	}

	if s.cfg.SealKey != nil {
		if data, err = unseal(s.cfg.SealKey, data); err != nil {
			return nil, err
		}
	}

	var d model.Delegation
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Storage) DeleteDelegation(ctx context.Context, id model.SessionID) error {
	return s.client.Del(ctx, delegationKey(id)).Err()
}

// Pending login operations

func (s *Storage) SavePendingLogin(ctx context.Context, p *model.PendingLogin) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, pendingLoginKey(p.State), data, s.cfg.PendingLoginTTL).Err()
}

func (s *Storage) TakePendingLogin(ctx context.Context, state string) (*model.PendingLogin, error) {
	// GETDEL keeps the state single-use across concurrent callbacks
	data, err := s.client.GetDel(ctx, pendingLoginKey(state)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPendingLoginNotFound
		}
		return nil, err
	}

	var p model.PendingLogin
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
