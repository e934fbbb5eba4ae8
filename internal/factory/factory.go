package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/mcoot/guessgame/internal/agent"
	"github.com/mcoot/guessgame/internal/authclient"
	"github.com/mcoot/guessgame/internal/dependencies/clock"
	"github.com/mcoot/guessgame/internal/dependencies/random"
	"github.com/mcoot/guessgame/internal/identity"
	"github.com/mcoot/guessgame/internal/services/game"
	"github.com/mcoot/guessgame/internal/session"
	"github.com/mcoot/guessgame/internal/storage"
	"github.com/mcoot/guessgame/internal/storage/memory"
	redisstorage "github.com/mcoot/guessgame/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthClient      *authclient.Service
	AgentFactory    *agent.Factory
	Sessions        *session.Registry
	IdentityManager *identity.Manager
	GameController  *game.Controller
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig configures the identity provider client
	// Zero fields fall back to authclient.DefaultConfig()
	AuthConfig authclient.Config
	// AgentConfig locates the game service (optional)
	// If Host is empty, defaults to agent.DefaultConfig()
	AgentConfig agent.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	agentCfg := cfg.AgentConfig
	if agentCfg.Host == "" {
		defaults := agent.DefaultConfig()
		defaults.CanisterID = agentCfg.CanisterID
		agentCfg = defaults
	}

	return newWithDependencies(store, clock.New(), random.New(), cfg.AuthConfig, agentCfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, authCfg authclient.Config, agentCfg agent.Config, logger *slog.Logger) *App {
	authClient := authclient.New(store, clk, rnd, authCfg, logger)
	agentFactory := agent.NewFactory(agentCfg, logger)
	sessions := session.NewRegistry(clk)
	identityManager := identity.NewManager(authClient, sessions, identity.AgentProxies(agentFactory), logger)
	gameController := game.NewController(sessions, logger)

	return &App{
		Storage:         store,
		Clock:           clk,
		Random:          rnd,
		AuthClient:      authClient,
		AgentFactory:    agentFactory,
		Sessions:        sessions,
		IdentityManager: identityManager,
		GameController:  gameController,
	}
}

// Close releases storage connections
func (a *App) Close() error {
	if c, ok := a.Storage.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
