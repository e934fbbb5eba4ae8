// Package config loads process configuration from the environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/mcoot/guessgame/internal/agent"
	"github.com/mcoot/guessgame/internal/authclient"
	"github.com/mcoot/guessgame/internal/factory"
	"github.com/mcoot/guessgame/internal/identity"
	redisstorage "github.com/mcoot/guessgame/internal/storage/redis"
)

// Config is the full process configuration
type Config struct {
	// HTTP server
	Host          string        `env:"GUESSGAME_HOST"`
	Port          int           `env:"GUESSGAME_PORT" envDefault:"8080"`
	PublicURL     string        `env:"GUESSGAME_PUBLIC_URL"` // defaults to http://localhost:<Port>
	SecureCookies bool          `env:"GUESSGAME_SECURE_COOKIES"`
	SessionIdle   time.Duration `env:"GUESSGAME_SESSION_IDLE" envDefault:"8h"`

	// Game service
	Network     string        `env:"GUESSGAME_NETWORK" envDefault:"local"`
	ReplicaHost string        `env:"GUESSGAME_REPLICA_HOST" envDefault:"http://127.0.0.1:4943"`
	CanisterID  string        `env:"GUESSGAME_CANISTER_ID"`
	RootKey     string        `env:"GUESSGAME_ROOT_KEY"`
	CallTimeout time.Duration `env:"GUESSGAME_CALL_TIMEOUT" envDefault:"30s"`

	// Identity provider
	IdentityProvider string        `env:"GUESSGAME_IDENTITY_PROVIDER" envDefault:"https://identity.ic0.app"`
	AuthURL          string        `env:"GUESSGAME_AUTH_URL"`
	TokenURL         string        `env:"GUESSGAME_TOKEN_URL"`
	ClientID         string        `env:"GUESSGAME_CLIENT_ID" envDefault:"guessgame"`
	ClientSecret     string        `env:"GUESSGAME_CLIENT_SECRET"`
	Scopes           []string      `env:"GUESSGAME_SCOPES" envSeparator:"," envDefault:"openid"`
	MaxTimeToLive    time.Duration `env:"GUESSGAME_MAX_TIME_TO_LIVE" envDefault:"8h"`

	// Storage
	StorageType string `env:"STORAGE_TYPE" envDefault:"memory"`
	RedisURL    string `env:"REDIS_URL"`
	SealKey     string `env:"GUESSGAME_SEAL_KEY"`

	// Observability
	LogLevel     string `env:"GUESSGAME_LOG_LEVEL" envDefault:"info"`
	OTelEndpoint string `env:"GUESSGAME_OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"GUESSGAME_OTEL_ENABLED" envDefault:"true"`
}

// Load reads optional .env files then parses the environment.
// Missing env files are ignored; variables already set take precedence.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks settings that cannot be defaulted
func (c Config) Validate() error {
	var errs []error
	if c.CanisterID == "" {
		errs = append(errs, errors.New("GUESSGAME_CANISTER_ID required"))
	}
	switch c.StorageType {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL required when STORAGE_TYPE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid STORAGE_TYPE %q: must be 'memory' or 'redis'", c.StorageType))
	}
	if c.Network == agent.ProductionNetwork && c.RootKey == "" {
		errs = append(errs, fmt.Errorf("GUESSGAME_ROOT_KEY required when GUESSGAME_NETWORK=%s", agent.ProductionNetwork))
	}
	if c.RootKey != "" {
		if _, err := agent.ParseRootKey(c.RootKey); err != nil {
			errs = append(errs, fmt.Errorf("GUESSGAME_ROOT_KEY: %w", err))
		}
	}
	if _, err := c.sealKey(); err != nil {
		errs = append(errs, fmt.Errorf("GUESSGAME_SEAL_KEY: %w", err))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedirectURL is where the identity provider sends the browser back to
func (c Config) RedirectURL() string {
	base := c.PublicURL
	if base == "" {
		base = fmt.Sprintf("http://localhost:%d", c.Port)
	}
	return strings.TrimSuffix(base, "/") + identity.CallbackPath
}

// Auth returns the identity provider client configuration
func (c Config) Auth() authclient.Config {
	cfg := authclient.DefaultConfig()
	cfg.IdentityProvider = c.IdentityProvider
	cfg.AuthURL = c.AuthURL
	cfg.TokenURL = c.TokenURL
	cfg.ClientID = c.ClientID
	cfg.ClientSecret = c.ClientSecret
	cfg.RedirectURL = c.RedirectURL()
	if len(c.Scopes) > 0 {
		cfg.Scopes = c.Scopes
	}
	if c.MaxTimeToLive > 0 {
		cfg.MaxTimeToLive = c.MaxTimeToLive
	}
	return cfg
}

// Agent returns the game service configuration
func (c Config) Agent() (agent.Config, error) {
	cfg := agent.DefaultConfig()
	cfg.Host = c.ReplicaHost
	cfg.Network = c.Network
	cfg.CanisterID = c.CanisterID
	if c.CallTimeout > 0 {
		cfg.CallTimeout = c.CallTimeout
	}
	if c.RootKey != "" {
		key, err := agent.ParseRootKey(c.RootKey)
		if err != nil {
			return agent.Config{}, err
		}
		cfg.RootKey = key
	}
	return cfg, nil
}

// Factory returns the application factory configuration
func (c Config) Factory(logger *slog.Logger) (factory.Config, error) {
	agentCfg, err := c.Agent()
	if err != nil {
		return factory.Config{}, err
	}

	cfg := factory.Config{
		AuthConfig:  c.Auth(),
		AgentConfig: agentCfg,
		Logger:      logger,
		StorageType: c.StorageType,
	}

	if c.StorageType == factory.StorageTypeRedis {
		key, err := c.sealKey()
		if err != nil {
			return factory.Config{}, err
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		if c.MaxTimeToLive > 0 {
			redisCfg.DelegationTTL = c.MaxTimeToLive
		}
		redisCfg.SealKey = key
		cfg.RedisConfig = &redisCfg
	}
	return cfg, nil
}

// Logger builds the JSON process logger at the configured level
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func (c Config) sealKey() (*[32]byte, error) {
	if c.SealKey == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(c.SealKey)
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("must be 32 bytes, got %d", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid GUESSGAME_LOG_LEVEL %q", s)
	}
	return level, nil
}
