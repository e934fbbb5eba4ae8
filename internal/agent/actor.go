package agent

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mcoot/guessgame/internal/model"
)

// Game service methods
const (
	MethodStartGame = "startGame"
	MethodGuess     = "guess"
)

// Actor is the Service Proxy: an agent bound to the game canister
type Actor struct {
	agent      *HTTPAgent
	canisterID string
}

// NewActor binds agent to canisterID
// The agent must already trust a root key
func NewActor(agent *HTTPAgent, canisterID string) (*Actor, error) {
	if agent == nil {
		return nil, model.ErrNotAuthenticated
	}
	if canisterID == "" {
		return nil, fmt.Errorf("canister id is required")
	}
	if !agent.HasRootKey() {
		return nil, model.ErrRootKeyUnavailable
	}
	return &Actor{agent: agent, canisterID: canisterID}, nil
}

// CanisterID returns the canister the actor calls
func (a *Actor) CanisterID() string {
	return a.canisterID
}

// Principal returns the identity the actor calls as
func (a *Actor) Principal() model.Principal {
	return a.agent.Principal()
}

// StartGame asks the service to begin a new game
func (a *Actor) StartGame(ctx context.Context) (model.Result, error) {
	reply, err := a.agent.Call(ctx, a.canisterID, CallRequest{Method: MethodStartGame})
	if err != nil {
		return model.Result{}, err
	}
	return model.ClassifyReply(reply), nil
}

// Guess submits a guess and returns the service's verdict
func (a *Actor) Guess(ctx context.Context, n float64) (model.Result, error) {
	reply, err := a.agent.Call(ctx, a.canisterID, CallRequest{Method: MethodGuess, Arg: &n})
	if err != nil {
		return model.Result{}, err
	}
	return model.ClassifyReply(reply), nil
}

// Factory builds actors for authenticated identities
type Factory struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFactory creates a Factory
func NewFactory(cfg Config, logger *slog.Logger) *Factory {
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = DefaultConfig().CallTimeout
	}
	return &Factory{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.CallTimeout},
		logger:     logger,
	}
}

// WithHTTPClient replaces the client used for replica requests
func (f *Factory) WithHTTPClient(c *http.Client) *Factory {
	f.httpClient = c
	return f
}

// Build constructs the actor for identity
// Off the production network the replica's root key is fetched first
func (f *Factory) Build(ctx context.Context, identity model.Identity) (*Actor, error) {
	agent, err := NewHTTPAgent(identity, f.cfg.Host, f.httpClient)
	if err != nil {
		return nil, err
	}

	if f.cfg.IsProduction() {
		if len(f.cfg.RootKey) == 0 {
			return nil, fmt.Errorf("%w: no root key configured for network %q", model.ErrRootKeyUnavailable, f.cfg.Network)
		}
		agent.SetRootKey(f.cfg.RootKey)
	} else {
		if err := agent.FetchRootKey(ctx); err != nil {
			f.logger.Error("failed to fetch root key",
				slog.String("host", f.cfg.Host),
				slog.String("network", f.cfg.Network),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
	}

	return NewActor(agent, f.cfg.CanisterID)
}
