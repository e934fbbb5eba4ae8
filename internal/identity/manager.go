// Package identity manages authentication state for browser sessions.
package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/guessgame/internal/agent"
	"github.com/mcoot/guessgame/internal/authclient"
	"github.com/mcoot/guessgame/internal/model"
	"github.com/mcoot/guessgame/internal/session"
)

// ProxyFactory builds the game service proxy for an authenticated identity
type ProxyFactory func(ctx context.Context, identity model.Identity) (session.Proxy, error)

// AgentProxies builds proxies with an agent.Factory
func AgentProxies(f *agent.Factory) ProxyFactory {
	return func(ctx context.Context, identity model.Identity) (session.Proxy, error) {
		actor, err := f.Build(ctx, identity)
		if err != nil {
			return nil, err
		}
		return actor, nil
	}
}

// Manager drives the authentication lifecycle of browser sessions
type Manager struct {
	auth     *authclient.Service
	registry *session.Registry
	proxies  ProxyFactory
	logger   *slog.Logger
}

// NewManager creates a Manager
func NewManager(auth *authclient.Service, registry *session.Registry, proxies ProxyFactory, logger *slog.Logger) *Manager {
	return &Manager{
		auth:     auth,
		registry: registry,
		proxies:  proxies,
		logger:   logger,
	}
}

// Initialize prepares the state of sid on first use.
// An existing delegation is activated silently; otherwise the session starts unauthenticated.
func (m *Manager) Initialize(ctx context.Context, sid model.SessionID) (session.State, error) {
	return m.registry.Ensure(sid, func() (session.State, error) {
		client := m.auth.Create(sid)

		ok, err := client.IsAuthenticated(ctx)
		if err != nil || !ok {
			return session.Initial(), err
		}
		identity, err := client.GetIdentity(ctx)
		if err != nil {
			return session.Initial(), err
		}

		m.logger.Info("restoring authenticated session",
			slog.String("session_id", string(sid)),
			slog.String("principal", string(identity.Principal)),
		)
		return m.activate(ctx, client, identity)
	})
}

// BeginLogin starts a login with the identity provider and returns where to send the user
func (m *Manager) BeginLogin(ctx context.Context, sid model.SessionID) (string, error) {
	authURL, err := m.auth.Create(sid).LoginURL(ctx)
	if err != nil {
		m.logger.Error("failed to start login",
			slog.String("session_id", string(sid)),
			slog.String("error", err.Error()),
		)
		return "", err
	}
	return authURL, nil
}

// CompleteLogin resolves a login from the provider's callback and activates the session.
// On failure the session is left as it was.
func (m *Manager) CompleteLogin(ctx context.Context, sid model.SessionID, cb authclient.Callback) (session.State, error) {
	identity, err := m.auth.Create(sid).HandleCallback(ctx, cb)
	if err != nil {
		m.logger.Warn("login failed",
			slog.String("session_id", string(sid)),
			slog.String("error", err.Error()),
		)
		return m.registry.Get(sid), err
	}
	return m.Activate(ctx, sid, identity)
}

// Activate binds a service proxy to identity and marks the session authenticated.
// If the proxy cannot be built the delegation is dropped and the session is reset.
func (m *Manager) Activate(ctx context.Context, sid model.SessionID, identity model.Identity) (session.State, error) {
	var activateErr error
	st, _ := m.registry.Update(sid, func(session.State) (session.State, error) {
		next, err := m.activate(ctx, m.auth.Create(sid), identity)
		activateErr = err
		return next, nil
	})
	return st, activateErr
}

func (m *Manager) activate(ctx context.Context, client *authclient.Client, identity model.Identity) (session.State, error) {
	proxy, err := m.proxies(ctx, identity)
	if err != nil {
		m.logger.Error("failed to connect to game service",
			slog.String("session_id", string(client.SessionID())),
			slog.String("principal", string(identity.Principal)),
			slog.String("error", err.Error()),
		)
		if logoutErr := client.Logout(ctx); logoutErr != nil {
			m.logger.Error("failed to clear delegation",
				slog.String("session_id", string(client.SessionID())),
				slog.String("error", logoutErr.Error()),
			)
		}
		return session.Initial(), fmt.Errorf("connect to game service: %w", err)
	}

	m.logger.Info("session authenticated",
		slog.String("session_id", string(client.SessionID())),
		slog.String("principal", string(identity.Principal)),
	)
	return session.Authenticated(identity, proxy), nil
}

// Logout clears the delegation and resets the session.
// The session is reset even if the delegation could not be cleared.
func (m *Manager) Logout(ctx context.Context, sid model.SessionID) (session.State, error) {
	err := m.auth.Create(sid).Logout(ctx)
	if err != nil {
		m.logger.Error("failed to clear delegation",
			slog.String("session_id", string(sid)),
			slog.String("error", err.Error()),
		)
		err = fmt.Errorf("logout: %w", err)
	}

	m.registry.Set(sid, session.Initial())
	m.logger.Info("session logged out", slog.String("session_id", string(sid)))
	return session.Initial(), err
}

// State returns the current state of sid
func (m *Manager) State(sid model.SessionID) session.State {
	return m.registry.Get(sid)
}
