package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mcoot/guessgame/internal/authclient"
	"github.com/mcoot/guessgame/internal/model"
	"github.com/mcoot/guessgame/internal/session"
)

// CallbackPath is where the identity provider redirects back to
const CallbackPath = "/auth/callback"

const callbackPage = `<!DOCTYPE html><html><body><p>%s You can close this window.</p></body></html>`

// AwaitLogin performs a complete login as one blocking call.
// It serves the provider callback on ln, hands the login URL to open,
// and returns once the callback has been resolved or ctx is done.
func (m *Manager) AwaitLogin(ctx context.Context, sid model.SessionID, ln net.Listener, open func(authURL string) error) (session.State, error) {
	callbacks := make(chan authclient.Callback, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+CallbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		cb := authclient.Callback{
			State:            q.Get("state"),
			Code:             q.Get("code"),
			Error:            q.Get("error"),
			ErrorDescription: q.Get("error_description"),
		}

		select {
		case callbacks <- cb:
		default:
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if cb.Error != "" {
			_, _ = fmt.Fprintf(w, callbackPage, "Login was cancelled.")
			return
		}
		_, _ = fmt.Fprintf(w, callbackPage, "Login received.")
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("login callback server error", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL, err := m.BeginLogin(ctx, sid)
	if err != nil {
		return m.registry.Get(sid), err
	}
	if err := open(authURL); err != nil {
		return m.registry.Get(sid), fmt.Errorf("open login page: %w", err)
	}

	select {
	case <-ctx.Done():
		return m.registry.Get(sid), ctx.Err()
	case cb := <-callbacks:
		return m.CompleteLogin(ctx, sid, cb)
	}
}
