package web

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/guessgame/internal/dependencies/random"
	"github.com/mcoot/guessgame/internal/identity"
	"github.com/mcoot/guessgame/internal/services/game"
	"github.com/mcoot/guessgame/internal/web/handler"
	"github.com/mcoot/guessgame/internal/web/middleware"
)

// RouterConfig holds configuration for the web router
type RouterConfig struct {
	Logger          *slog.Logger
	IdentityManager *identity.Manager
	GameController  *game.Controller
	Random          random.Random
	Session         middleware.SessionOptions
	StaticDir       string // Path to static files directory
}

// NewRouter creates a new web router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)
	tracingMiddleware := middleware.Tracing()
	flashMiddleware := middleware.Flash()
	sessionMiddleware := middleware.BrowserSession(cfg.IdentityManager, cfg.Random, cfg.Session, cfg.Logger)
	authMiddleware := middleware.RequireAuth(cfg.IdentityManager)

	// Apply global middleware to all routes
	r.Use(tracingMiddleware)
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	// Create handlers
	homeHandler := handler.NewHomeHandler(cfg.IdentityManager)
	authHandler := handler.NewAuthHandler(cfg.IdentityManager, cfg.Logger)
	gameHandler := handler.NewGameHandler(cfg.GameController, cfg.Logger)

	r.HandleFunc("/healthz", homeHandler.Health).Methods(http.MethodGet)

	// Static files
	if cfg.StaticDir != "" {
		staticHandler := http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir)))
		r.PathPrefix("/static/").Handler(staticHandler)
	}

	// Routes stay on the top-level router: a sibling subrouter turns a
	// method mismatch into 404.
	page := func(h http.HandlerFunc) http.Handler {
		return flashMiddleware(sessionMiddleware(h))
	}
	protected := func(h http.HandlerFunc) http.Handler {
		return page(authMiddleware(h).ServeHTTP)
	}

	// Pages and auth actions
	r.Handle("/", page(homeHandler.Home)).Methods(http.MethodGet)
	r.Handle("/auth/login", page(authHandler.Login)).Methods(http.MethodPost)
	r.Handle(identity.CallbackPath, page(authHandler.Callback)).Methods(http.MethodGet)
	r.Handle("/auth/logout", page(authHandler.Logout)).Methods(http.MethodPost)

	// Game actions (require auth)
	r.Handle("/game/start", protected(gameHandler.Start)).Methods(http.MethodPost)
	r.Handle("/game/guess", protected(gameHandler.Guess)).Methods(http.MethodPost)

	return r
}
