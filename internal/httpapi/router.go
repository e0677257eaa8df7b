// Package httpapi exposes the REST surface: auth endpoints, the
// video-game catalog, and user administration. Handlers stay thin;
// all invariants live in the services.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gamevault/internal/lib/jwt"
	"gamevault/internal/services/auth"
	"gamevault/internal/services/games"
	"gamevault/internal/services/users"
)

type Server struct {
	logger *slog.Logger
	auth   *auth.Auth
	users  *users.Users
	games  *games.Games
	tokens *jwt.Manager
}

func New(
	logger *slog.Logger,
	authService *auth.Auth,
	usersService *users.Users,
	gamesService *games.Games,
	tokens *jwt.Manager,
) *Server {
	return &Server{
		logger: logger,
		auth:   authService,
		users:  usersService,
		games:  gamesService,
		tokens: tokens,
	}
}

// Handler builds the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/health", s.handleHealth)

	// Auth endpoints, no token required
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/auth/logout", s.handleLogout)
		r.Get("/me", s.handleMe)

		r.Route("/api/games", func(r chi.Router) {
			r.Get("/", s.handleListGames)
			r.Post("/", s.handleCreateGame)

			r.Route("/{gameID}", func(r chi.Router) {
				r.Get("/", s.handleGetGame)
				r.Patch("/", s.handleUpdateGame)
				r.Delete("/", s.handleDeleteGame)
			})
		})

		r.Route("/api/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)

			r.Route("/{userID}", func(r chi.Router) {
				r.Get("/", s.handleGetUser)
				r.Patch("/", s.handleUpdateUser)
				r.Delete("/", s.handleDeleteUser)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
