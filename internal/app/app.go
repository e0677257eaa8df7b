package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	httpapp "gamevault/internal/app/http"
	"gamevault/internal/config"
	"gamevault/internal/httpapi"
	"gamevault/internal/lib/jwt"
	authservice "gamevault/internal/services/auth"
	gamesservice "gamevault/internal/services/games"
	usersservice "gamevault/internal/services/users"
	"gamevault/internal/storage/mongodb"
	"gamevault/internal/storage/sqlite"
)

const mongoConnectTimeout = 10 * time.Second

// Store is the full persistence surface the services need. Both the
// SQLite and the MongoDB backends satisfy it.
type Store interface {
	authservice.UserSaver
	authservice.UserProvider
	authservice.SessionUpdater
	usersservice.UserStore
	gamesservice.GameStore
}

type App struct {
	HTTPSrv *httpapp.App
}

// New wires the whole service: storage, token manager, services and
// the HTTP server. Everything is constructed here once and passed by
// reference; there are no package-level singletons.
func New(logger *slog.Logger, cfg *config.Config) *App {
	store, err := newStore(cfg)
	if err != nil {
		panic(err)
	}

	tokens := jwt.NewManager(cfg.Tokens.Secret, cfg.Tokens.AccessTTL, cfg.Tokens.RefreshTTL)

	authService := authservice.New(logger, store, store, store, tokens)
	usersService := usersservice.New(logger, store)
	gamesService := gamesservice.New(logger, store)

	api := httpapi.New(logger, authService, usersService, gamesService, tokens)
	httpApp := httpapp.New(logger, api.Handler(), cfg.HTTP.Port, cfg.HTTP.Timeout)

	return &App{
		HTTPSrv: httpApp,
	}
}

func newStore(cfg *config.Config) (Store, error) {
	switch cfg.Storage.Type {
	case "sqlite", "":
		return sqlite.New(cfg.Storage.Path)
	case "mongodb":
		ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
		defer cancel()
		return mongodb.New(ctx, cfg.Storage.Mongo.URI, cfg.Storage.Mongo.Database)
	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.Storage.Type)
	}
}
