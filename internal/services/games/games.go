package games

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gamevault/internal/domain/models"
	"gamevault/internal/lib/sl"
	"gamevault/internal/storage"
)

// Games manages the video-game catalog.
type Games struct {
	logger *slog.Logger
	store  GameStore
}

type GameStore interface {
	SaveGame(ctx context.Context, game *models.Game) (int64, error)
	Game(ctx context.Context, gameID int64) (*models.Game, error)
	// Games lists the catalog; a non-empty platform restricts the result.
	Games(ctx context.Context, platform string) ([]models.Game, error)
	UpdateGame(ctx context.Context, gameID int64, upd models.GameUpdate) error
	DeleteGame(ctx context.Context, gameID int64) error
}

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameExists   = errors.New("game already exists")
)

// ValidationError reports malformed input before the store is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

const maxRating = 10

func New(logger *slog.Logger, store GameStore) *Games {
	return &Games{logger: logger, store: store}
}

// Create adds a catalog entry.
func (g *Games) Create(ctx context.Context, game models.Game) (int64, error) {
	const op = "games.Create"
	log := g.logger.With(slog.String("op", op), slog.String("title", game.Title))

	if err := validateGame(game); err != nil {
		log.Warn("game rejected", sl.Err(err))
		return 0, err
	}

	id, err := g.store.SaveGame(ctx, &game)
	if err != nil {
		if errors.Is(err, storage.ErrGameExists) {
			log.Warn("game already exists")
			return 0, fmt.Errorf("%s: %w", op, ErrGameExists)
		}
		log.Error("failed to save game", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("game created", slog.Int64("gameID", id))

	return id, nil
}

// Get returns one catalog entry.
func (g *Games) Get(ctx context.Context, gameID int64) (*models.Game, error) {
	const op = "games.Get"

	game, err := g.store.Game(ctx, gameID)
	if err != nil {
		if errors.Is(err, storage.ErrGameNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrGameNotFound)
		}
		g.logger.Error("failed to get game", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return game, nil
}

// List returns the catalog, optionally filtered by platform.
func (g *Games) List(ctx context.Context, platform string) ([]models.Game, error) {
	const op = "games.List"

	list, err := g.store.Games(ctx, platform)
	if err != nil {
		g.logger.Error("failed to list games", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Update applies a partial update to a catalog entry.
func (g *Games) Update(ctx context.Context, gameID int64, upd models.GameUpdate) error {
	const op = "games.Update"
	log := g.logger.With(slog.String("op", op), slog.Int64("gameID", gameID))

	if err := validateUpdate(upd); err != nil {
		log.Warn("update rejected", sl.Err(err))
		return err
	}

	if err := g.store.UpdateGame(ctx, gameID, upd); err != nil {
		if errors.Is(err, storage.ErrGameNotFound) {
			return fmt.Errorf("%s: %w", op, ErrGameNotFound)
		}
		log.Error("failed to update game", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("game updated")

	return nil
}

// Delete removes a catalog entry.
func (g *Games) Delete(ctx context.Context, gameID int64) error {
	const op = "games.Delete"
	log := g.logger.With(slog.String("op", op), slog.Int64("gameID", gameID))

	if err := g.store.DeleteGame(ctx, gameID); err != nil {
		if errors.Is(err, storage.ErrGameNotFound) {
			return fmt.Errorf("%s: %w", op, ErrGameNotFound)
		}
		log.Error("failed to delete game", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("game deleted")

	return nil
}

func validateGame(game models.Game) error {
	if strings.TrimSpace(game.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be blank"}
	}
	if game.Price < 0 {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if game.Rating < 0 || game.Rating > maxRating {
		return &ValidationError{Field: "rating", Reason: "must be between 0 and 10"}
	}
	if game.Visits < 0 {
		return &ValidationError{Field: "visits", Reason: "must not be negative"}
	}
	return nil
}

func validateUpdate(upd models.GameUpdate) error {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be blank"}
	}
	if upd.Price != nil && *upd.Price < 0 {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if upd.Rating != nil && (*upd.Rating < 0 || *upd.Rating > maxRating) {
		return &ValidationError{Field: "rating", Reason: "must be between 0 and 10"}
	}
	if upd.Visits != nil && *upd.Visits < 0 {
		return &ValidationError{Field: "visits", Reason: "must not be negative"}
	}
	return nil
}
