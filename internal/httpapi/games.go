package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gamevault/internal/domain/models"
	"gamevault/internal/services/games"
)

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	platform := r.URL.Query().Get("platform")

	list, err := s.games.List(r.Context(), platform)
	if err != nil {
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}

	game, err := s.games.Get(r.Context(), gameID)
	if err != nil {
		if errors.Is(err, games.ErrGameNotFound) {
			writeNotFound(w, "game not found")
			return
		}
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var game models.Game
	if err := json.NewDecoder(r.Body).Decode(&game); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	id, err := s.games.Create(r.Context(), game)
	if err != nil {
		var validationErr *games.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeValidationError(w, validationErr.Field, validationErr.Reason)
		case errors.Is(err, games.ErrGameExists):
			writeConflict(w, "game already exists")
		default:
			writeInternalError(w)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleUpdateGame(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}

	var upd models.GameUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.games.Update(r.Context(), gameID, upd); err != nil {
		var validationErr *games.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeValidationError(w, validationErr.Field, validationErr.Reason)
		case errors.Is(err, games.ErrGameNotFound):
			writeConflict(w, "game no longer exists")
		default:
			writeInternalError(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "game updated"})
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}

	if err := s.games.Delete(r.Context(), gameID); err != nil {
		if errors.Is(err, games.ErrGameNotFound) {
			writeNotFound(w, "game not found")
			return
		}
		writeInternalError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requireAdmin enforces the role check for catalog mutations.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "missing identity")
		return false
	}
	if identity.Role != models.RoleAdmin {
		writeForbidden(w, "admin role required")
		return false
	}
	return true
}

func gameIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "gameID"), 10, 64)
	if err != nil {
		writeBadRequest(w, "game id must be an integer")
		return 0, false
	}
	return id, true
}
