package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gamevault/internal/domain/models"
	"gamevault/internal/services/users"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.users.List(r.Context())
	if err != nil {
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	user, err := s.users.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser patches an account. A user may patch only their own
// account; admins may patch anyone. Role changes are admin-only.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "missing identity")
		return
	}

	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	if identity.Role != models.RoleAdmin && identity.UserID != userID {
		writeForbidden(w, "cannot modify another user's account")
		return
	}

	var upd models.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if upd.Role != nil && identity.Role != models.RoleAdmin {
		writeForbidden(w, "only admins may change roles")
		return
	}

	if err := s.users.Update(r.Context(), userID, upd); err != nil {
		var validationErr *users.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeValidationError(w, validationErr.Field, validationErr.Reason)
		case errors.Is(err, users.ErrUserNotFound):
			writeConflict(w, "user no longer exists")
		case errors.Is(err, users.ErrUserExists):
			writeConflict(w, "username or email already taken")
		default:
			writeInternalError(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "user updated"})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "missing identity")
		return
	}
	if identity.Role != models.RoleAdmin {
		writeForbidden(w, "only admins may delete users")
		return
	}

	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	if err := s.users.Deactivate(r.Context(), userID); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		writeInternalError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeBadRequest(w, "user id must be an integer")
		return 0, false
	}
	return id, true
}
