package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"gamevault/internal/domain/models"
	"gamevault/internal/services/auth"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	User         models.PublicUser `json:"user"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	session, err := s.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		var validationErr *auth.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeValidationError(w, validationErr.Field, validationErr.Reason)
		case errors.Is(err, auth.ErrUserAlreadyExists):
			writeConflict(w, "username or email already taken")
		default:
			writeInternalError(w)
		}
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		User:         session.User,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" {
		writeValidationError(w, "email", "must not be blank")
		return
	}
	if req.Password == "" {
		writeValidationError(w, "password", "must not be blank")
		return
	}

	session, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// One message for every credential failure; no account
		// enumeration through the response.
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeUnauthorized(w, "invalid email or password")
			return
		}
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		User:         session.User,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeValidationError(w, "refresh_token", "must not be blank")
		return
	}

	accessToken, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			writeUnauthorized(w, "invalid refresh token")
			return
		}
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: accessToken})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "missing identity")
		return
	}

	if err := s.auth.Logout(r.Context(), identity.UserID); err != nil {
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "missing identity")
		return
	}

	user, err := s.auth.CurrentUser(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
