package suite

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gamevault/internal/domain/models"
	"gamevault/internal/httpapi"
	"gamevault/internal/lib/jwt"
	"gamevault/internal/lib/password"
	"gamevault/internal/services/auth"
	"gamevault/internal/services/games"
	"gamevault/internal/services/users"
	"gamevault/internal/storage/memory"
)

const (
	Secret     = "test-secret"
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
)

// Suite spins up the full HTTP stack over in-memory storage. Each test
// gets its own server and store.
type Suite struct {
	*testing.T
	Server  *httptest.Server
	Storage *memory.Storage
	Tokens  *jwt.Manager
}

func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()
	t.Parallel()

	store := memory.New()
	tokens := jwt.NewManager(Secret, AccessTTL, RefreshTTL)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	api := httpapi.New(
		logger,
		auth.New(logger, store, store, store, tokens),
		users.New(logger, store),
		games.New(logger, store),
		tokens,
	)

	srv := httptest.NewServer(api.Handler())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return ctx, &Suite{
		T:       t,
		Server:  srv,
		Storage: store,
		Tokens:  tokens,
	}
}

// Post sends a JSON body and returns the response with its decoded
// body bytes.
func (s *Suite) Post(ctx context.Context, path, token string, body any) (*http.Response, []byte) {
	s.Helper()
	return s.request(ctx, http.MethodPost, path, token, body)
}

func (s *Suite) Get(ctx context.Context, path, token string) (*http.Response, []byte) {
	s.Helper()
	return s.request(ctx, http.MethodGet, path, token, nil)
}

func (s *Suite) request(ctx context.Context, method, path, token string, body any) (*http.Response, []byte) {
	s.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			s.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.Server.URL+path, reader)
	if err != nil {
		s.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Server.Client().Do(req)
	if err != nil {
		s.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		s.Fatalf("failed to read response body: %v", err)
	}
	return resp, data
}

// SeedAdmin creates an admin account directly in the store, bypassing
// the register endpoint which only grants the user role.
func (s *Suite) SeedAdmin(ctx context.Context, email, pass string) int64 {
	s.Helper()

	hash, err := password.Hash(pass)
	if err != nil {
		s.Fatalf("failed to hash password: %v", err)
	}

	id, err := s.Storage.SaveUser(ctx, "admin-"+email, email, hash, models.RoleAdmin)
	if err != nil {
		s.Fatalf("failed to seed admin: %v", err)
	}
	return id
}
