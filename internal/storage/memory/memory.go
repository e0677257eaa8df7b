package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"gamevault/internal/domain/models"
	"gamevault/internal/storage"
)

// Storage is an in-memory credential and catalog store for tests and
// local development. All state lives in maps keyed by id behind one
// mutex; every operation is a single critical section.
type Storage struct {
	mu         sync.RWMutex
	users      map[int64]*models.User
	games      map[int64]*models.Game
	nextUserID int64
	nextGameID int64
}

func New() *Storage {
	return &Storage{
		users: make(map[int64]*models.User),
		games: make(map[int64]*models.Game),
	}
}

func (s *Storage) SaveUser(
	ctx context.Context,
	username string,
	email string,
	passHash []byte,
	role models.Role,
) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email || u.Username == username {
			return 0, storage.ErrUserExists
		}
	}

	s.nextUserID++
	now := time.Now()
	user := &models.User{
		ID:        s.nextUserID,
		Username:  username,
		Email:     email,
		PassHash:  append([]byte(nil), passHash...),
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[user.ID] = user

	return user.ID, nil
}

func (s *Storage) UserByID(ctx context.Context, userID int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, storage.ErrUserNotFound
}

// UserByRefreshDigest matches active accounts only; a deactivated
// account's refresh token is dead even if its digest is still stored.
func (s *Storage) UserByRefreshDigest(ctx context.Context, digest string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.IsActive && u.RefreshTokenHash != nil && *u.RefreshTokenHash == digest {
			return cloneUser(u), nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (s *Storage) Users(ctx context.Context) ([]models.PublicUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.PublicUser, 0, len(s.users))
	for _, u := range s.users {
		if u.IsActive {
			list = append(list, u.Public())
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	return list, nil
}

func (s *Storage) UpdateRefreshDigest(ctx context.Context, userID int64, digest *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	if digest != nil {
		d := *digest
		user.RefreshTokenHash = &d
	} else {
		user.RefreshTokenHash = nil
	}
	user.UpdatedAt = time.Now()

	return nil
}

func (s *Storage) UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	user.LastLoginAt = &at
	user.UpdatedAt = time.Now()

	return nil
}

func (s *Storage) UpdateUser(ctx context.Context, userID int64, upd models.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}

	if upd.Username != nil {
		for id, u := range s.users {
			if id != userID && u.Username == *upd.Username {
				return storage.ErrUserExists
			}
		}
		user.Username = *upd.Username
	}
	if upd.Email != nil {
		for id, u := range s.users {
			if id != userID && u.Email == *upd.Email {
				return storage.ErrUserExists
			}
		}
		user.Email = *upd.Email
	}
	if upd.Role != nil {
		user.Role = *upd.Role
	}
	user.UpdatedAt = time.Now()

	return nil
}

func (s *Storage) DeleteUser(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	user.IsActive = false
	user.UpdatedAt = time.Now()

	return nil
}

func (s *Storage) SaveGame(ctx context.Context, game *models.Game) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.games {
		if g.Title == game.Title && g.Platform == game.Platform {
			return 0, storage.ErrGameExists
		}
	}

	s.nextGameID++
	now := time.Now()
	stored := *game
	stored.ID = s.nextGameID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.games[stored.ID] = &stored

	return stored.ID, nil
}

func (s *Storage) Game(ctx context.Context, gameID int64) (*models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	game, ok := s.games[gameID]
	if !ok {
		return nil, storage.ErrGameNotFound
	}
	g := *game
	return &g, nil
}

func (s *Storage) Games(ctx context.Context, platform string) ([]models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.Game, 0, len(s.games))
	for _, g := range s.games {
		if platform == "" || g.Platform == platform {
			list = append(list, *g)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	return list, nil
}

func (s *Storage) UpdateGame(ctx context.Context, gameID int64, upd models.GameUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.games[gameID]
	if !ok {
		return storage.ErrGameNotFound
	}

	if upd.Title != nil {
		game.Title = *upd.Title
	}
	if upd.Platform != nil {
		game.Platform = *upd.Platform
	}
	if upd.Price != nil {
		game.Price = *upd.Price
	}
	if upd.Rating != nil {
		game.Rating = *upd.Rating
	}
	if upd.Visits != nil {
		game.Visits = *upd.Visits
	}
	game.UpdatedAt = time.Now()

	return nil
}

func (s *Storage) DeleteGame(ctx context.Context, gameID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[gameID]; !ok {
		return storage.ErrGameNotFound
	}
	delete(s.games, gameID)

	return nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.PassHash = append([]byte(nil), u.PassHash...)
	if u.RefreshTokenHash != nil {
		d := *u.RefreshTokenHash
		c.RefreshTokenHash = &d
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}
