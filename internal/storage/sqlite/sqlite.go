package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"gamevault/internal/domain/models"
	"gamevault/internal/storage"
)

const userColumns = `id, username, email, password_hash, role, is_active,
	refresh_token_hash, created_at, updated_at, last_login_at`

type Storage struct {
	db *sql.DB
}

// New opens the SQLite database at storagePath. The schema is managed
// by cmd/migrator.
func New(storagePath string) (*Storage, error) {
	const op = "storage.sqlite.New"

	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{db: db}, nil
}

// DB exposes the underlying handle for migrations in tests.
func (s *Storage) DB() *sql.DB {
	return s.db
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) SaveUser(
	ctx context.Context,
	username string,
	email string,
	passHash []byte,
	role models.Role,
) (int64, error) {
	const op = "storage.sqlite.SaveUser"

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role) VALUES (?, ?, ?, ?)",
		username, email, passHash, string(role),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return result.LastInsertId()
}

func (s *Storage) UserByID(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.sqlite.UserByID"
	return s.user(ctx, op, "SELECT "+userColumns+" FROM users WHERE id = ?", userID)
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.sqlite.UserByEmail"
	return s.user(ctx, op, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.sqlite.UserByUsername"
	return s.user(ctx, op, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
}

// UserByRefreshDigest matches active accounts only.
func (s *Storage) UserByRefreshDigest(ctx context.Context, digest string) (*models.User, error) {
	const op = "storage.sqlite.UserByRefreshDigest"
	return s.user(ctx, op,
		"SELECT "+userColumns+" FROM users WHERE refresh_token_hash = ? AND is_active = 1", digest)
}

func (s *Storage) Users(ctx context.Context) ([]models.PublicUser, error) {
	const op = "storage.sqlite.Users"

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE is_active = 1 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	list := []models.PublicUser{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		list = append(list, user.Public())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *Storage) UpdateRefreshDigest(ctx context.Context, userID int64, digest *string) error {
	const op = "storage.sqlite.UpdateRefreshDigest"

	var value any
	if digest != nil {
		value = *digest
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		value, userID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireRow(op, result, storage.ErrUserNotFound)
}

func (s *Storage) UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error {
	const op = "storage.sqlite.UpdateLastLogin"

	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET last_login_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		at.UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireRow(op, result, storage.ErrUserNotFound)
}

func (s *Storage) UpdateUser(ctx context.Context, userID int64, upd models.UserUpdate) error {
	const op = "storage.sqlite.UpdateUser"

	set := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []any{}
	if upd.Username != nil {
		set = append(set, "username = ?")
		args = append(args, *upd.Username)
	}
	if upd.Email != nil {
		set = append(set, "email = ?")
		args = append(args, *upd.Email)
	}
	if upd.Role != nil {
		set = append(set, "role = ?")
		args = append(args, string(*upd.Role))
	}
	args = append(args, userID)

	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireRow(op, result, storage.ErrUserNotFound)
}

// DeleteUser soft-deletes: the row stays, flagged inactive.
func (s *Storage) DeleteUser(ctx context.Context, userID int64) error {
	const op = "storage.sqlite.DeleteUser"

	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?", userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireRow(op, result, storage.ErrUserNotFound)
}

func (s *Storage) SaveGame(ctx context.Context, game *models.Game) (int64, error) {
	const op = "storage.sqlite.SaveGame"

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO games (title, platform, price, rating, visits) VALUES (?, ?, ?, ?, ?)",
		game.Title, game.Platform, game.Price, game.Rating, game.Visits,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrGameExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return result.LastInsertId()
}

func (s *Storage) Game(ctx context.Context, gameID int64) (*models.Game, error) {
	const op = "storage.sqlite.Game"

	row := s.db.QueryRowContext(ctx,
		"SELECT id, title, platform, price, rating, visits, created_at, updated_at FROM games WHERE id = ?",
		gameID,
	)
	game, err := scanGame(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrGameNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return game, nil
}

func (s *Storage) Games(ctx context.Context, platform string) ([]models.Game, error) {
	const op = "storage.sqlite.Games"

	query := "SELECT id, title, platform, price, rating, visits, created_at, updated_at FROM games"
	args := []any{}
	if platform != "" {
		query += " WHERE platform = ?"
		args = append(args, platform)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	list := []models.Game{}
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		list = append(list, *game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *Storage) UpdateGame(ctx context.Context, gameID int64, upd models.GameUpdate) error {
	const op = "storage.sqlite.UpdateGame"

	set := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []any{}
	if upd.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Platform != nil {
		set = append(set, "platform = ?")
		args = append(args, *upd.Platform)
	}
	if upd.Price != nil {
		set = append(set, "price = ?")
		args = append(args, *upd.Price)
	}
	if upd.Rating != nil {
		set = append(set, "rating = ?")
		args = append(args, *upd.Rating)
	}
	if upd.Visits != nil {
		set = append(set, "visits = ?")
		args = append(args, *upd.Visits)
	}
	args = append(args, gameID)

	result, err := s.db.ExecContext(ctx,
		"UPDATE games SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireRow(op, result, storage.ErrGameNotFound)
}

func (s *Storage) DeleteGame(ctx context.Context, gameID int64) error {
	const op = "storage.sqlite.DeleteGame"

	result, err := s.db.ExecContext(ctx, "DELETE FROM games WHERE id = ?", gameID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireRow(op, result, storage.ErrGameNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Storage) user(ctx context.Context, op, query string, args ...any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user        models.User
		role        string
		refreshHash sql.NullString
		lastLogin   sql.NullTime
	)
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PassHash, &role,
		&user.IsActive, &refreshHash, &user.CreatedAt, &user.UpdatedAt, &lastLogin,
	)
	if err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	if refreshHash.Valid {
		user.RefreshTokenHash = &refreshHash.String
	}
	if lastLogin.Valid {
		user.LastLoginAt = &lastLogin.Time
	}
	return &user, nil
}

func scanGame(row rowScanner) (*models.Game, error) {
	var game models.Game
	err := row.Scan(
		&game.ID, &game.Title, &game.Platform, &game.Price,
		&game.Rating, &game.Visits, &game.CreatedAt, &game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func requireRow(op string, result sql.Result, missing error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, missing)
	}
	return nil
}
