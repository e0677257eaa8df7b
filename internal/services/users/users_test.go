package users_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamevault/internal/domain/models"
	"gamevault/internal/services/users"
	"gamevault/internal/storage/memory"
)

func newTestUsers(t *testing.T) (*users.Users, *memory.Storage) {
	t.Helper()
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return users.New(logger, store), store
}

func seedUser(t *testing.T, store *memory.Storage, role models.Role) int64 {
	t.Helper()
	id, err := store.SaveUser(
		context.Background(),
		gofakeit.Username(),
		gofakeit.Email(),
		[]byte("hash"),
		role,
	)
	require.NoError(t, err)
	return id
}

func TestListSkipsDeactivated(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestUsers(t)

	id1 := seedUser(t, store, models.RoleUser)
	id2 := seedUser(t, store, models.RoleAdmin)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, svc.Deactivate(ctx, id1))

	list, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id2, list[0].ID)
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestUsers(t)

	id := seedUser(t, store, models.RoleUser)

	user, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, models.RoleUser, user.Role)

	_, err = svc.Get(ctx, 99999)
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestUsers(t)

	id := seedUser(t, store, models.RoleUser)

	newName := "renamed"
	admin := models.RoleAdmin
	require.NoError(t, svc.Update(ctx, id, models.UserUpdate{Username: &newName, Role: &admin}))

	user, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "renamed", user.Username)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestUpdate_FailCases(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestUsers(t)

	id := seedUser(t, store, models.RoleUser)

	blank := "  "
	badEmail := "nope"
	badRole := models.Role("superuser")

	tests := []struct {
		name      string
		upd       models.UserUpdate
		wantField string
	}{
		{name: "blank username", upd: models.UserUpdate{Username: &blank}, wantField: "username"},
		{name: "malformed email", upd: models.UserUpdate{Email: &badEmail}, wantField: "email"},
		{name: "unknown role", upd: models.UserUpdate{Role: &badRole}, wantField: "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Update(ctx, id, tt.upd)
			require.Error(t, err)

			var verr *users.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestUpdateConflicts(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestUsers(t)

	id1 := seedUser(t, store, models.RoleUser)
	id2 := seedUser(t, store, models.RoleUser)

	other, err := svc.Get(ctx, id2)
	require.NoError(t, err)

	err = svc.Update(ctx, id1, models.UserUpdate{Username: &other.Username})
	assert.ErrorIs(t, err, users.ErrUserExists)

	name := "fresh-name"
	err = svc.Update(ctx, 99999, models.UserUpdate{Username: &name})
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestUsers(t)

	id := seedUser(t, store, models.RoleUser)

	require.NoError(t, svc.Deactivate(ctx, id))

	// Soft delete keeps the row readable.
	user, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, user.IsActive)

	assert.ErrorIs(t, svc.Deactivate(ctx, 99999), users.ErrUserNotFound)
}
