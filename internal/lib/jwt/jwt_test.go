package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamevault/internal/domain/models"
)

const testSecret = "test-secret"

func newTestManager() *Manager {
	return NewManager(testSecret, 15*time.Minute, 7*24*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager()
	issued := time.Now()

	token, err := m.NewAccessToken(42, "gamer@example.com", models.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Verify(token, TypeAccess)
	require.NoError(t, err)

	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
	assert.Equal(t, "gamer@example.com", claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, TypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)

	const deltaSeconds = 2
	assert.InDelta(t, issued.Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix(), deltaSeconds)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := newTestManager()
	issued := time.Now()

	token, err := m.NewRefreshToken(7)
	require.NoError(t, err)

	claims, err := m.Verify(token, TypeRefresh)
	require.NoError(t, err)

	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), uid)
	assert.Empty(t, claims.Email)
	assert.Equal(t, TypeRefresh, claims.Type)

	const deltaSeconds = 2
	assert.InDelta(t, issued.Add(7*24*time.Hour).Unix(), claims.ExpiresAt.Unix(), deltaSeconds)
}

func TestVerifyRejectsWrongType(t *testing.T) {
	m := newTestManager()

	access, err := m.NewAccessToken(1, "gamer@example.com", models.RoleUser)
	require.NoError(t, err)
	refresh, err := m.NewRefreshToken(1)
	require.NoError(t, err)

	_, err = m.Verify(access, TypeRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify(refresh, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	m := newTestManager()
	other := NewManager("some-other-secret", 15*time.Minute, 7*24*time.Hour)

	token, err := m.NewAccessToken(1, "gamer@example.com", models.RoleUser)
	require.NoError(t, err)

	_, err = other.Verify(token, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewManager(testSecret, -time.Minute, -time.Minute)

	token, err := m.NewAccessToken(1, "gamer@example.com", models.RoleUser)
	require.NoError(t, err)

	_, err = m.Verify(token, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := newTestManager()

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := m.Verify(token, TypeAccess)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestVerifyRejectsUnsignedAlg(t *testing.T) {
	m := newTestManager()

	unsigned := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, Claims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Type: TypeAccess,
	})
	token, err := unsigned.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verify(token, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDigest(t *testing.T) {
	d1 := Digest("token-one")
	d2 := Digest("token-two")

	assert.Len(t, d1, 64)
	assert.NotEqual(t, d1, d2)
	assert.Equal(t, d1, Digest("token-one"))
}
