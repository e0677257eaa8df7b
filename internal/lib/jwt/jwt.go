package jwt

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"gamevault/internal/domain/models"
)

// Token type claims. Access tokens carry identity for request
// authorization; refresh tokens are exchanged for new access tokens.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrInvalidToken is returned for every verification failure: bad
// structure, bad signature, expiry, wrong type. Callers never learn
// which check failed.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the signed claim set for both token types.
type Claims struct {
	jwt.RegisteredClaims
	Email string      `json:"email,omitempty"`
	Role  models.Role `json:"role,omitempty"`
	Type  string      `json:"type"`
}

// UserID parses the subject claim as an account ID.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// Manager issues and verifies signed tokens. It is constructed once
// at process start and shared; the signing secret never leaves it.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// NewAccessToken creates a short-lived signed token carrying the
// account's identity and role.
func (m *Manager) NewAccessToken(userID int64, email string, role models.Role) (string, error) {
	return m.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.accessTTL)),
			ID:        uuid.NewString(),
		},
		Email: email,
		Role:  role,
		Type:  TypeAccess,
	})
}

// NewRefreshToken creates a long-lived signed token carrying only the
// subject. Role and email are re-fetched from the store on refresh so
// role changes take effect without waiting out the refresh TTL.
func (m *Manager) NewRefreshToken(userID int64) (string, error) {
	return m.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.refreshTTL)),
			ID:        uuid.NewString(),
		},
		Type: TypeRefresh,
	})
}

func (m *Manager) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and token type, returning the
// claims on success and ErrInvalidToken on any failure.
func (m *Manager) Verify(tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != wantType || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Digest computes the SHA-256 hex digest of a raw token. Stored
// refresh tokens are indexed by digest; the raw token is never
// persisted. The token already carries server-signed entropy and an
// expiry, so a fast unkeyed hash is sufficient here.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
