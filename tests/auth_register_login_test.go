package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"gamevault/tests/suite"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passDefaultLen = 10

type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role"`
	} `json:"user"`
}

type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

func TestAuthRegisterLogin(t *testing.T) {
	ctx, st := suite.New(t)

	email := gofakeit.Email()
	pass := randomPassword()

	resp, body := st.Post(ctx, "/auth/register", "", map[string]string{
		"username": gofakeit.Username(),
		"email":    email,
		"password": pass,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var registered sessionResponse
	require.NoError(t, json.Unmarshal(body, &registered))
	assert.NotZero(t, registered.User.ID)
	assert.Equal(t, "user", registered.User.Role)

	resp, body = st.Post(ctx, "/auth/login", "", map[string]string{
		"email":    email,
		"password": pass,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	loginTime := time.Now()

	var session sessionResponse
	require.NoError(t, json.Unmarshal(body, &session))
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)

	tokenParsed, err := jwt.Parse(session.AccessToken, func(token *jwt.Token) (interface{}, error) {
		return []byte(suite.Secret), nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tokenParsed)

	claims, ok := tokenParsed.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, email, claims["email"].(string))
	assert.Equal(t, "user", claims["role"].(string))
	assert.Equal(t, "access", claims["type"].(string))

	const deltaSeconds = 2

	assert.InDelta(t, loginTime.Add(suite.AccessTTL).Unix(), claims["exp"].(float64), deltaSeconds)
}

func TestAuthRefreshAndLogout(t *testing.T) {
	ctx, st := suite.New(t)

	email := gofakeit.Email()
	pass := randomPassword()

	resp, body := st.Post(ctx, "/auth/register", "", map[string]string{
		"username": gofakeit.Username(),
		"email":    email,
		"password": pass,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session sessionResponse
	require.NoError(t, json.Unmarshal(body, &session))

	// Exchange the refresh token for a fresh access token.
	resp, body = st.Post(ctx, "/auth/refresh", "", map[string]string{
		"refresh_token": session.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var refreshed struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(body, &refreshed))
	require.NotEmpty(t, refreshed.AccessToken)

	// The new access token authenticates requests.
	resp, _ = st.Get(ctx, "/me", refreshed.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Logout revokes the stored refresh token.
	resp, _ = st.Post(ctx, "/auth/logout", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = st.Post(ctx, "/auth/refresh", "", map[string]string{
		"refresh_token": session.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var apiErr apiError
	require.NoError(t, json.Unmarshal(body, &apiErr))
	assert.Equal(t, "invalid refresh token", apiErr.Message)
}

func TestSecondLoginRevokesFirstSession(t *testing.T) {
	ctx, st := suite.New(t)

	email := gofakeit.Email()
	pass := randomPassword()

	resp, _ := st.Post(ctx, "/auth/register", "", map[string]string{
		"username": gofakeit.Username(),
		"email":    email,
		"password": pass,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	login := func() sessionResponse {
		resp, body := st.Post(ctx, "/auth/login", "", map[string]string{
			"email":    email,
			"password": pass,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var s sessionResponse
		require.NoError(t, json.Unmarshal(body, &s))
		return s
	}

	s1 := login()
	s2 := login()

	// Only the latest session's refresh token works.
	resp, _ = st.Post(ctx, "/auth/refresh", "", map[string]string{
		"refresh_token": s1.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = st.Post(ctx, "/auth/refresh", "", map[string]string{
		"refresh_token": s2.RefreshToken,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterLogin_DuplicatedRegistration(t *testing.T) {
	ctx, st := suite.New(t)

	email := gofakeit.Email()
	pass := randomPassword()

	resp, _ := st.Post(ctx, "/auth/register", "", map[string]string{
		"username": gofakeit.Username(),
		"email":    email,
		"password": pass,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := st.Post(ctx, "/auth/register", "", map[string]string{
		"username": gofakeit.Username(),
		"email":    email,
		"password": pass,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var apiErr apiError
	require.NoError(t, json.Unmarshal(body, &apiErr))
	assert.Equal(t, "conflict", apiErr.Code)
}

func TestRegister_FailCases(t *testing.T) {
	ctx, st := suite.New(t)

	tests := []struct {
		name      string
		username  string
		email     string
		password  string
		wantField string
	}{
		{
			name:      "Register with Empty Password",
			username:  gofakeit.Username(),
			email:     gofakeit.Email(),
			password:  "",
			wantField: "password",
		},
		{
			name:      "Register with Empty Email",
			username:  gofakeit.Username(),
			email:     "",
			password:  randomPassword(),
			wantField: "email",
		},
		{
			name:      "Register with Empty Username",
			username:  "",
			email:     gofakeit.Email(),
			password:  randomPassword(),
			wantField: "username",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := st.Post(ctx, "/auth/register", "", map[string]string{
				"username": tt.username,
				"email":    tt.email,
				"password": tt.password,
			})
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var apiErr apiError
			require.NoError(t, json.Unmarshal(body, &apiErr))
			assert.Equal(t, tt.wantField, apiErr.Field)
		})
	}
}

func TestLogin_FailCases(t *testing.T) {
	ctx, st := suite.New(t)

	email := gofakeit.Email()
	pass := randomPassword()

	resp, _ := st.Post(ctx, "/auth/register", "", map[string]string{
		"username": gofakeit.Username(),
		"email":    email,
		"password": pass,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	tests := []struct {
		name       string
		email      string
		password   string
		wantStatus int
	}{
		{
			name:       "Login with Empty Password",
			email:      email,
			password:   "",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Login with Empty Email",
			email:      "",
			password:   pass,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Login with Non-Matching Password",
			email:      email,
			password:   randomPassword(),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Login with Unknown Email",
			email:      gofakeit.Email(),
			password:   pass,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := st.Post(ctx, "/auth/login", "", map[string]string{
				"email":    tt.email,
				"password": tt.password,
			})
			require.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func randomPassword() string {
	return gofakeit.Password(true, true, true, true, false, passDefaultLen)
}
