package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/vaultsync/pkg/api"
)

func authRequest(username, password string) api.AuthRequest {
	return api.AuthRequest{
		Username:   username,
		Password:   password,
		DeviceName: "laptop",
		ClientID:   uuid.New().String(),
	}
}

func (e *testEnv) register(t *testing.T, req api.AuthRequest) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(http.MethodPost, "/v1/auth/register", jsonBody(t, req))
	w := httptest.NewRecorder()
	e.auth.Register(w, r)
	return w
}

func (e *testEnv) login(t *testing.T, req api.AuthRequest) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(http.MethodPost, "/v1/auth/login", jsonBody(t, req))
	w := httptest.NewRecorder()
	e.auth.Login(w, r)
	return w
}

func (e *testEnv) refresh(t *testing.T, token string) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", jsonBody(t, api.RefreshRequest{RefreshToken: token}))
	w := httptest.NewRecorder()
	e.auth.Refresh(w, r)
	return w
}

func TestAuthHandler_Register(t *testing.T) {
	env := newTestEnv(t)

	w := env.register(t, authRequest("alice", testPassword))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeResponse[api.TokenResponse](t, w)
	assert.NotEmpty(t, resp.UserID)
	assert.NotEmpty(t, resp.DeviceID)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Greater(t, resp.RefreshExpiresAt, time.Now().UnixMilli())

	claims, err := env.jwt.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)
	assert.Equal(t, resp.DeviceID, claims.DeviceID)
	assert.Equal(t, "alice", claims.Username)

	// Пароль хранится только в виде хеша
	user, err := env.store.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotContains(t, user.PasswordHash, testPassword)
}

func TestAuthHandler_Register_Errors(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.register(t, authRequest("taken", testPassword)).Code)

	badClient := authRequest("bob", testPassword)
	badClient.ClientID = "not-a-uuid"

	tests := []struct {
		name       string
		req        api.AuthRequest
		wantStatus int
	}{
		{name: "duplicate username", req: authRequest("taken", testPassword), wantStatus: http.StatusConflict},
		{name: "short password", req: authRequest("bob", "short"), wantStatus: http.StatusBadRequest},
		{name: "invalid username", req: authRequest("b!", testPassword), wantStatus: http.StatusBadRequest},
		{name: "invalid client id", req: badClient, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.register(t, tt.req)
			assert.Equal(t, tt.wantStatus, w.Code)

			resp := decodeResponse[api.ErrorResponse](t, w)
			assert.NotEmpty(t, resp.Error)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader("{"))
		w := httptest.NewRecorder()
		env.auth.Register(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "alice")

	t.Run("success", func(t *testing.T) {
		req := authRequest("alice", testPassword)
		w := env.login(t, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decodeResponse[api.TokenResponse](t, w)
		assert.Equal(t, userID, resp.UserID)

		// Повторный вход с той же установки дает то же устройство
		again := decodeResponse[api.TokenResponse](t, env.login(t, req))
		assert.Equal(t, resp.DeviceID, again.DeviceID)
		assert.NotEqual(t, resp.RefreshToken, again.RefreshToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := env.login(t, authRequest("alice", "wrong password here"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		resp := decodeResponse[api.ErrorResponse](t, w)
		assert.False(t, resp.MFARequired)
	})

	t.Run("unknown user", func(t *testing.T) {
		w := env.login(t, authRequest("nobody", testPassword))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_MFA(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "alice")

	// Подтверждение без регистрации секрета
	r := asUser(httptest.NewRequest(http.MethodPost, "/v1/auth/mfa/confirm", jsonBody(t, api.MFAConfirmRequest{Code: "123456"})), userID)
	w := httptest.NewRecorder()
	env.auth.MFAConfirm(w, r)
	assert.Equal(t, http.StatusConflict, w.Code)

	r = asUser(httptest.NewRequest(http.MethodPost, "/v1/auth/mfa/enroll", nil), userID)
	w = httptest.NewRecorder()
	env.auth.MFAEnroll(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	enroll := decodeResponse[api.MFAEnrollResponse](t, w)
	require.NotEmpty(t, enroll.Secret)
	assert.Contains(t, enroll.URL, "otpauth://totp/")

	// Пока второй фактор не подтвержден, вход по паролю
	require.Equal(t, http.StatusOK, env.login(t, authRequest("alice", testPassword)).Code)

	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)

	r = asUser(httptest.NewRequest(http.MethodPost, "/v1/auth/mfa/confirm", jsonBody(t, api.MFAConfirmRequest{Code: wrongCode(t, enroll.Secret)})), userID)
	w = httptest.NewRecorder()
	env.auth.MFAConfirm(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r = asUser(httptest.NewRequest(http.MethodPost, "/v1/auth/mfa/confirm", jsonBody(t, api.MFAConfirmRequest{Code: code})), userID)
	w = httptest.NewRecorder()
	env.auth.MFAConfirm(w, r)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	t.Run("code required", func(t *testing.T) {
		w := env.login(t, authRequest("alice", testPassword))
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		resp := decodeResponse[api.ErrorResponse](t, w)
		assert.True(t, resp.MFARequired)
	})

	t.Run("wrong password with code", func(t *testing.T) {
		req := authRequest("alice", "wrong password here")
		req.MFACode = code
		w := env.login(t, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, decodeResponse[api.ErrorResponse](t, w).MFARequired)
	})

	t.Run("valid code", func(t *testing.T) {
		req := authRequest("alice", testPassword)
		req.MFACode = code
		w := env.login(t, req)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	env := newTestEnv(t)

	w := env.register(t, authRequest("alice", testPassword))
	require.Equal(t, http.StatusCreated, w.Code)
	session := decodeResponse[api.TokenResponse](t, w)

	w = env.refresh(t, session.RefreshToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	rotated := decodeResponse[api.TokenResponse](t, w)
	assert.Equal(t, session.UserID, rotated.UserID)
	assert.Equal(t, session.DeviceID, rotated.DeviceID)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)

	// Старый refresh token больше не действует
	w = env.refresh(t, session.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Новый действует
	w = env.refresh(t, rotated.RefreshToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_Refresh_Errors(t *testing.T) {
	env := newTestEnv(t)

	w := env.register(t, authRequest("alice", testPassword))
	require.Equal(t, http.StatusCreated, w.Code)
	session := decodeResponse[api.TokenResponse](t, w)

	t.Run("empty token", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, env.refresh(t, "").Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, env.refresh(t, "unknown").Code)
	})

	t.Run("expired token", func(t *testing.T) {
		env.auth.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
		defer func() { env.auth.now = time.Now }()

		assert.Equal(t, http.StatusUnauthorized, env.refresh(t, session.RefreshToken).Code)

		// Истекший токен удален
		env.auth.now = time.Now
		assert.Equal(t, http.StatusUnauthorized, env.refresh(t, session.RefreshToken).Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	env := newTestEnv(t)

	w := env.register(t, authRequest("alice", testPassword))
	require.Equal(t, http.StatusCreated, w.Code)
	session := decodeResponse[api.TokenResponse](t, w)

	logout := func(token string) int {
		r := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", jsonBody(t, api.LogoutRequest{RefreshToken: token}))
		w := httptest.NewRecorder()
		env.auth.Logout(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, logout(session.RefreshToken))
	assert.Equal(t, http.StatusUnauthorized, env.refresh(t, session.RefreshToken).Code)

	// Повторный выход и неизвестный токен не ошибка
	assert.Equal(t, http.StatusOK, logout(session.RefreshToken))
	assert.Equal(t, http.StatusOK, logout(""))
}

// wrongCode возвращает код, не совпадающий ни с одним из окна допустимых
func wrongCode(t *testing.T, secret string) string {
	t.Helper()

	valid := make(map[string]bool)
	now := time.Now()
	for _, d := range []time.Duration{-time.Minute, -30 * time.Second, 0, 30 * time.Second, time.Minute} {
		c, err := totp.GenerateCode(secret, now.Add(d))
		require.NoError(t, err)
		valid[c] = true
	}

	for _, candidate := range []string{"000000", "111111", "222222", "333333", "444444", "555555"} {
		if !valid[candidate] {
			return candidate
		}
	}
	t.Fatal("no wrong code candidate left")
	return ""
}
