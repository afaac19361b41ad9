package handlers

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

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/vaultsync/internal/crypto"
	"github.com/iudanet/vaultsync/internal/models"
	"github.com/iudanet/vaultsync/internal/server/jwt"
	"github.com/iudanet/vaultsync/internal/server/storage/sqlstore"
)

// fastPassword параметры argon2 для тестов
var fastPassword = crypto.PasswordParams{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32}

const testPassword = "correct horse battery"

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	store   *sqlstore.Storage
	jwt     *jwt.Service
	auth    *AuthHandler
	sync    *SyncHandler
	keys    *KeysHandler
	devices *DevicesHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlstore.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := setupTestLogger()
	jwtService := jwt.NewService("test-secret", 15*time.Minute, 24*time.Hour)

	return &testEnv{
		store:   store,
		jwt:     jwtService,
		auth:    NewAuthHandler(logger, store, store, store, jwtService, fastPassword),
		sync:    NewSyncHandler(logger, store, store),
		keys:    NewKeysHandler(logger, store),
		devices: NewDevicesHandler(logger, store),
	}
}

// createUser создает пользователя напрямую в хранилище
func (e *testEnv) createUser(t *testing.T, username string) string {
	t.Helper()

	hash, err := crypto.HashPassword(testPassword, fastPassword)
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    1,
	}
	require.NoError(t, e.store.CreateUser(context.Background(), user))
	return user.ID
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

// asUser добавляет в запрос данные, которые кладет AuthMiddleware
func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(WithIdentity(r.Context(), userID, "tester", ""))
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
