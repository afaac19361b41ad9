package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/vaultsync/pkg/api"
)

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)

	client = NewClient("http://localhost:8080", WithTimeout(time.Second))
	assert.Equal(t, time.Second, client.httpClient.Timeout)
}

// TestClient_Register проверяет успешную регистрацию
func TestClient_Register(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/auth/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var req api.AuthRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.Username)
		assert.Equal(t, "client-1", req.ClientID)

		writeJSON(t, w, http.StatusCreated, api.TokenResponse{
			UserID:      "user-1",
			DeviceID:    "device-1",
			AccessToken: "access",
		})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Register(context.Background(), api.AuthRequest{
		Username: "alice",
		Password: "correct horse battery",
		ClientID: "client-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", resp.UserID)
	assert.Equal(t, "device-1", resp.DeviceID)
}

// TestClient_ErrorTaxonomy проверяет перевод ответов сервера в типизированные ошибки
func TestClient_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		body   any
		check  func(t *testing.T, err error)
		name   string
		status int
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   api.ErrorResponse{Error: "Unauthorized", Message: "invalid credentials"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnauthorized)
				assert.Contains(t, err.Error(), "invalid credentials")
			},
		},
		{
			name:   "mfa required",
			status: http.StatusUnauthorized,
			body:   api.ErrorResponse{Error: "Unauthorized", Message: "second factor required", MFARequired: true},
			check: func(t *testing.T, err error) {
				var mfaErr *MFARequiredError
				require.ErrorAs(t, err, &mfaErr)
				assert.NotErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:   "conflict",
			status: http.StatusConflict,
			body:   api.ErrorResponse{Error: "Conflict", Message: "user already exists"},
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusConflict, se.Code)
				assert.Equal(t, "user already exists", se.Message)
				assert.True(t, IsStatus(err, http.StatusConflict))
			},
		},
		{
			name:   "plain text body",
			status: http.StatusBadGateway,
			body:   "upstream down",
			check: func(t *testing.T, err error) {
				assert.True(t, IsStatus(err, http.StatusBadGateway))
				assert.Contains(t, err.Error(), "server error (502)")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if s, ok := tt.body.(string); ok {
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(s))
					return
				}
				writeJSON(t, w, tt.status, tt.body)
			}))
			defer server.Close()

			resp, err := NewClient(server.URL).Login(context.Background(), api.AuthRequest{Username: "alice"})
			require.Error(t, err)
			assert.Nil(t, resp)
			tt.check(t, err)
		})
	}
}

// TestClient_NetworkError проверяет ошибку недоступного сервера
func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).Pull(context.Background(), "token", 0, 10)
	require.Error(t, err)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "GET /v1/sync/pull", netErr.Op)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

// TestClient_PushPull проверяет запросы синхронизации
func TestClient_PushPull(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/v1/sync/push":
			assert.Equal(t, http.MethodPost, r.Method)
			var req api.PushRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Changes, 1)
			writeJSON(t, w, http.StatusOK, api.PushResponse{
				Applied: []string{req.Changes[0].ItemID},
				Skipped: []api.SkippedItem{},
				Cursor:  7,
			})
		case "/v1/sync/pull":
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "5", r.URL.Query().Get("cursor"))
			assert.Equal(t, "50", r.URL.Query().Get("limit"))
			writeJSON(t, w, http.StatusOK, api.PullResponse{
				Changes:    []api.Change{{ItemID: "r2", Seq: 6, UpdatedAt: 200, Deleted: true}},
				Cursor:     5,
				NextCursor: 6,
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	push, err := client.Push(ctx, "access", &api.PushRequest{Changes: []api.Change{
		{ItemID: "r1", UpdatedAt: 100, Deleted: true},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, push.Applied)
	assert.EqualValues(t, 7, push.Cursor)

	pull, err := client.Pull(ctx, "access", 5, 50)
	require.NoError(t, err)
	require.Len(t, pull.Changes, 1)
	assert.EqualValues(t, 6, pull.NextCursor)
	assert.True(t, pull.Changes[0].Deleted)
}

// TestClient_Envelope проверяет GET/PUT конверта ключа
func TestClient_Envelope(t *testing.T) {
	var stored *api.KeyEnvelope
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/keys/envelope", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			writeJSON(t, w, http.StatusOK, api.EnvelopeResponse{Envelope: stored})
		case http.MethodPut:
			var req api.EnvelopeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			stored = req.Envelope
			stored.UpdatedAt = 42
			writeJSON(t, w, http.StatusOK, api.EnvelopeResponse{Envelope: stored})
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	env, err := client.GetEnvelope(ctx, "access")
	require.NoError(t, err)
	assert.Nil(t, env)

	saved, err := client.PutEnvelope(ctx, "access", &api.KeyEnvelope{KeyVersion: 1, Ciphertext: []byte("ct")})
	require.NoError(t, err)
	assert.EqualValues(t, 42, saved.UpdatedAt)

	env, err = client.GetEnvelope(ctx, "access")
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, []byte("ct"), env.Ciphertext)
}

// TestClient_Logout проверяет выход
func TestClient_Logout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.LogoutRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "refresh", req.RefreshToken)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.NoError(t, NewClient(server.URL).Logout(context.Background(), "refresh"))
}

// TestClient_ContextCanceled проверяет, что отмена контекста дает сетевую ошибку
func TestClient_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, api.HealthResponse{Status: "ok"})
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(server.URL).Health(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
