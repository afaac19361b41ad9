package boltdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/vaultsync/internal/client/storage"
	"github.com/iudanet/vaultsync/internal/crdt"
	"github.com/iudanet/vaultsync/internal/models"
)

func TestSession_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, crdt.NewManualClock(1))

	_, err := store.GetSession(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	session := &models.Session{
		UserID:           "user-1",
		Username:         "alice",
		DeviceID:         "device-1",
		AccessToken:      "access",
		RefreshToken:     "refresh",
		RefreshExpiresAt: 1000,
	}
	require.NoError(t, store.SaveSession(ctx, session))

	got, err := store.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, session, got)

	require.NoError(t, store.DeleteSession(ctx))
	_, err = store.GetSession(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	// Удаление отсутствующей сессии не ошибка
	assert.NoError(t, store.DeleteSession(ctx))
}

func TestClientID_Stable(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, crdt.NewManualClock(1))

	first, err := store.ClientID(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := store.ClientID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Выход из аккаунта не меняет идентификатор установки
	require.NoError(t, store.DeleteSession(ctx))
	third, err := store.ClientID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestEnvelope_SaveGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, crdt.NewManualClock(1))

	_, err := store.GetEnvelope(ctx)
	assert.ErrorIs(t, err, storage.ErrEnvelopeNotFound)

	env := &models.KeyEnvelope{
		KeyVersion: 1,
		KDF:        models.KDFParams{Name: "argon2id", Time: 1, MemoryKiB: 64 * 1024, Threads: 4},
		Salt:       []byte("salt"),
		Nonce:      []byte("nonce"),
		Ciphertext: []byte("ct"),
		AuthTag:    []byte("tag"),
		UpdatedAt:  5,
	}
	require.NoError(t, store.SaveEnvelope(ctx, env))

	got, err := store.GetEnvelope(ctx)
	require.NoError(t, err)
	assert.Equal(t, env, got)
}
