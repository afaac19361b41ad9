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

func TestGetSyncState_Empty(t *testing.T) {
	store := newTestStorage(t, crdt.NewManualClock(1))

	state, err := store.GetSyncState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.SyncState{}, state)
}

func TestAdvanceCursor(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, crdt.NewManualClock(1))

	tests := []struct {
		name     string
		cursor   int64
		advanced bool
		want     int64
	}{
		{name: "forward", cursor: 5, advanced: true, want: 5},
		{name: "same value", cursor: 5, advanced: false, want: 5},
		{name: "backwards", cursor: 3, advanced: false, want: 5},
		{name: "forward again", cursor: 9, advanced: true, want: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advanced, err := store.AdvanceCursor(ctx, tt.cursor)
			require.NoError(t, err)
			assert.Equal(t, tt.advanced, advanced)

			state, err := store.GetSyncState(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, state.Cursor)
		})
	}
}

func TestSyncTelemetry(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, crdt.NewManualClock(1))

	require.NoError(t, store.RecordSyncAttempt(ctx, 100))
	require.NoError(t, store.RecordSyncFailure(ctx, "connection refused"))

	state, err := store.GetSyncState(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), state.LastSyncAttemptAt)
	assert.Equal(t, int64(0), state.LastSyncAt)
	assert.Equal(t, "connection refused", state.LastSyncError)

	require.NoError(t, store.RecordSyncAttempt(ctx, 200))
	require.NoError(t, store.RecordSyncSuccess(ctx, 210))

	state, err = store.GetSyncState(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), state.LastSyncAttemptAt)
	assert.Equal(t, int64(210), state.LastSyncAt)
	assert.Empty(t, state.LastSyncError)
}

func TestSwitchAccount(t *testing.T) {
	ctx := context.Background()
	clock := crdt.NewManualClock(100)
	store := newTestStorage(t, clock)

	// Первый вход: данных чужого аккаунта нет, ничего не стираем
	wiped, err := store.SwitchAccount(ctx, "user-a")
	require.NoError(t, err)
	assert.False(t, wiped)

	_, err = store.UpsertLocal(ctx, "r1", testFields("a"))
	require.NoError(t, err)
	_, err = store.UpsertLocal(ctx, "r2", testFields("b"))
	require.NoError(t, err)
	_, err = store.DeleteLocal(ctx, "r2")
	require.NoError(t, err)
	_, err = store.AdvanceCursor(ctx, 42)
	require.NoError(t, err)
	_, err = store.SeedOutbox(ctx)
	require.NoError(t, err)
	require.NoError(t, store.RecordSyncSuccess(ctx, 100))
	require.NoError(t, store.SaveEnvelope(ctx, &models.KeyEnvelope{KeyVersion: 1}))

	// Повторный вход тем же аккаунтом ничего не меняет
	wiped, err = store.SwitchAccount(ctx, "user-a")
	require.NoError(t, err)
	assert.False(t, wiped)
	records, err := store.ListRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// Вход другим аккаунтом стирает все
	wiped, err = store.SwitchAccount(ctx, "user-b")
	require.NoError(t, err)
	assert.True(t, wiped)

	records, err = store.ListRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	tombs, err := store.ListTombstonesSince(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, tombs)

	count, err := store.CountOutbox(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	state, err := store.GetSyncState(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.SyncState{ActiveUserID: "user-b"}, state)

	_, err = store.GetEnvelope(ctx)
	assert.ErrorIs(t, err, storage.ErrEnvelopeNotFound)
}

func TestSwitchAccount_DropsSessionOfPreviousAccount(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, crdt.NewManualClock(100))

	_, err := store.SwitchAccount(ctx, "user-a")
	require.NoError(t, err)
	require.NoError(t, store.SaveSession(ctx, &models.Session{UserID: "user-a", AccessToken: "a-token"}))

	// тот же аккаунт сохраняет сессию
	_, err = store.SwitchAccount(ctx, "user-a")
	require.NoError(t, err)
	got, err := store.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-a", got.UserID)

	// прерванный после переключения вход оставляет клиента без сессии,
	// а не с сессией прежнего аккаунта
	_, err = store.SwitchAccount(ctx, "user-b")
	require.NoError(t, err)
	_, err = store.GetSession(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	clientID, err := store.ClientID(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, clientID)
}

func TestSwitchAccount_EmptyUser(t *testing.T) {
	store := newTestStorage(t, crdt.NewManualClock(1))

	_, err := store.SwitchAccount(context.Background(), "")
	assert.Error(t, err)
}
