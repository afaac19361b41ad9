package boltdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/vaultsync/internal/crdt"
	"github.com/iudanet/vaultsync/internal/models"
)

func TestListOutbox_OldestFirst(t *testing.T) {
	ctx := context.Background()
	clock := crdt.NewManualClock(300)
	store := newTestStorage(t, clock)

	_, err := store.UpsertLocal(ctx, "late", testFields("late"))
	require.NoError(t, err)
	clock.Set(100)
	_, err = store.UpsertLocal(ctx, "early", testFields("early"))
	require.NoError(t, err)
	clock.Set(200)
	_, err = store.UpsertLocal(ctx, "middle", testFields("middle"))
	require.NoError(t, err)

	items, err := store.ListOutbox(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "early", items[0].ID)
	assert.Equal(t, "middle", items[1].ID)
	assert.Equal(t, "late", items[2].ID)

	items, err = store.ListOutbox(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestClearOutbox_KeepsRequeuedEntries(t *testing.T) {
	ctx := context.Background()
	clock := crdt.NewManualClock(100)
	store := newTestStorage(t, clock)

	_, err := store.UpsertLocal(ctx, "r1", testFields("a"))
	require.NoError(t, err)
	_, err = store.UpsertLocal(ctx, "r2", testFields("b"))
	require.NoError(t, err)

	sent, err := store.ListOutbox(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sent, 2)

	// Пока push был в полете, r2 изменили еще раз
	clock.Set(200)
	_, err = store.UpsertLocal(ctx, "r2", testFields("b2"))
	require.NoError(t, err)

	cleared, err := store.ClearOutbox(ctx, sent)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	left, err := store.ListOutbox(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.OutboxItem{{ID: "r2", UpdatedAt: 200}}, left)

	// Повторная очистка того же пакета ничего не меняет
	cleared, err = store.ClearOutbox(ctx, sent)
	require.NoError(t, err)
	assert.Zero(t, cleared)
}

func TestSeedOutbox(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, crdt.NewManualClock(100))

	// Записи, появившиеся без outbox (например, после импорта старого хранилища)
	for _, id := range []string{"r1", "r2"} {
		_, err := store.ApplyRemoteChange(ctx, remoteUpsert(id, 50))
		require.NoError(t, err)
	}

	seeded, err := store.SeedOutbox(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, seeded)

	items, err := store.ListOutbox(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.OutboxItem{{ID: "r1", UpdatedAt: 50}, {ID: "r2", UpdatedAt: 50}}, items)

	state, err := store.GetSyncState(ctx)
	require.NoError(t, err)
	assert.True(t, state.InitialSeedDone)

	// Второй раз seed не выполняется
	_, err = store.ClearOutbox(ctx, items)
	require.NoError(t, err)
	seeded, err = store.SeedOutbox(ctx)
	require.NoError(t, err)
	assert.Zero(t, seeded)

	count, err := store.CountOutbox(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSeedOutbox_KeepsPendingEntries(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, crdt.NewManualClock(100))

	_, err := store.UpsertLocal(ctx, "r1", testFields("a"))
	require.NoError(t, err)
	_, err = store.DeleteLocal(ctx, "r1")
	require.NoError(t, err)

	seeded, err := store.SeedOutbox(ctx)
	require.NoError(t, err)
	assert.Zero(t, seeded)

	items, err := store.ListOutbox(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Deleted)
}
