package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/vaultsync/internal/client/storage"
	"github.com/iudanet/vaultsync/internal/client/storage/boltdb"
	"github.com/iudanet/vaultsync/internal/crdt"
	"github.com/iudanet/vaultsync/internal/models"
)

const passphrase = "backup passphrase"

// низкая стоимость scrypt для тестов
var fast = WithWorkFactor(10)

func newStore(t *testing.T, clock crdt.Clock) *boltdb.Storage {
	t.Helper()
	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "vault.db"), boltdb.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seeded(t *testing.T) *boltdb.Storage {
	t.Helper()
	ctx := context.Background()
	clock := crdt.NewManualClock(100)
	store := newStore(t, clock)

	for _, id := range []string{"r1", "r2", "r3"} {
		_, err := store.UpsertLocal(ctx, id, models.RecordFields{Label: id, Ciphertext: []byte("ct-" + id), Nonce: []byte("n"), AuthTag: []byte("t")})
		require.NoError(t, err)
	}
	clock.Set(200)
	_, err := store.DeleteLocal(ctx, "r3")
	require.NoError(t, err)
	return store
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := seeded(t)

	var buf bytes.Buffer
	archive, err := Export(ctx, src, &buf, passphrase, fast, WithNow(func() time.Time { return time.UnixMilli(5_000) }))
	require.NoError(t, err)
	assert.Len(t, archive.Records, 2)
	assert.Len(t, archive.Tombstones, 1)
	assert.EqualValues(t, 5_000, archive.ExportedAt)
	assert.NotContains(t, buf.String(), "ct-r1")

	dst := newStore(t, crdt.NewManualClock(100))
	res, err := Import(ctx, dst, bytes.NewReader(buf.Bytes()), passphrase)
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Records: 2, Tombstones: 1, Applied: 3}, res)

	want, err := src.ListRecords(ctx)
	require.NoError(t, err)
	got, err := dst.ListRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	tombs, err := dst.ListTombstonesSince(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.Tombstone{{ID: "r3", UpdatedAt: 200}}, tombs)

	// импортированное состояние уходит на сервер
	count, err := dst.CountOutbox(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// повторный импорт ничего не меняет
	res, err = Import(ctx, dst, bytes.NewReader(buf.Bytes()), passphrase)
	require.NoError(t, err)
	assert.Zero(t, res.Applied)
	assert.Equal(t, 3, res.Skipped)
}

func TestImport_NewerLocalStateWins(t *testing.T) {
	ctx := context.Background()
	src := seeded(t)

	var buf bytes.Buffer
	_, err := Export(ctx, src, &buf, passphrase, fast)
	require.NoError(t, err)

	dst := newStore(t, crdt.NewManualClock(1_000))
	_, err = dst.UpsertLocal(ctx, "r1", models.RecordFields{Label: "newer", Ciphertext: []byte("x")})
	require.NoError(t, err)

	res, err := Import(ctx, dst, &buf, passphrase)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, 1, res.Skipped)

	rec, err := dst.GetRecord(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "newer", rec.Label)
}

func TestImport_WrongPassphrase(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	_, err := Export(ctx, seeded(t), &buf, passphrase, fast)
	require.NoError(t, err)

	dst := newStore(t, crdt.NewManualClock(100))
	_, err = Import(ctx, dst, &buf, "not the passphrase")
	require.Error(t, err)

	_, err = dst.GetRecord(ctx, "r1")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}

func TestRead_UnsupportedVersion(t *testing.T) {
	recipient, err := age.NewScryptRecipient(passphrase)
	require.NoError(t, err)
	recipient.SetWorkFactor(10)

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(w).Encode(Archive{Version: 99}))
	require.NoError(t, w.Close())

	_, err = Read(&buf, passphrase)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestImport_SkipsMalformedEntries(t *testing.T) {
	ctx := context.Background()
	recipient, err := age.NewScryptRecipient(passphrase)
	require.NoError(t, err)
	recipient.SetWorkFactor(10)

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(w).Encode(Archive{
		Version:    FormatVersion,
		Records:    []*models.Record{{ID: "ok", Label: "ok", UpdatedAt: 10, CreatedAt: 10}, {ID: "", UpdatedAt: 10}},
		Tombstones: []models.Tombstone{{ID: "gone", UpdatedAt: 0}},
	}))
	require.NoError(t, w.Close())

	res, err := Import(ctx, newStore(t, crdt.NewManualClock(100)), &buf, passphrase)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 2, res.Skipped)
}
