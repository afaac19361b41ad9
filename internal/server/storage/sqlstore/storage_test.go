package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/vaultsync/internal/models"
	"github.com/iudanet/vaultsync/internal/server/storage"
)

// setupTestStorage creates in-memory storage for tests
func setupTestStorage(t *testing.T) (*Storage, func()) {
	t.Helper()

	s, err := New(context.Background(), ":memory:")
	require.NoError(t, err)

	return s, func() {
		_ = s.Close()
	}
}

// createTestUser creates a user and returns its ID
func createTestUser(t *testing.T, ctx context.Context, s *Storage) string {
	t.Helper()

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     "user-" + uuid.New().String()[:8],
		PasswordHash: "hash",
		CreatedAt:    1000,
	}
	require.NoError(t, s.CreateUser(ctx, user))
	return user.ID
}

// createTestDevice registers a device for user and returns its ID
func createTestDevice(t *testing.T, ctx context.Context, s *Storage, userID string) string {
	t.Helper()

	d, err := s.UpsertDevice(ctx, &models.Device{
		ID:         uuid.New().String(),
		UserID:     userID,
		ClientID:   uuid.New().String(),
		Name:       "laptop",
		CreatedAt:  1000,
		LastSeenAt: 1000,
	})
	require.NoError(t, err)
	return d.ID
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("in-memory database", func(t *testing.T) {
		s, err := New(ctx, ":memory:")
		require.NoError(t, err)
		defer func() { _ = s.Close() }()

		assert.NoError(t, s.Ping(ctx))
	})

	t.Run("file database reopens", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "server.db")

		s, err := New(ctx, path)
		require.NoError(t, err)
		userID := createTestUser(t, ctx, s)
		require.NoError(t, s.Close())

		s, err = New(ctx, path)
		require.NoError(t, err)
		defer func() { _ = s.Close() }()

		_, err = s.GetUserByID(ctx, userID)
		assert.NoError(t, err)
	})

	t.Run("unsupported driver", func(t *testing.T) {
		_, err := Open(ctx, "mysql", "dsn")
		assert.Error(t, err)
	})
}

func TestNew_SchemaTooNew(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "server.db")

	s, err := New(ctx, path)
	require.NoError(t, err)

	_, err = s.DB().ExecContext(ctx, `INSERT INTO goose_db_version (version_id, is_applied) VALUES (99, 1)`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = New(ctx, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrSchemaTooNew)
}

func TestRebind(t *testing.T) {
	sqlite := &Storage{driver: DriverSQLite}
	pg := &Storage{driver: DriverPgx}

	query := `SELECT 1 FROM items WHERE user_id = ? AND seq > ? LIMIT ?`

	assert.Equal(t, query, sqlite.rebind(query))
	assert.Equal(t, `SELECT 1 FROM items WHERE user_id = $1 AND seq > $2 LIMIT $3`, pg.rebind(query))
}
