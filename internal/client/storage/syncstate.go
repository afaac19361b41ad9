package storage

import (
	"context"

	"github.com/iudanet/vaultsync/internal/models"
)

// SyncStateStore defines durable replication state of the device
type SyncStateStore interface {
	// GetSyncState returns zero state if nothing was saved yet
	GetSyncState(ctx context.Context) (*models.SyncState, error)

	// AdvanceCursor stores cursor only if it is greater than the current one
	AdvanceCursor(ctx context.Context, cursor int64) (bool, error)

	// RecordSyncAttempt saves the time a sync started
	RecordSyncAttempt(ctx context.Context, at int64) error

	// RecordSyncSuccess saves the time of a successful sync and clears the last error
	RecordSyncSuccess(ctx context.Context, at int64) error

	// RecordSyncFailure saves the error message of a failed sync
	RecordSyncFailure(ctx context.Context, message string) error

	// SwitchAccount makes userID the active account.
	// If another account was active, local records, tombstones, outbox and
	// sync state are wiped in the same transaction. Returns true if data was wiped.
	SwitchAccount(ctx context.Context, userID string) (bool, error)
}
