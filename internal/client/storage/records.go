package storage

import (
	"context"

	"github.com/iudanet/vaultsync/internal/crdt"
	"github.com/iudanet/vaultsync/internal/models"
)

// RecordStore defines the local vault records together with their change log.
// Every mutating method is a single atomic transaction.
type RecordStore interface {
	// UpsertLocal writes the record, removes its tombstone and queues it in the outbox.
	// updatedAt is always greater than any previous state of the id.
	UpsertLocal(ctx context.Context, id string, fields models.RecordFields) (*models.Record, error)

	// DeleteLocal removes the record, writes a tombstone and queues the delete.
	// Returns false (and changes nothing) if the record does not exist.
	DeleteLocal(ctx context.Context, id string) (bool, error)

	// WipeAll clears records, tombstones and outbox unconditionally
	WipeAll(ctx context.Context) error

	// ApplyRemoteChange merges a change by last-write-wins and drops the outbox entry on success
	ApplyRemoteChange(ctx context.Context, change models.Change) (crdt.Decision, error)

	// ImportChange merges a change by last-write-wins like ApplyRemoteChange,
	// but queues the applied state in the outbox so it reaches the server
	ImportChange(ctx context.Context, change models.Change) (crdt.Decision, error)

	// GetRecord returns ErrRecordNotFound if record doesn't exist
	GetRecord(ctx context.Context, id string) (*models.Record, error)

	// ListRecords returns all live records ordered by label
	ListRecords(ctx context.Context) ([]*models.Record, error)

	// ListChangedSince returns records with updatedAt > ts, oldest first. limit <= 0 means no limit.
	ListChangedSince(ctx context.Context, ts int64, limit int) ([]*models.Record, error)

	// ListTombstonesSince returns tombstones with updatedAt > ts, oldest first
	ListTombstonesSince(ctx context.Context, ts int64, limit int) ([]models.Tombstone, error)
}

// ChangeLog defines access to the outbox
type ChangeLog interface {
	// ListOutbox returns up to limit items ordered by updatedAt ascending
	ListOutbox(ctx context.Context, limit int) ([]models.OutboxItem, error)

	// CountOutbox returns number of pending items
	CountOutbox(ctx context.Context) (int, error)

	// ClearOutbox removes entries that still carry the given updatedAt.
	// Entries re-queued by a newer local write are kept.
	ClearOutbox(ctx context.Context, items []models.OutboxItem) (int, error)

	// SeedOutbox queues every record once per device/account and marks the seed as done.
	// Returns number of queued records, 0 if the seed was already done.
	SeedOutbox(ctx context.Context) (int, error)
}
