package storage

import (
	"context"

	"github.com/iudanet/vaultsync/internal/models"
)

// Skipped change rejected by the last-write-wins check
type Skipped struct {
	ItemID string
	Reason string
}

// PushResult outcome of applying a push batch
type PushResult struct {
	Applied []string  // ids that received a new seq
	Skipped []Skipped // ids rejected as stale
	Cursor  int64     // highest seq assigned in this batch, 0 if none
}

// SyncStorage defines per-account replicated record state
type SyncStorage interface {
	// ApplyChanges merges changes by last-write-wins and assigns
	// a new per-account seq to each accepted change. Seq assignment
	// is serialized per account.
	ApplyChanges(ctx context.Context, userID string, changes []models.Change) (*PushResult, error)

	// GetChangesSince returns up to limit changes with seq > cursor ordered by seq,
	// and whether more remain
	GetChangesSince(ctx context.Context, userID string, cursor int64, limit int) ([]models.Change, bool, error)
}

// EnvelopeStorage defines per-user key envelope persistence
type EnvelopeStorage interface {
	// GetEnvelope returns ErrEnvelopeNotFound if user has none
	GetEnvelope(ctx context.Context, userID string) (*models.KeyEnvelope, error)

	// PutEnvelope replaces the envelope as a whole
	PutEnvelope(ctx context.Context, userID string, env *models.KeyEnvelope) error
}
