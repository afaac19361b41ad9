package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/vaultsync/internal/crdt"
	"github.com/iudanet/vaultsync/internal/models"
	"github.com/iudanet/vaultsync/internal/server/storage"
)

// ApplyChanges merges a push batch for one account.
// The users row is locked first so concurrent pushes of the same account
// get seqs strictly one after another.
func (s *Storage) ApplyChanges(ctx context.Context, userID string, changes []models.Change) (*storage.PushResult, error) {
	result := &storage.PushResult{
		Applied: make([]string, 0, len(changes)),
		Skipped: make([]storage.Skipped, 0),
	}

	err := s.withTx(ctx, func(tx dbtx) error {
		var seq int64
		err := tx.QueryRowContext(ctx,
			s.rebind(`UPDATE users SET last_seq = last_seq WHERE id = ? RETURNING last_seq`), userID,
		).Scan(&seq)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrUserNotFound
			}
			return fmt.Errorf("failed to lock account: %w", err)
		}
		start := seq

		for _, ch := range changes {
			current, deleted, err := s.itemVersion(ctx, tx, userID, ch.ItemID)
			if err != nil {
				return err
			}

			var recTS, tombTS int64
			if deleted {
				tombTS = current
			} else {
				recTS = current
			}
			if d := crdt.Decide(ch.UpdatedAt, recTS, tombTS); !d.Applied {
				result.Skipped = append(result.Skipped, storage.Skipped{ItemID: ch.ItemID, Reason: d.Reason})
				continue
			}

			seq++
			if err := s.putItem(ctx, tx, userID, seq, ch); err != nil {
				return err
			}
			result.Applied = append(result.Applied, ch.ItemID)
		}

		if seq == start {
			return nil
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE users SET last_seq = ? WHERE id = ?`), seq, userID); err != nil {
			return fmt.Errorf("failed to advance account seq: %w", err)
		}
		result.Cursor = seq
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetChangesSince returns the latest state of every item changed after cursor
func (s *Storage) GetChangesSince(ctx context.Context, userID string, cursor int64, limit int) ([]models.Change, bool, error) {
	query := `
		SELECT item_id, seq, updated_at, deleted, label, url, category, created_at, ciphertext, nonce, auth_tag
		FROM items
		WHERE user_id = ? AND seq > ?
		ORDER BY seq
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), userID, cursor, limit+1)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query changes: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	changes := make([]models.Change, 0)
	for rows.Next() {
		var (
			ch  models.Change
			rec models.Record
		)
		err := rows.Scan(
			&ch.ItemID,
			&ch.Seq,
			&ch.UpdatedAt,
			&ch.Deleted,
			&rec.Label,
			&rec.URL,
			&rec.Category,
			&rec.CreatedAt,
			&rec.Ciphertext,
			&rec.Nonce,
			&rec.AuthTag,
		)
		if err != nil {
			return nil, false, fmt.Errorf("failed to scan change: %w", err)
		}
		if !ch.Deleted {
			rec.ID = ch.ItemID
			rec.UpdatedAt = ch.UpdatedAt
			ch.Record = &rec
		}
		changes = append(changes, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("rows iteration error: %w", err)
	}

	hasMore := len(changes) > limit
	if hasMore {
		changes = changes[:limit]
	}
	return changes, hasMore, nil
}

// itemVersion returns stored updated_at and deleted flag, zero if the item is unknown
func (s *Storage) itemVersion(ctx context.Context, tx dbtx, userID, itemID string) (int64, bool, error) {
	var (
		updatedAt int64
		deleted   bool
	)
	err := tx.QueryRowContext(ctx,
		s.rebind(`SELECT updated_at, deleted FROM items WHERE user_id = ? AND item_id = ?`), userID, itemID,
	).Scan(&updatedAt, &deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read item %s: %w", itemID, err)
	}
	return updatedAt, deleted, nil
}

func (s *Storage) putItem(ctx context.Context, tx dbtx, userID string, seq int64, ch models.Change) error {
	var rec models.Record
	if !ch.Deleted && ch.Record != nil {
		rec = *ch.Record
	}

	query := `
		INSERT INTO items (user_id, item_id, seq, updated_at, deleted, label, url, category, created_at, ciphertext, nonce, auth_tag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, item_id) DO UPDATE SET
			seq = excluded.seq,
			updated_at = excluded.updated_at,
			deleted = excluded.deleted,
			label = excluded.label,
			url = excluded.url,
			category = excluded.category,
			created_at = excluded.created_at,
			ciphertext = excluded.ciphertext,
			nonce = excluded.nonce,
			auth_tag = excluded.auth_tag
	`

	_, err := tx.ExecContext(ctx, s.rebind(query),
		userID,
		ch.ItemID,
		seq,
		ch.UpdatedAt,
		ch.Deleted,
		rec.Label,
		rec.URL,
		rec.Category,
		rec.CreatedAt,
		rec.Ciphertext,
		rec.Nonce,
		rec.AuthTag,
	)
	if err != nil {
		return fmt.Errorf("failed to store item %s: %w", ch.ItemID, err)
	}
	return nil
}
