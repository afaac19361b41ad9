package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.etcd.io/bbolt"

	"github.com/iudanet/vaultsync/internal/client/storage"
	"github.com/iudanet/vaultsync/internal/crdt"
	"github.com/iudanet/vaultsync/internal/models"
	"github.com/iudanet/vaultsync/internal/validation"
	"github.com/iudanet/vaultsync/internal/wire"
)

// UpsertLocal writes the record, drops its tombstone and replaces its outbox entry
func (s *Storage) UpsertLocal(ctx context.Context, id string, fields models.RecordFields) (*models.Record, error) {
	if id == "" {
		return nil, models.ErrEmptyItemID
	}

	var saved *models.Record
	err := s.update(func(tx *bbolt.Tx) error {
		existing, err := getRecord(tx, id)
		if err != nil {
			return err
		}
		tomb, err := getTombstone(tx, id)
		if err != nil {
			return err
		}

		now := s.stamp(existing, tomb)
		rec := &models.Record{
			ID:         id,
			Label:      fields.Label,
			URL:        fields.URL,
			Category:   fields.Category,
			Ciphertext: fields.Ciphertext,
			Nonce:      fields.Nonce,
			AuthTag:    fields.AuthTag,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if existing != nil {
			rec.CreatedAt = existing.CreatedAt
		}
		// запись, которую сервер не примет, не должна попасть в outbox
		if err := validation.ValidateChange(wire.ChangeToAPI(models.UpsertChange(rec))); err != nil {
			return err
		}

		if err := putJSON(tx.Bucket(bucketRecords), id, rec); err != nil {
			return fmt.Errorf("failed to save record: %w", err)
		}
		if err := tx.Bucket(bucketTombstones).Delete([]byte(id)); err != nil {
			return fmt.Errorf("failed to delete tombstone: %w", err)
		}
		if err := putJSON(tx.Bucket(bucketOutbox), id, models.OutboxItem{ID: id, UpdatedAt: now}); err != nil {
			return fmt.Errorf("failed to enqueue change: %w", err)
		}

		saved = rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert %s: %w", id, err)
	}

	return saved.Clone(), nil
}

// DeleteLocal removes the record and writes a tombstone
func (s *Storage) DeleteLocal(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := s.update(func(tx *bbolt.Tx) error {
		existing, err := getRecord(tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return nil
		}
		tomb, err := getTombstone(tx, id)
		if err != nil {
			return err
		}

		now := s.stamp(existing, tomb)
		if err := tx.Bucket(bucketRecords).Delete([]byte(id)); err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
		if err := putJSON(tx.Bucket(bucketTombstones), id, models.Tombstone{ID: id, UpdatedAt: now}); err != nil {
			return fmt.Errorf("failed to save tombstone: %w", err)
		}
		if err := putJSON(tx.Bucket(bucketOutbox), id, models.OutboxItem{ID: id, UpdatedAt: now, Deleted: true}); err != nil {
			return fmt.Errorf("failed to enqueue change: %w", err)
		}

		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", id, err)
	}

	return deleted, nil
}

// WipeAll clears records, tombstones and outbox
func (s *Storage) WipeAll(ctx context.Context) error {
	err := s.update(func(tx *bbolt.Tx) error {
		return resetBuckets(tx, bucketRecords, bucketTombstones, bucketOutbox)
	})
	if err != nil {
		return fmt.Errorf("failed to wipe local store: %w", err)
	}
	return nil
}

// ApplyRemoteChange merges a change by last-write-wins
func (s *Storage) ApplyRemoteChange(ctx context.Context, change models.Change) (crdt.Decision, error) {
	return s.merge(change, false)
}

// ImportChange merges a change by last-write-wins and queues it for push on success
func (s *Storage) ImportChange(ctx context.Context, change models.Change) (crdt.Decision, error) {
	return s.merge(change, true)
}

// merge применяет изменение по LWW. queue=false: изменение пришло с сервера,
// запись outbox для id снимается. queue=true: изменение надо отправить.
func (s *Storage) merge(change models.Change, queue bool) (crdt.Decision, error) {
	if err := change.Validate(); err != nil {
		return crdt.Decision{}, fmt.Errorf("invalid change %q: %w", change.ItemID, err)
	}
	if queue && validation.ValidateChange(wire.ChangeToAPI(change)) != nil {
		return crdt.Rejected(crdt.ReasonInvalid), nil
	}

	var decision crdt.Decision
	err := s.update(func(tx *bbolt.Tx) error {
		rec, err := getRecord(tx, change.ItemID)
		if err != nil {
			return err
		}
		tomb, err := getTombstone(tx, change.ItemID)
		if err != nil {
			return err
		}

		decision = crdt.Decide(change.UpdatedAt, recordUpdatedAt(rec), tombstoneUpdatedAt(tomb))
		if !decision.Applied {
			return nil
		}

		id := []byte(change.ItemID)
		if change.Deleted {
			if err := tx.Bucket(bucketRecords).Delete(id); err != nil {
				return fmt.Errorf("failed to delete record: %w", err)
			}
			if err := putJSON(tx.Bucket(bucketTombstones), change.ItemID, change.Tombstone()); err != nil {
				return fmt.Errorf("failed to save tombstone: %w", err)
			}
		} else {
			if err := putJSON(tx.Bucket(bucketRecords), change.ItemID, change.Record); err != nil {
				return fmt.Errorf("failed to save record: %w", err)
			}
			if err := tx.Bucket(bucketTombstones).Delete(id); err != nil {
				return fmt.Errorf("failed to delete tombstone: %w", err)
			}
		}

		if queue {
			item := models.OutboxItem{ID: change.ItemID, UpdatedAt: change.UpdatedAt, Deleted: change.Deleted}
			if err := putJSON(tx.Bucket(bucketOutbox), change.ItemID, item); err != nil {
				return fmt.Errorf("failed to enqueue change: %w", err)
			}
			return nil
		}
		if err := tx.Bucket(bucketOutbox).Delete(id); err != nil {
			return fmt.Errorf("failed to clear outbox entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return crdt.Decision{}, fmt.Errorf("apply %s: %w", change.ItemID, err)
	}

	return decision, nil
}

// GetRecord retrieves a record by ID
func (s *Storage) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	var rec *models.Record
	err := s.view(func(tx *bbolt.Tx) error {
		var err error
		rec, err = getRecord(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, storage.ErrRecordNotFound
	}
	return rec, nil
}

// ListRecords returns all records ordered by label, then id
func (s *Storage) ListRecords(ctx context.Context) ([]*models.Record, error) {
	records, err := s.listRecords(func(*models.Record) bool { return true })
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		li, lj := strings.ToLower(records[i].Label), strings.ToLower(records[j].Label)
		if li != lj {
			return li < lj
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// ListChangedSince returns records changed after ts, oldest first
func (s *Storage) ListChangedSince(ctx context.Context, ts int64, limit int) ([]*models.Record, error) {
	records, err := s.listRecords(func(r *models.Record) bool { return r.UpdatedAt > ts })
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].UpdatedAt != records[j].UpdatedAt {
			return records[i].UpdatedAt < records[j].UpdatedAt
		}
		return records[i].ID < records[j].ID
	})
	return truncate(records, limit), nil
}

// ListTombstonesSince returns tombstones written after ts, oldest first
func (s *Storage) ListTombstonesSince(ctx context.Context, ts int64, limit int) ([]models.Tombstone, error) {
	var tombs []models.Tombstone
	err := s.view(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTombstones).ForEach(func(_, v []byte) error {
			var t models.Tombstone
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("failed to unmarshal tombstone: %w", err)
			}
			if t.UpdatedAt > ts {
				tombs = append(tombs, t)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(tombs, func(i, j int) bool {
		if tombs[i].UpdatedAt != tombs[j].UpdatedAt {
			return tombs[i].UpdatedAt < tombs[j].UpdatedAt
		}
		return tombs[i].ID < tombs[j].ID
	})
	return truncate(tombs, limit), nil
}

func (s *Storage) listRecords(keep func(*models.Record) bool) ([]*models.Record, error) {
	records := make([]*models.Record, 0)
	err := s.view(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(_, v []byte) error {
			rec := &models.Record{}
			if err := json.Unmarshal(v, rec); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			if keep(rec) {
				records = append(records, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// stamp возвращает метку локального изменения, которая больше любого прошлого состояния id
func (s *Storage) stamp(rec *models.Record, tomb *models.Tombstone) int64 {
	return max(s.clock.Now(), crdt.CurrentMax(recordUpdatedAt(rec), tombstoneUpdatedAt(tomb))+1)
}

func getRecord(tx *bbolt.Tx, id string) (*models.Record, error) {
	data := tx.Bucket(bucketRecords).Get([]byte(id))
	if data == nil {
		return nil, nil
	}
	rec := &models.Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return rec, nil
}

func getTombstone(tx *bbolt.Tx, id string) (*models.Tombstone, error) {
	data := tx.Bucket(bucketTombstones).Get([]byte(id))
	if data == nil {
		return nil, nil
	}
	tomb := &models.Tombstone{}
	if err := json.Unmarshal(data, tomb); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tombstone: %w", err)
	}
	return tomb, nil
}

func recordUpdatedAt(r *models.Record) int64 {
	if r == nil {
		return 0
	}
	return r.UpdatedAt
}

func tombstoneUpdatedAt(t *models.Tombstone) int64 {
	if t == nil {
		return 0
	}
	return t.UpdatedAt
}

func putJSON(b *bbolt.Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	return b.Put([]byte(key), data)
}

func resetBuckets(tx *bbolt.Tx, names ...[]byte) error {
	for _, name := range names {
		if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("failed to drop %s bucket: %w", name, err)
		}
		if _, err := tx.CreateBucket(name); err != nil {
			return fmt.Errorf("failed to create %s bucket: %w", name, err)
		}
	}
	return nil
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
