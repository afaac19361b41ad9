package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/iudanet/vaultsync/internal/models"
)

// ListOutbox returns pending items, oldest first
func (s *Storage) ListOutbox(ctx context.Context, limit int) ([]models.OutboxItem, error) {
	items := make([]models.OutboxItem, 0)
	err := s.view(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketOutbox).ForEach(func(_, v []byte) error {
			var item models.OutboxItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("failed to unmarshal outbox item: %w", err)
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].UpdatedAt != items[j].UpdatedAt {
			return items[i].UpdatedAt < items[j].UpdatedAt
		}
		return items[i].ID < items[j].ID
	})
	return truncate(items, limit), nil
}

// CountOutbox returns number of pending items
func (s *Storage) CountOutbox(ctx context.Context) (int, error) {
	count := 0
	err := s.view(func(tx *bbolt.Tx) error {
		count = tx.Bucket(bucketOutbox).Stats().KeyN
		return nil
	})
	return count, err
}

// ClearOutbox removes entries whose updatedAt did not change since they were read
func (s *Storage) ClearOutbox(ctx context.Context, items []models.OutboxItem) (int, error) {
	cleared := 0
	err := s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketOutbox)
		for _, item := range items {
			data := bucket.Get([]byte(item.ID))
			if data == nil {
				continue
			}
			var current models.OutboxItem
			if err := json.Unmarshal(data, &current); err != nil {
				return fmt.Errorf("failed to unmarshal outbox item: %w", err)
			}
			if current.UpdatedAt != item.UpdatedAt {
				continue
			}
			if err := bucket.Delete([]byte(item.ID)); err != nil {
				return fmt.Errorf("failed to delete outbox item: %w", err)
			}
			cleared++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear outbox: %w", err)
	}
	return cleared, nil
}

// SeedOutbox queues every existing record once
func (s *Storage) SeedOutbox(ctx context.Context) (int, error) {
	seeded := 0
	err := s.update(func(tx *bbolt.Tx) error {
		state := tx.Bucket(bucketSyncState)
		if getBool(state, keyInitialSeedDone) {
			return nil
		}

		outbox := tx.Bucket(bucketOutbox)
		err := tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			if outbox.Get(k) != nil {
				return nil
			}
			var rec models.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			seeded++
			return putJSON(outbox, rec.ID, models.OutboxItem{ID: rec.ID, UpdatedAt: rec.UpdatedAt})
		})
		if err != nil {
			return err
		}

		return putBool(state, keyInitialSeedDone, true)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to seed outbox: %w", err)
	}
	return seeded, nil
}
