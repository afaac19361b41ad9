package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/vaultsync/internal/models"
)

const (
	keyCursor            = "cursor"
	keyLastSyncAt        = "lastSyncAt"
	keyLastSyncAttemptAt = "lastSyncAttemptAt"
	keyLastSyncError     = "lastSyncError"
	keyInitialSeedDone   = "initialSeedDone"
	keyActiveUserID      = "activeUserId"
)

// GetSyncState returns replication state of the device
func (s *Storage) GetSyncState(ctx context.Context) (*models.SyncState, error) {
	state := &models.SyncState{}
	err := s.view(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSyncState)
		state.Cursor = getInt64(b, keyCursor)
		state.LastSyncAt = getInt64(b, keyLastSyncAt)
		state.LastSyncAttemptAt = getInt64(b, keyLastSyncAttemptAt)
		state.LastSyncError = string(b.Get([]byte(keyLastSyncError)))
		state.InitialSeedDone = getBool(b, keyInitialSeedDone)
		state.ActiveUserID = string(b.Get([]byte(keyActiveUserID)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	}
	return state, nil
}

// AdvanceCursor stores cursor if it moves forward
func (s *Storage) AdvanceCursor(ctx context.Context, cursor int64) (bool, error) {
	advanced := false
	err := s.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSyncState)
		if cursor <= getInt64(b, keyCursor) {
			return nil
		}
		advanced = true
		return b.Put([]byte(keyCursor), encodeInt64(cursor))
	})
	if err != nil {
		return false, fmt.Errorf("failed to advance cursor: %w", err)
	}
	return advanced, nil
}

// RecordSyncAttempt saves the start time of a sync
func (s *Storage) RecordSyncAttempt(ctx context.Context, at int64) error {
	return s.update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSyncState).Put([]byte(keyLastSyncAttemptAt), encodeInt64(at))
	})
}

// RecordSyncSuccess saves the time of a successful sync and clears the error
func (s *Storage) RecordSyncSuccess(ctx context.Context, at int64) error {
	return s.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSyncState)
		if err := b.Put([]byte(keyLastSyncAt), encodeInt64(at)); err != nil {
			return err
		}
		return b.Delete([]byte(keyLastSyncError))
	})
}

// RecordSyncFailure saves the error message of a failed sync
func (s *Storage) RecordSyncFailure(ctx context.Context, message string) error {
	return s.update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSyncState).Put([]byte(keyLastSyncError), []byte(message))
	})
}

// SwitchAccount makes userID the active account, wiping data of the previous one
func (s *Storage) SwitchAccount(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("user id is empty")
	}

	wiped := false
	err := s.update(func(tx *bbolt.Tx) error {
		active := string(tx.Bucket(bucketSyncState).Get([]byte(keyActiveUserID)))
		if active == userID {
			return nil
		}
		// сессия прежнего аккаунта не переживает переключение, новую сохраняет вызывающий
		if err := tx.Bucket(bucketSession).Delete([]byte(keySession)); err != nil {
			return fmt.Errorf("failed to drop session: %w", err)
		}

		if active != "" {
			// данные и позиция курсора чужого аккаунта не должны утечь в новый
			if err := resetBuckets(tx, bucketRecords, bucketTombstones, bucketOutbox, bucketSyncState); err != nil {
				return err
			}
			if err := tx.Bucket(bucketSession).Delete([]byte(keyEnvelope)); err != nil {
				return fmt.Errorf("failed to drop key envelope: %w", err)
			}
			wiped = true
		}

		return tx.Bucket(bucketSyncState).Put([]byte(keyActiveUserID), []byte(userID))
	})
	if err != nil {
		return false, fmt.Errorf("failed to switch account: %w", err)
	}
	return wiped, nil
}

func getInt64(b *bbolt.Bucket, key string) int64 {
	return decodeInt64(b.Get([]byte(key)))
}

func getBool(b *bbolt.Bucket, key string) bool {
	v := b.Get([]byte(key))
	return len(v) == 1 && v[0] == 1
}

func putBool(b *bbolt.Bucket, key string, v bool) error {
	var raw byte
	if v {
		raw = 1
	}
	return b.Put([]byte(key), []byte{raw})
}
