package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/vaultsync/internal/client/storage"
	"github.com/iudanet/vaultsync/internal/crdt"
)

// CurrentSchemaVersion версия схемы локального хранилища, которую понимает этот код
const CurrentSchemaVersion int64 = 1

var (
	// BoltDB bucket names
	bucketRecords    = []byte("records")
	bucketTombstones = []byte("tombstones")
	bucketOutbox     = []byte("outbox")
	bucketSyncState  = []byte("sync_state")
	bucketSession    = []byte("session")
	bucketMeta       = []byte("meta")

	keySchemaVersion = []byte("schema_version")
)

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db    *bbolt.DB
	clock crdt.Clock
	// mu охраняет db: транзакции держат RLock, Close берет Lock
	mu sync.RWMutex
}

var (
	_ storage.RecordStore    = (*Storage)(nil)
	_ storage.ChangeLog      = (*Storage)(nil)
	_ storage.SyncStateStore = (*Storage)(nil)
	_ storage.SessionStore   = (*Storage)(nil)
)

// Option настраивает Storage
type Option func(*Storage)

// WithClock задает часы для штампов локальных изменений
func WithClock(clock crdt.Clock) Option {
	return func(s *Storage) {
		s.clock = clock
	}
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string, opts ...Option) (*Storage, error) {
	// Открываем BoltDB, не ждем бесконечно, если файл занят другим процессом
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db, clock: crdt.NewMonotonicClock()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initBuckets(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets создает необходимые buckets и проверяет версию схемы
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketRecords, bucketTombstones, bucketOutbox, bucketSyncState, bucketSession, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketMeta)
		if raw := meta.Get(keySchemaVersion); raw != nil {
			version := decodeInt64(raw)
			if version > CurrentSchemaVersion {
				return fmt.Errorf("%w: store version %d, supported %d", storage.ErrSchemaTooNew, version, CurrentSchemaVersion)
			}
			if version == CurrentSchemaVersion {
				return nil
			}
		}

		return meta.Put(keySchemaVersion, encodeInt64(CurrentSchemaVersion))
	})
}

func (s *Storage) update(fn func(tx *bbolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.Update(fn)
}

func (s *Storage) view(fn func(tx *bbolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.View(fn)
}

func encodeInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func decodeInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}
