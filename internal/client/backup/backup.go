// Package backup экспортирует и импортирует записи хранилища в файл,
// зашифрованный age по паролю (scrypt).
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"filippo.io/age"

	"github.com/iudanet/vaultsync/internal/crdt"
	"github.com/iudanet/vaultsync/internal/models"
)

// FormatVersion версия формата файла экспорта
const FormatVersion = 1

// ErrUnsupportedFormat файл экспорта другой версии
var ErrUnsupportedFormat = errors.New("unsupported backup format")

// Source записи, которые попадают в экспорт
type Source interface {
	ListRecords(ctx context.Context) ([]*models.Record, error)
	ListTombstonesSince(ctx context.Context, ts int64, limit int) ([]models.Tombstone, error)
}

// Sink принимает импортированные изменения по LWW
type Sink interface {
	ImportChange(ctx context.Context, change models.Change) (crdt.Decision, error)
}

// Archive содержимое файла экспорта. Секреты остаются зашифрованы ключом хранилища.
type Archive struct {
	Records    []*models.Record   `json:"records"`
	Tombstones []models.Tombstone `json:"tombstones"`
	Version    int                `json:"version"`
	ExportedAt int64              `json:"exportedAt"`
}

// ImportResult итог импорта
type ImportResult struct {
	Records    int
	Tombstones int
	Applied    int
	Skipped    int
}

// Option настраивает экспорт
type Option func(*options)

type options struct {
	now        func() time.Time
	workFactor int
}

// WithWorkFactor задает log2 параметра N scrypt при шифровании
func WithWorkFactor(logN int) Option {
	return func(o *options) { o.workFactor = logN }
}

// WithNow подменяет время экспорта
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Export пишет все записи и tombstone в w, зашифровав их паролем
func Export(ctx context.Context, src Source, w io.Writer, passphrase string, opts ...Option) (*Archive, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	records, err := src.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	tombstones, err := src.ListTombstonesSince(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list tombstones: %w", err)
	}

	archive := &Archive{
		Version:    FormatVersion,
		ExportedAt: o.now().UnixMilli(),
		Records:    records,
		Tombstones: tombstones,
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if o.workFactor > 0 {
		recipient.SetWorkFactor(o.workFactor)
	}

	encWriter, err := age.Encrypt(w, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	if err := json.NewEncoder(encWriter).Encode(archive); err != nil {
		return nil, fmt.Errorf("encrypting backup: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}

	return archive, nil
}

// Read расшифровывает файл экспорта
func Read(r io.Reader, passphrase string) (*Archive, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	plain, err := age.Decrypt(r, identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting backup: %w", err)
	}

	var archive Archive
	if err := json.NewDecoder(plain).Decode(&archive); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if archive.Version != FormatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedFormat, archive.Version)
	}
	return &archive, nil
}

// Import сливает архив в хранилище по LWW. Примененные изменения
// ставятся в outbox и уйдут на сервер при следующей синхронизации.
func Import(ctx context.Context, dst Sink, r io.Reader, passphrase string) (*ImportResult, error) {
	archive, err := Read(r, passphrase)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{Records: len(archive.Records), Tombstones: len(archive.Tombstones)}
	changes := make([]models.Change, 0, len(archive.Records)+len(archive.Tombstones))
	for _, rec := range archive.Records {
		if rec == nil {
			continue
		}
		changes = append(changes, models.UpsertChange(rec))
	}
	for _, tomb := range archive.Tombstones {
		changes = append(changes, models.DeleteChange(tomb.ID, tomb.UpdatedAt))
	}

	for _, change := range changes {
		if err := change.Validate(); err != nil {
			res.Skipped++
			continue
		}
		decision, err := dst.ImportChange(ctx, change)
		if err != nil {
			return nil, err
		}
		if decision.Applied {
			res.Applied++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}
