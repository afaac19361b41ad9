// Package data шифрует секреты записей ключом хранилища и сохраняет их
// через локальное хранилище. Движок синхронизации видит только шифртекст.
package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iudanet/vaultsync/internal/client/storage"
	"github.com/iudanet/vaultsync/internal/crypto"
	"github.com/iudanet/vaultsync/internal/models"
	"github.com/iudanet/vaultsync/internal/validation"
	"github.com/iudanet/vaultsync/pkg/api"
)

// ErrEmptyLabel запись без названия
var ErrEmptyLabel = errors.New("label is required")

// Store часть локального хранилища, нужная сервису
type Store interface {
	UpsertLocal(ctx context.Context, id string, fields models.RecordFields) (*models.Record, error)
	DeleteLocal(ctx context.Context, id string) (bool, error)
	GetRecord(ctx context.Context, id string) (*models.Record, error)
	ListRecords(ctx context.Context) ([]*models.Record, error)
}

// Fields открытые поля записи и ее секрет
type Fields struct {
	Label    string
	URL      string
	Category string
	Secret   models.Secret
}

// Entry расшифрованная запись
type Entry struct {
	Fields
	ID        string
	CreatedAt int64
	UpdatedAt int64
}

// Service handles client-side record operations with encryption
type Service struct {
	store  Store
	sealer *crypto.RecordSealer
}

// NewService creates a new data service for the unlocked vault key
func NewService(store Store, vaultKey []byte) (*Service, error) {
	sealer, err := crypto.NewRecordSealer(vaultKey)
	if err != nil {
		return nil, err
	}
	return &Service{store: store, sealer: sealer}, nil
}

// Add шифрует и сохраняет новую запись
func (s *Service) Add(ctx context.Context, f Fields) (*models.Record, error) {
	return s.save(ctx, uuid.New().String(), f)
}

// Update заменяет существующую запись
func (s *Service) Update(ctx context.Context, id string, f Fields) (*models.Record, error) {
	if _, err := s.store.GetRecord(ctx, id); err != nil {
		return nil, err
	}
	return s.save(ctx, id, f)
}

func (s *Service) save(ctx context.Context, id string, f Fields) (*models.Record, error) {
	if strings.TrimSpace(f.Label) == "" {
		return nil, ErrEmptyLabel
	}

	plaintext, err := json.Marshal(f.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal secret: %w", err)
	}

	ciphertext, nonce, tag, err := s.sealer.Seal(id, plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret: %w", err)
	}

	// UpdatedAt назначит хранилище
	if err := validation.ValidateChange(api.Change{
		ItemID:     id,
		Label:      f.Label,
		URL:        f.URL,
		Category:   f.Category,
		Ciphertext: ciphertext,
		IV:         nonce,
		AuthTag:    tag,
		UpdatedAt:  1,
	}); err != nil {
		return nil, err
	}

	rec, err := s.store.UpsertLocal(ctx, id, models.RecordFields{
		Label:      f.Label,
		URL:        f.URL,
		Category:   f.Category,
		Ciphertext: ciphertext,
		Nonce:      nonce,
		AuthTag:    tag,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save record: %w", err)
	}
	return rec, nil
}

// Get retrieves and decrypts a record by ID
func (s *Service) Get(ctx context.Context, id string) (*Entry, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.sealer.Open(rec.ID, rec.Ciphertext, rec.Nonce, rec.AuthTag)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt record %s: %w", id, err)
	}

	var secret models.Secret
	if err := json.Unmarshal(plaintext, &secret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secret: %w", err)
	}

	return &Entry{
		Fields: Fields{
			Label:    rec.Label,
			URL:      rec.URL,
			Category: rec.Category,
			Secret:   secret,
		},
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// List возвращает записи, у которых label, url или category содержат query
// без учета регистра. Пустой query возвращает все записи. Секреты не расшифровываются.
func (s *Service) List(ctx context.Context, query string) ([]*models.Record, error) {
	records, err := s.store.ListRecords(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return records, nil
	}

	matched := make([]*models.Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Label), query) ||
			strings.Contains(strings.ToLower(r.URL), query) ||
			strings.Contains(strings.ToLower(r.Category), query) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// Delete удаляет запись
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.store.DeleteLocal(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return storage.ErrRecordNotFound
	}
	return nil
}
