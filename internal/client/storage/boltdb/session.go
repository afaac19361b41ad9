package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/iudanet/vaultsync/internal/client/storage"
	"github.com/iudanet/vaultsync/internal/models"
)

const (
	keySession  = "current"
	keyClientID = "client_id"
	keyEnvelope = "envelope"
)

// SaveSession stores the current session
func (s *Storage) SaveSession(ctx context.Context, session *models.Session) error {
	return s.update(func(tx *bbolt.Tx) error {
		if err := putJSON(tx.Bucket(bucketSession), keySession, session); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
}

// GetSession retrieves the current session
func (s *Storage) GetSession(ctx context.Context) (*models.Session, error) {
	var session *models.Session
	err := s.view(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSession).Get([]byte(keySession))
		if data == nil {
			return storage.ErrSessionNotFound
		}
		session = &models.Session{}
		if err := json.Unmarshal(data, session); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession removes the current session
func (s *Storage) DeleteSession(ctx context.Context) error {
	return s.update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSession).Delete([]byte(keySession))
	})
}

// ClientID returns the install id, generating it once
func (s *Storage) ClientID(ctx context.Context) (string, error) {
	var id string
	err := s.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if raw := b.Get([]byte(keyClientID)); raw != nil {
			id = string(raw)
			return nil
		}
		id = uuid.NewString()
		return b.Put([]byte(keyClientID), []byte(id))
	})
	if err != nil {
		return "", fmt.Errorf("failed to get client id: %w", err)
	}
	return id, nil
}

// SaveEnvelope caches the wrapped vault key
func (s *Storage) SaveEnvelope(ctx context.Context, env *models.KeyEnvelope) error {
	return s.update(func(tx *bbolt.Tx) error {
		if err := putJSON(tx.Bucket(bucketSession), keyEnvelope, env); err != nil {
			return fmt.Errorf("failed to save key envelope: %w", err)
		}
		return nil
	})
}

// GetEnvelope returns the cached wrapped vault key
func (s *Storage) GetEnvelope(ctx context.Context) (*models.KeyEnvelope, error) {
	var env *models.KeyEnvelope
	err := s.view(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSession).Get([]byte(keyEnvelope))
		if data == nil {
			return storage.ErrEnvelopeNotFound
		}
		env = &models.KeyEnvelope{}
		if err := json.Unmarshal(data, env); err != nil {
			return fmt.Errorf("failed to unmarshal key envelope: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}
