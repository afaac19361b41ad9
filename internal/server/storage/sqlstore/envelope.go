package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/vaultsync/internal/models"
	"github.com/iudanet/vaultsync/internal/server/storage"
)

// GetEnvelope returns user's key envelope
func (s *Storage) GetEnvelope(ctx context.Context, userID string) (*models.KeyEnvelope, error) {
	var body string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT body FROM key_envelopes WHERE user_id = ?`), userID).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEnvelopeNotFound
		}
		return nil, fmt.Errorf("failed to get key envelope: %w", err)
	}

	env := &models.KeyEnvelope{}
	if err := json.Unmarshal([]byte(body), env); err != nil {
		return nil, fmt.Errorf("failed to decode key envelope: %w", err)
	}
	return env, nil
}

// PutEnvelope replaces user's key envelope
func (s *Storage) PutEnvelope(ctx context.Context, userID string, env *models.KeyEnvelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode key envelope: %w", err)
	}

	query := `
		INSERT INTO key_envelopes (user_id, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, s.rebind(query), userID, string(body), env.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save key envelope: %w", err)
	}
	return nil
}
