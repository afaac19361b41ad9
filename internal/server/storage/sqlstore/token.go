package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/vaultsync/internal/models"
	"github.com/iudanet/vaultsync/internal/server/storage"
)

// SaveRefreshToken stores a new refresh token
func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return insertToken(ctx, s.db, s.rebind, token)
}

// GetRefreshToken retrieves refresh token by hash
func (s *Storage) GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `
		SELECT token_hash, user_id, device_id, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = ?
	`

	t := &models.RefreshToken{}
	err := s.db.QueryRowContext(ctx, s.rebind(query), tokenHash).
		Scan(&t.TokenHash, &t.UserID, &t.DeviceID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return t, nil
}

// RotateRefreshToken deletes the old token and stores the next one in one transaction
func (s *Storage) RotateRefreshToken(ctx context.Context, oldHash string, next *models.RefreshToken) error {
	return s.withTx(ctx, func(tx dbtx) error {
		res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM refresh_tokens WHERE token_hash = ?`), oldHash)
		if err != nil {
			return fmt.Errorf("failed to delete refresh token: %w", err)
		}
		if err := expectOneRow(res, storage.ErrTokenNotFound); err != nil {
			return err
		}
		return insertToken(ctx, tx, s.rebind, next)
	})
}

// DeleteRefreshToken deletes refresh token by hash
func (s *Storage) DeleteRefreshToken(ctx context.Context, tokenHash string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM refresh_tokens WHERE token_hash = ?`), tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return expectOneRow(res, storage.ErrTokenNotFound)
}

// DeleteExpiredTokens removes all tokens expired before now
func (s *Storage) DeleteExpiredTokens(ctx context.Context, now int64) (int, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM refresh_tokens WHERE expires_at < ?`), now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

func insertToken(ctx context.Context, db dbtx, rebind func(string) string, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (token_hash, user_id, device_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, rebind(query),
		token.TokenHash,
		token.UserID,
		token.DeviceID,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}
