package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/vaultsync/internal/models"
	"github.com/iudanet/vaultsync/internal/server/storage"
)

const userColumns = `id, username, password_hash, mfa_secret, mfa_pending_secret, mfa_enabled, last_seq, created_at, last_login_at`

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, mfa_secret, mfa_pending_secret, mfa_enabled, last_seq, created_at, last_login_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		user.ID,
		user.Username,
		user.PasswordHash,
		user.MFASecret,
		user.MFAPendingSecret,
		user.MFAEnabled,
		user.CreatedAt,
		user.LastLoginAt,
	)
	if err != nil {
		// Проверяем на duplicate username
		if isUniqueViolation(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByUsername retrieves user by username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, s.rebind(query), username))
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, s.rebind(query), userID))
}

// UpdateLastLogin updates the last login timestamp
func (s *Storage) UpdateLastLogin(ctx context.Context, userID string, at int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE users SET last_login_at = ? WHERE id = ?`), at, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return expectOneRow(res, storage.ErrUserNotFound)
}

// SetPendingMFASecret stores a TOTP secret awaiting confirmation
func (s *Storage) SetPendingMFASecret(ctx context.Context, userID, secret string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE users SET mfa_pending_secret = ? WHERE id = ?`), secret, userID)
	if err != nil {
		return fmt.Errorf("failed to save pending mfa secret: %w", err)
	}
	return expectOneRow(res, storage.ErrUserNotFound)
}

// EnableMFA promotes the pending secret
func (s *Storage) EnableMFA(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET mfa_secret = mfa_pending_secret, mfa_pending_secret = '', mfa_enabled = ?
		WHERE id = ? AND mfa_pending_secret <> ''
	`
	res, err := s.db.ExecContext(ctx, s.rebind(query), true, userID)
	if err != nil {
		return fmt.Errorf("failed to enable mfa: %w", err)
	}
	return expectOneRow(res, storage.ErrNoPendingMFA)
}

func (s *Storage) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.MFASecret,
		&user.MFAPendingSecret,
		&user.MFAEnabled,
		&user.LastSeq,
		&user.CreatedAt,
		&user.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
