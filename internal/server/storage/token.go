package storage

import (
	"context"

	"github.com/iudanet/vaultsync/internal/models"
)

// TokenStorage defines interface for refresh token persistence.
// Tokens are addressed by their SHA-256 hash.
type TokenStorage interface {
	// SaveRefreshToken stores a new refresh token
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error

	// GetRefreshToken retrieves refresh token by hash
	// Returns ErrTokenNotFound if token doesn't exist
	GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// RotateRefreshToken atomically deletes the old token and stores the next one
	// Returns ErrTokenNotFound if the old token was already used
	RotateRefreshToken(ctx context.Context, oldHash string, next *models.RefreshToken) error

	// DeleteRefreshToken deletes refresh token by hash
	// Returns ErrTokenNotFound if token doesn't exist
	DeleteRefreshToken(ctx context.Context, tokenHash string) error

	// DeleteExpiredTokens removes tokens expired before now (ms)
	// Returns number of deleted tokens
	DeleteExpiredTokens(ctx context.Context, now int64) (int, error)
}
