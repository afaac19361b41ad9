package storage

import (
	"context"

	"github.com/iudanet/vaultsync/internal/models"
)

// SessionStore defines storage for the device session and identity
type SessionStore interface {
	// SaveSession replaces the current session
	SaveSession(ctx context.Context, session *models.Session) error

	// GetSession returns ErrSessionNotFound if nobody is logged in
	GetSession(ctx context.Context) (*models.Session, error)

	// DeleteSession removes the session, no error if absent
	DeleteSession(ctx context.Context) error

	// ClientID returns the install id, generating it on first use
	ClientID(ctx context.Context) (string, error)

	// SaveEnvelope caches the wrapped vault key
	SaveEnvelope(ctx context.Context, env *models.KeyEnvelope) error

	// GetEnvelope returns ErrEnvelopeNotFound if nothing is cached
	GetEnvelope(ctx context.Context) (*models.KeyEnvelope, error)
}
