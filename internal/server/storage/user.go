package storage

import (
	"context"

	"github.com/iudanet/vaultsync/internal/models"
)

// UserStorage defines interface for user data persistence
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if username already exists
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByUsername retrieves user by username
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// UpdateLastLogin updates the last login timestamp (ms)
	UpdateLastLogin(ctx context.Context, userID string, at int64) error

	// SetPendingMFASecret stores a TOTP secret awaiting confirmation
	SetPendingMFASecret(ctx context.Context, userID, secret string) error

	// EnableMFA promotes the pending secret to the active one
	// Returns ErrNoPendingMFA if there is nothing to confirm
	EnableMFA(ctx context.Context, userID string) error
}

// DeviceStorage defines interface for device tracking
type DeviceStorage interface {
	// UpsertDevice registers the install clientID for the user or refreshes its name and last seen time
	UpsertDevice(ctx context.Context, device *models.Device) (*models.Device, error)

	// GetDevice returns ErrDeviceNotFound if device doesn't exist
	GetDevice(ctx context.Context, deviceID string) (*models.Device, error)

	// ListDevices returns user's devices, most recently seen first
	ListDevices(ctx context.Context, userID string) ([]*models.Device, error)

	// TouchDevice updates last seen time
	TouchDevice(ctx context.Context, deviceID string, at int64) error
}
