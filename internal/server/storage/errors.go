package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this username already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrDeviceNotFound indicates that device was not found in storage
	ErrDeviceNotFound = errors.New("device not found")

	// ErrTokenNotFound indicates that refresh token was not found
	ErrTokenNotFound = errors.New("token not found")

	// ErrNoPendingMFA indicates that MFA confirmation has nothing to confirm
	ErrNoPendingMFA = errors.New("no pending mfa enrollment")

	// ErrEnvelopeNotFound indicates that user has no key envelope yet
	ErrEnvelopeNotFound = errors.New("key envelope not found")

	// ErrSchemaTooNew indicates that the database was migrated by a newer server version
	ErrSchemaTooNew = errors.New("database schema is newer than supported, upgrade the server")
)
