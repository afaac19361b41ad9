package storage

import "errors"

// Common client storage errors
var (
	// ErrRecordNotFound indicates that record does not exist locally
	ErrRecordNotFound = errors.New("record not found")

	// ErrSessionNotFound indicates that no session is stored
	ErrSessionNotFound = errors.New("session not found")

	// ErrEnvelopeNotFound indicates that no key envelope is cached locally
	ErrEnvelopeNotFound = errors.New("key envelope not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSchemaTooNew indicates that the store was written by a newer application version
	ErrSchemaTooNew = errors.New("local store schema is newer than supported, upgrade the application")
)
