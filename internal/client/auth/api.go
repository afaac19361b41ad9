package auth

import (
	"context"

	pkgapi "github.com/iudanet/vaultsync/pkg/api"
)

//go:generate moq -out api_mock.go . API

// API запросы к серверу, которые нужны менеджеру сессии.
// Реализуется *api.Client.
type API interface {
	Register(ctx context.Context, req pkgapi.AuthRequest) (*pkgapi.TokenResponse, error)
	Login(ctx context.Context, req pkgapi.AuthRequest) (*pkgapi.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetEnvelope(ctx context.Context, accessToken string) (*pkgapi.KeyEnvelope, error)
	PutEnvelope(ctx context.Context, accessToken string, env *pkgapi.KeyEnvelope) (*pkgapi.KeyEnvelope, error)
}
