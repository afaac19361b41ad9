// Package auth управляет сессией устройства: регистрация, вход, выход,
// обновление токенов и конверт ключа хранилища.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/singleflight"

	"github.com/iudanet/vaultsync/internal/client/api"
	"github.com/iudanet/vaultsync/internal/client/storage"
	"github.com/iudanet/vaultsync/internal/crypto"
	"github.com/iudanet/vaultsync/internal/models"
	"github.com/iudanet/vaultsync/internal/validation"
	"github.com/iudanet/vaultsync/internal/wire"
	pkgapi "github.com/iudanet/vaultsync/pkg/api"
)

// ErrNotLoggedIn нет сессии или ее не удалось обновить
var ErrNotLoggedIn = errors.New("not logged in")

// AccountSwitcher фиксирует активный аккаунт устройства.
// Реализуется boltdb.Storage.
type AccountSwitcher interface {
	SwitchAccount(ctx context.Context, userID string) (bool, error)
}

// Result итог регистрации или входа
type Result struct {
	Session  *models.Session
	VaultKey []byte
	Switched bool // локальные данные предыдущего аккаунта удалены
}

// Manager управляет сессией устройства
type Manager struct {
	api          API
	sessions     storage.SessionStore
	accounts     AccountSwitcher
	logger       *slog.Logger
	refreshGroup singleflight.Group
	deviceName   string
	kdf          models.KDFParams
}

// Option настраивает Manager
type Option func(*Manager)

// WithKDFParams задает параметры argon2id для новых конвертов ключа
func WithKDFParams(p models.KDFParams) Option {
	return func(m *Manager) { m.kdf = p }
}

// WithDeviceName задает имя устройства, которое увидит сервер
func WithDeviceName(name string) Option {
	return func(m *Manager) { m.deviceName = name }
}

// NewManager создает менеджер сессии
func NewManager(apiClient API, sessions storage.SessionStore, accounts AccountSwitcher, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		api:      apiClient,
		sessions: sessions,
		accounts: accounts,
		logger:   logger,
		kdf:      crypto.DefaultKDFParams(),
	}
	if host, err := os.Hostname(); err == nil && validation.ValidateDeviceName(host) == nil {
		m.deviceName = host
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register создает аккаунт, новый ключ хранилища и его конверт
func (m *Manager) Register(ctx context.Context, username, password string) (*Result, error) {
	clientID, err := m.sessions.ClientID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateRegistration(username, password, m.deviceName, clientID); err != nil {
		return nil, err
	}

	vaultKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate vault key: %w", err)
	}
	env, err := crypto.WrapKey(vaultKey, password, m.kdf)
	if err != nil {
		return nil, err
	}

	resp, err := m.api.Register(ctx, pkgapi.AuthRequest{
		Username:   username,
		Password:   password,
		DeviceName: m.deviceName,
		ClientID:   clientID,
	})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	session, switched, err := m.adopt(ctx, username, resp)
	if err != nil {
		return nil, err
	}

	if err := m.uploadEnvelope(ctx, session, env); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "registered", "user_id", session.UserID, "device_id", session.DeviceID)
	return &Result{Session: session, VaultKey: vaultKey, Switched: switched}, nil
}

// Login входит в аккаунт и раскрывает ключ хранилища паролем.
// Возвращает *api.MFARequiredError, если нужен код второго фактора.
func (m *Manager) Login(ctx context.Context, username, password, mfaCode string) (*Result, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is empty", validation.ErrInvalidPassword)
	}

	clientID, err := m.sessions.ClientID(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := m.api.Login(ctx, pkgapi.AuthRequest{
		Username:   username,
		Password:   password,
		DeviceName: m.deviceName,
		ClientID:   clientID,
		MFACode:    mfaCode,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	session, switched, err := m.adopt(ctx, username, resp)
	if err != nil {
		return nil, err
	}
	if switched {
		m.logger.InfoContext(ctx, "account switched, local data of the previous account wiped", "user_id", session.UserID)
	}

	vaultKey, err := m.resolveEnvelope(ctx, session, password)
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "logged in", "user_id", session.UserID, "device_id", session.DeviceID)
	return &Result{Session: session, VaultKey: vaultKey, Switched: switched}, nil
}

// adopt делает аккаунт из ответа активным и сохраняет сессию.
// Данные другого аккаунта удаляются до сохранения новой сессии.
func (m *Manager) adopt(ctx context.Context, username string, resp *pkgapi.TokenResponse) (*models.Session, bool, error) {
	switched, err := m.accounts.SwitchAccount(ctx, resp.UserID)
	if err != nil {
		return nil, false, err
	}

	session := wire.SessionFromAPI(username, resp)
	if err := m.sessions.SaveSession(ctx, session); err != nil {
		return nil, false, fmt.Errorf("failed to save session: %w", err)
	}
	return session, switched, nil
}

// resolveEnvelope берет конверт с сервера; если там пусто, загружает локальный
// или создает новый ключ
func (m *Manager) resolveEnvelope(ctx context.Context, session *models.Session, password string) ([]byte, error) {
	remote, err := m.api.GetEnvelope(ctx, session.AccessToken)
	if err != nil {
		m.logger.WarnContext(ctx, "failed to fetch key envelope, using local copy", "error", err)
		return m.UnlockVault(ctx, password)
	}

	if remote != nil {
		env := wire.EnvelopeFromAPI(remote)
		key, err := crypto.UnwrapKey(env, password)
		if err != nil {
			return nil, fmt.Errorf("failed to unlock vault key: %w", err)
		}
		if err := m.sessions.SaveEnvelope(ctx, env); err != nil {
			return nil, err
		}
		return key, nil
	}

	env, err := m.sessions.GetEnvelope(ctx)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrEnvelopeNotFound):
		m.logger.InfoContext(ctx, "account has no key envelope, creating a new vault key")
		key, genErr := crypto.GenerateKey()
		if genErr != nil {
			return nil, fmt.Errorf("failed to generate vault key: %w", genErr)
		}
		if env, err = crypto.WrapKey(key, password, m.kdf); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	key, err := crypto.UnwrapKey(env, password)
	if err != nil {
		return nil, fmt.Errorf("failed to unlock vault key: %w", err)
	}
	if err := m.uploadEnvelope(ctx, session, env); err != nil {
		return nil, err
	}
	return key, nil
}

// uploadEnvelope сохраняет конверт локально и отправляет его на сервер.
// Ошибка сети не фатальна: конверт будет отправлен при следующем входе.
func (m *Manager) uploadEnvelope(ctx context.Context, session *models.Session, env *models.KeyEnvelope) error {
	if err := m.sessions.SaveEnvelope(ctx, env); err != nil {
		return err
	}

	stored, err := m.api.PutEnvelope(ctx, session.AccessToken, wire.EnvelopeToAPI(env))
	if err != nil {
		m.logger.WarnContext(ctx, "failed to upload key envelope", "error", err)
		return nil
	}
	if stored != nil {
		return m.sessions.SaveEnvelope(ctx, wire.EnvelopeFromAPI(stored))
	}
	return nil
}

// UnlockVault раскрывает локально сохраненный конверт паролем
func (m *Manager) UnlockVault(ctx context.Context, password string) ([]byte, error) {
	env, err := m.sessions.GetEnvelope(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrEnvelopeNotFound) {
			return nil, fmt.Errorf("no key envelope on this device, log in first: %w", err)
		}
		return nil, err
	}
	return crypto.UnwrapKey(env, password)
}

// Logout отзывает refresh token на сервере (best effort) и всегда удаляет локальную сессию
func (m *Manager) Logout(ctx context.Context) error {
	session, err := m.sessions.GetSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	if err := m.api.Logout(ctx, session.RefreshToken); err != nil {
		m.logger.WarnContext(ctx, "failed to logout on server", "error", err)
	}

	if err := m.sessions.DeleteSession(ctx); err != nil {
		return fmt.Errorf("failed to delete local session: %w", err)
	}
	return nil
}

// Session возвращает текущую сессию или ErrNotLoggedIn
func (m *Manager) Session(ctx context.Context) (*models.Session, error) {
	session, err := m.sessions.GetSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, err
	}
	return session, nil
}

// Do вызывает fn с access token. Если сервер ответил 401, сессия обновляется
// один раз и fn повторяется один раз.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context, accessToken string) error) error {
	session, err := m.Session(ctx)
	if err != nil {
		return err
	}

	err = fn(ctx, session.AccessToken)
	if !errors.Is(err, api.ErrUnauthorized) {
		return err
	}

	m.logger.DebugContext(ctx, "access token rejected, refreshing session")
	token, err := m.refresh(ctx, session.AccessToken)
	if err != nil {
		return err
	}
	return fn(ctx, token)
}

// refresh обменивает refresh token. Параллельные вызовы разделяют один запрос.
func (m *Manager) refresh(ctx context.Context, staleToken string) (string, error) {
	v, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		session, err := m.Session(ctx)
		if err != nil {
			return "", err
		}
		if session.AccessToken != staleToken {
			// сессию уже обновил другой вызов
			return session.AccessToken, nil
		}

		resp, err := m.api.Refresh(ctx, session.RefreshToken)
		if err != nil {
			if errors.Is(err, api.ErrUnauthorized) {
				if delErr := m.sessions.DeleteSession(ctx); delErr != nil {
					m.logger.ErrorContext(ctx, "failed to delete expired session", "error", delErr)
				}
				return "", fmt.Errorf("%w: session expired", ErrNotLoggedIn)
			}
			return "", fmt.Errorf("failed to refresh session: %w", err)
		}

		next := wire.SessionFromAPI(session.Username, resp)
		if err := m.sessions.SaveSession(ctx, next); err != nil {
			return "", fmt.Errorf("failed to save session: %w", err)
		}
		m.logger.DebugContext(ctx, "session refreshed")
		return next.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
