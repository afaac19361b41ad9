package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"

	"github.com/iudanet/vaultsync/internal/crypto"
	"github.com/iudanet/vaultsync/internal/models"
	"github.com/iudanet/vaultsync/internal/server/jwt"
	"github.com/iudanet/vaultsync/internal/server/storage"
	"github.com/iudanet/vaultsync/internal/validation"
	"github.com/iudanet/vaultsync/pkg/api"
)

// mfaIssuer имя сервиса в приложении-аутентификаторе
const mfaIssuer = "VaultSync"

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger         *slog.Logger
	users          storage.UserStorage
	devices        storage.DeviceStorage
	tokens         storage.TokenStorage
	jwt            *jwt.Service
	now            func() time.Time
	passwordParams crypto.PasswordParams
	dummyHash      string
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(
	logger *slog.Logger,
	users storage.UserStorage,
	devices storage.DeviceStorage,
	tokens storage.TokenStorage,
	jwtService *jwt.Service,
	passwordParams crypto.PasswordParams,
) *AuthHandler {
	// Хеш-заглушка выравнивает время ответа для несуществующих пользователей
	dummy, _ := crypto.HashPassword(uuid.NewString(), passwordParams)

	return &AuthHandler{
		logger:         logger,
		users:          users,
		devices:        devices,
		tokens:         tokens,
		jwt:            jwtService,
		now:            time.Now,
		passwordParams: passwordParams,
		dummyHash:      dummy,
	}
}

// Register обрабатывает POST /v1/auth/register
// Создает аккаунт и первую сессию устройства
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.AuthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode register request", slog.Any("error", err))
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateRegistration(req.Username, req.Password, req.DeviceName, req.ClientID); err != nil {
		h.logger.WarnContext(ctx, "invalid registration", slog.String("username", req.Username), slog.Any("error", err))
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	hash, err := crypto.HashPassword(req.Password, h.passwordParams)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	now := h.now().UnixMilli()
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		PasswordHash: hash,
		CreatedAt:    now,
		LastLoginAt:  now,
	}

	if err := h.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.logger.WarnContext(ctx, "user already exists", slog.String("username", req.Username))
			sendError(w, h.logger, "username already taken", http.StatusConflict)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	resp, err := h.issueSession(ctx, user, req.ClientID, req.DeviceName)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue session", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user registered successfully",
		slog.String("username", req.Username),
		slog.String("user_id", user.ID),
		slog.String("device_id", resp.DeviceID))

	sendJSON(w, h.logger, resp, http.StatusCreated)
}

// Login обрабатывает POST /v1/auth/login
// Проверяет пароль и, если включен, второй фактор
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.AuthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateUsername(req.Username); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateClientID(req.ClientID); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateDeviceName(req.DeviceName); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByUsername(ctx, req.Username)
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	encoded := h.dummyHash
	if user != nil {
		encoded = user.PasswordHash
	}
	ok, err := crypto.VerifyPassword(req.Password, encoded)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to verify password", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}
	if !ok || user == nil {
		h.logger.WarnContext(ctx, "login failed: invalid credentials", slog.String("username", req.Username))
		sendError(w, h.logger, "invalid credentials", http.StatusUnauthorized)
		return
	}

	if user.MFAEnabled {
		if req.MFACode == "" {
			h.logger.InfoContext(ctx, "login requires second factor", slog.String("user_id", user.ID))
			sendJSON(w, h.logger, api.ErrorResponse{
				Error:       http.StatusText(http.StatusUnauthorized),
				Message:     "second factor code required",
				MFARequired: true,
			}, http.StatusUnauthorized)
			return
		}
		if !totp.Validate(req.MFACode, user.MFASecret) {
			h.logger.WarnContext(ctx, "login failed: invalid second factor", slog.String("user_id", user.ID))
			sendError(w, h.logger, "invalid credentials", http.StatusUnauthorized)
			return
		}
	}

	resp, err := h.issueSession(ctx, user, req.ClientID, req.DeviceName)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue session", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.users.UpdateLastLogin(ctx, user.ID, h.now().UnixMilli()); err != nil {
		// Не критичная ошибка, логируем но не прерываем
		h.logger.WarnContext(ctx, "failed to update last login", slog.Any("error", err))
	}

	h.logger.InfoContext(ctx, "user logged in successfully",
		slog.String("username", req.Username),
		slog.String("user_id", user.ID),
		slog.String("device_id", resp.DeviceID))

	sendJSON(w, h.logger, resp, http.StatusOK)
}

// Refresh обрабатывает POST /v1/auth/refresh
// Обменивает refresh token на новую пару, старый токен становится недействительным
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		sendError(w, h.logger, "refresh token is required", http.StatusBadRequest)
		return
	}

	oldHash := crypto.HashToken(req.RefreshToken)
	stored, err := h.tokens.GetRefreshToken(ctx, oldHash)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			h.logger.WarnContext(ctx, "refresh token not found")
			sendError(w, h.logger, "invalid refresh token", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get refresh token", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	now := h.now()
	if now.UnixMilli() >= stored.ExpiresAt {
		h.logger.WarnContext(ctx, "refresh token expired", slog.String("user_id", stored.UserID))
		if err := h.tokens.DeleteRefreshToken(ctx, oldHash); err != nil && !errors.Is(err, storage.ErrTokenNotFound) {
			h.logger.WarnContext(ctx, "failed to delete expired refresh token", slog.Any("error", err))
		}
		sendError(w, h.logger, "refresh token expired", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetUserByID(ctx, stored.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	access, err := h.jwt.GenerateAccessToken(user.ID, user.Username, stored.DeviceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	refresh, expiresAt, err := h.jwt.GenerateRefreshToken()
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate refresh token", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	next := &models.RefreshToken{
		TokenHash: crypto.HashToken(refresh),
		UserID:    user.ID,
		DeviceID:  stored.DeviceID,
		ExpiresAt: expiresAt.UnixMilli(),
		CreatedAt: now.UnixMilli(),
	}
	if err := h.tokens.RotateRefreshToken(ctx, oldHash, next); err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			// Токен уже обменян параллельным запросом
			h.logger.WarnContext(ctx, "refresh token reused", slog.String("user_id", user.ID))
			sendError(w, h.logger, "invalid refresh token", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to rotate refresh token", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.devices.TouchDevice(ctx, stored.DeviceID, now.UnixMilli()); err != nil {
		h.logger.WarnContext(ctx, "failed to touch device", slog.Any("error", err))
	}

	h.logger.InfoContext(ctx, "tokens refreshed successfully", slog.String("user_id", user.ID))

	sendJSON(w, h.logger, api.TokenResponse{
		UserID:           user.ID,
		DeviceID:         stored.DeviceID,
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: next.ExpiresAt,
	}, http.StatusOK)
}

// Logout обрабатывает POST /v1/auth/logout
// Удаляет refresh token текущей сессии. Неизвестный токен не является ошибкой.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LogoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.RefreshToken != "" {
		err := h.tokens.DeleteRefreshToken(ctx, crypto.HashToken(req.RefreshToken))
		switch {
		case err == nil:
			h.logger.InfoContext(ctx, "session logged out")
		case errors.Is(err, storage.ErrTokenNotFound):
			h.logger.DebugContext(ctx, "logout with unknown refresh token")
		default:
			h.logger.ErrorContext(ctx, "failed to delete refresh token", slog.Any("error", err))
			sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

// MFAEnroll обрабатывает POST /v1/auth/mfa/enroll
// Генерирует секрет TOTP и сохраняет его до подтверждения
func (h *AuthHandler) MFAEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		sendError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}
	username, _ := GetUsername(ctx)

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      mfaIssuer,
		AccountName: username,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate totp secret", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.users.SetPendingMFASecret(ctx, userID, key.Secret()); err != nil {
		h.logger.ErrorContext(ctx, "failed to save pending totp secret", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "mfa enrollment started", slog.String("user_id", userID))

	sendJSON(w, h.logger, api.MFAEnrollResponse{
		Secret: key.Secret(),
		URL:    key.URL(),
	}, http.StatusOK)
}

// MFAConfirm обрабатывает POST /v1/auth/mfa/confirm
// Включает второй фактор после проверки первого кода
func (h *AuthHandler) MFAConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		sendError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.MFAConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Code == "" {
		sendError(w, h.logger, "code is required", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByID(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	if user.MFAPendingSecret == "" {
		sendError(w, h.logger, "no pending mfa enrollment", http.StatusConflict)
		return
	}
	if !totp.Validate(req.Code, user.MFAPendingSecret) {
		h.logger.WarnContext(ctx, "mfa confirmation failed", slog.String("user_id", userID))
		sendError(w, h.logger, "invalid code", http.StatusBadRequest)
		return
	}

	if err := h.users.EnableMFA(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNoPendingMFA) {
			sendError(w, h.logger, "no pending mfa enrollment", http.StatusConflict)
			return
		}
		h.logger.ErrorContext(ctx, "failed to enable mfa", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "mfa enabled", slog.String("user_id", userID))
	w.WriteHeader(http.StatusNoContent)
}

// issueSession регистрирует устройство и выпускает пару токенов
func (h *AuthHandler) issueSession(ctx context.Context, user *models.User, clientID, deviceName string) (*api.TokenResponse, error) {
	now := h.now()

	device, err := h.devices.UpsertDevice(ctx, &models.Device{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		ClientID:   clientID,
		Name:       deviceName,
		CreatedAt:  now.UnixMilli(),
		LastSeenAt: now.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}

	access, err := h.jwt.GenerateAccessToken(user.ID, user.Username, device.ID)
	if err != nil {
		return nil, err
	}

	refresh, expiresAt, err := h.jwt.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	token := &models.RefreshToken{
		TokenHash: crypto.HashToken(refresh),
		UserID:    user.ID,
		DeviceID:  device.ID,
		ExpiresAt: expiresAt.UnixMilli(),
		CreatedAt: now.UnixMilli(),
	}
	if err := h.tokens.SaveRefreshToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	return &api.TokenResponse{
		UserID:           user.ID,
		DeviceID:         device.ID,
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: token.ExpiresAt,
	}, nil
}
