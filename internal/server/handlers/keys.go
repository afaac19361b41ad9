package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/vaultsync/internal/server/storage"
	"github.com/iudanet/vaultsync/internal/wire"
	"github.com/iudanet/vaultsync/pkg/api"
)

// KeysHandler хранит конверт ключа хранилища. Содержимое конверта не проверяется.
type KeysHandler struct {
	logger  *slog.Logger
	storage storage.EnvelopeStorage
	now     func() time.Time
}

// NewKeysHandler creates a new key envelope handler
func NewKeysHandler(logger *slog.Logger, envelopes storage.EnvelopeStorage) *KeysHandler {
	return &KeysHandler{
		logger:  logger,
		storage: envelopes,
		now:     time.Now,
	}
}

// GetEnvelope обрабатывает GET /v1/keys/envelope
func (h *KeysHandler) GetEnvelope(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		sendError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}

	env, err := h.storage.GetEnvelope(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrEnvelopeNotFound) {
		h.logger.ErrorContext(ctx, "failed to get key envelope", slog.String("user_id", userID), slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(w, h.logger, api.EnvelopeResponse{Envelope: wire.EnvelopeToAPI(env)}, http.StatusOK)
}

// PutEnvelope обрабатывает PUT /v1/keys/envelope
// Заменяет конверт целиком и возвращает сохраненную копию
func (h *KeysHandler) PutEnvelope(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		sendError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.EnvelopeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Envelope == nil || len(req.Envelope.Ciphertext) == 0 {
		sendError(w, h.logger, "envelope is required", http.StatusBadRequest)
		return
	}

	env := wire.EnvelopeFromAPI(req.Envelope)
	env.UpdatedAt = h.now().UnixMilli()

	if err := h.storage.PutEnvelope(ctx, userID, env); err != nil {
		h.logger.ErrorContext(ctx, "failed to save key envelope", slog.String("user_id", userID), slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "key envelope stored",
		slog.String("user_id", userID),
		slog.Int("key_version", env.KeyVersion))

	sendJSON(w, h.logger, api.EnvelopeResponse{Envelope: wire.EnvelopeToAPI(env)}, http.StatusOK)
}
