package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/iudanet/vaultsync/internal/models"
	"github.com/iudanet/vaultsync/internal/server/storage"
	"github.com/iudanet/vaultsync/internal/validation"
	"github.com/iudanet/vaultsync/internal/wire"
	"github.com/iudanet/vaultsync/pkg/api"
)

const (
	// DefaultPullLimit размер страницы pull, если limit не указан
	DefaultPullLimit = 200
	// MaxPullLimit верхняя граница limit
	MaxPullLimit = 1000
	// MaxPushChanges максимальный размер push-пакета
	MaxPushChanges = validation.MaxPushChanges
)

// SyncHandler handles push and pull requests
type SyncHandler struct {
	logger  *slog.Logger
	storage storage.SyncStorage
	devices storage.DeviceStorage
	now     func() time.Time
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, syncStorage storage.SyncStorage, devices storage.DeviceStorage) *SyncHandler {
	return &SyncHandler{
		logger:  logger,
		storage: syncStorage,
		devices: devices,
		now:     time.Now,
	}
}

// Push обрабатывает POST /v1/sync/push
// Применяет пакет изменений по правилу LWW и назначает seq принятым
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "user id not found in context")
		sendError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.PushRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode push request", slog.Any("error", err))
		if errors.Is(err, errBodyTooLarge) {
			sendError(w, h.logger, "push batch too large", http.StatusRequestEntityTooLarge)
			return
		}
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Changes) > MaxPushChanges {
		sendError(w, h.logger, fmt.Sprintf("batch exceeds %d changes", MaxPushChanges), http.StatusBadRequest)
		return
	}

	resp := api.PushResponse{
		Applied: make([]string, 0, len(req.Changes)),
		Skipped: make([]api.SkippedItem, 0),
	}

	valid := make([]models.Change, 0, len(req.Changes))
	for _, c := range req.Changes {
		if err := validation.ValidateChange(c); err != nil {
			h.logger.WarnContext(ctx, "rejecting invalid change",
				slog.String("user_id", userID),
				slog.String("item_id", c.ItemID),
				slog.Any("error", err))
			resp.Skipped = append(resp.Skipped, api.SkippedItem{ItemID: c.ItemID, Reason: api.SkipReasonInvalid})
			continue
		}
		valid = append(valid, wire.ChangeFromAPI(c))
	}

	if len(valid) > 0 {
		result, err := h.storage.ApplyChanges(ctx, userID, valid)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to apply changes", slog.String("user_id", userID), slog.Any("error", err))
			sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
			return
		}
		resp.Applied = append(resp.Applied, result.Applied...)
		for _, s := range result.Skipped {
			resp.Skipped = append(resp.Skipped, api.SkippedItem{ItemID: s.ItemID, Reason: s.Reason})
		}
		resp.Cursor = result.Cursor
	}

	h.touchDevice(r)

	h.logger.InfoContext(ctx, "push completed",
		slog.String("user_id", userID),
		slog.Int("received", len(req.Changes)),
		slog.Int("applied", len(resp.Applied)),
		slog.Int("skipped", len(resp.Skipped)),
		slog.Int64("cursor", resp.Cursor))

	sendJSON(w, h.logger, resp, http.StatusOK)
}

// Pull обрабатывает GET /v1/sync/pull?cursor=N&limit=M
// Возвращает изменения с seq > cursor по возрастанию seq
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "user id not found in context")
		sendError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}

	cursor, err := parseQueryInt(r, "cursor", 0)
	if err != nil || cursor < 0 {
		sendError(w, h.logger, "invalid cursor parameter", http.StatusBadRequest)
		return
	}

	limit, err := parseQueryInt(r, "limit", DefaultPullLimit)
	if err != nil || limit <= 0 {
		sendError(w, h.logger, "invalid limit parameter", http.StatusBadRequest)
		return
	}
	limit = min(limit, MaxPullLimit)

	changes, hasMore, err := h.storage.GetChangesSince(ctx, userID, cursor, int(limit))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get changes", slog.String("user_id", userID), slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	next := cursor
	if len(changes) > 0 {
		next = changes[len(changes)-1].Seq
	}

	h.touchDevice(r)

	h.logger.DebugContext(ctx, "pull completed",
		slog.String("user_id", userID),
		slog.Int64("cursor", cursor),
		slog.Int64("next_cursor", next),
		slog.Int("changes", len(changes)),
		slog.Bool("has_more", hasMore))

	sendJSON(w, h.logger, api.PullResponse{
		Changes:    wire.ChangesToAPI(changes),
		Cursor:     cursor,
		NextCursor: next,
		HasMore:    hasMore,
	}, http.StatusOK)
}

// touchDevice обновляет время последней активности устройства, ошибки не критичны
func (h *SyncHandler) touchDevice(r *http.Request) {
	deviceID, ok := GetDeviceID(r.Context())
	if !ok || h.devices == nil {
		return
	}
	if err := h.devices.TouchDevice(r.Context(), deviceID, h.now().UnixMilli()); err != nil {
		h.logger.WarnContext(r.Context(), "failed to touch device", slog.String("device_id", deviceID), slog.Any("error", err))
	}
}

func parseQueryInt(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
