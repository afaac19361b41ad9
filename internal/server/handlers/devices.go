package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/vaultsync/internal/server/storage"
	"github.com/iudanet/vaultsync/pkg/api"
)

// DevicesHandler показывает устройства аккаунта
type DevicesHandler struct {
	logger  *slog.Logger
	devices storage.DeviceStorage
}

// NewDevicesHandler creates a new devices handler
func NewDevicesHandler(logger *slog.Logger, devices storage.DeviceStorage) *DevicesHandler {
	return &DevicesHandler{logger: logger, devices: devices}
}

// List обрабатывает GET /v1/devices
func (h *DevicesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		sendError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}

	devices, err := h.devices.ListDevices(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list devices", slog.String("user_id", userID), slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.DevicesResponse{Devices: make([]api.Device, 0, len(devices))}
	for _, d := range devices {
		resp.Devices = append(resp.Devices, api.Device{
			ID:         d.ID,
			ClientID:   d.ClientID,
			Name:       d.Name,
			CreatedAt:  d.CreatedAt,
			LastSeenAt: d.LastSeenAt,
		})
	}

	sendJSON(w, h.logger, resp, http.StatusOK)
}
