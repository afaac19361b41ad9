package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/vaultsync/internal/models"
	"github.com/iudanet/vaultsync/internal/server/storage"
)

// UpsertDevice registers the device or refreshes its name and last seen time
func (s *Storage) UpsertDevice(ctx context.Context, device *models.Device) (*models.Device, error) {
	query := `
		INSERT INTO devices (id, user_id, client_id, name, created_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, client_id) DO UPDATE
		SET name = excluded.name, last_seen_at = excluded.last_seen_at
		RETURNING id, user_id, client_id, name, created_at, last_seen_at
	`

	saved := &models.Device{}
	err := s.db.QueryRowContext(ctx, s.rebind(query),
		device.ID,
		device.UserID,
		device.ClientID,
		device.Name,
		device.CreatedAt,
		device.LastSeenAt,
	).Scan(&saved.ID, &saved.UserID, &saved.ClientID, &saved.Name, &saved.CreatedAt, &saved.LastSeenAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert device: %w", err)
	}

	return saved, nil
}

// GetDevice retrieves device by ID
func (s *Storage) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	query := `
		SELECT id, user_id, client_id, name, created_at, last_seen_at
		FROM devices
		WHERE id = ?
	`

	d := &models.Device{}
	err := s.db.QueryRowContext(ctx, s.rebind(query), deviceID).
		Scan(&d.ID, &d.UserID, &d.ClientID, &d.Name, &d.CreatedAt, &d.LastSeenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return d, nil
}

// ListDevices returns user's devices, most recently seen first
func (s *Storage) ListDevices(ctx context.Context, userID string) ([]*models.Device, error) {
	query := `
		SELECT id, user_id, client_id, name, created_at, last_seen_at
		FROM devices
		WHERE user_id = ?
		ORDER BY last_seen_at DESC, id
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	devices := make([]*models.Device, 0)
	for rows.Next() {
		d := &models.Device{}
		if err := rows.Scan(&d.ID, &d.UserID, &d.ClientID, &d.Name, &d.CreatedAt, &d.LastSeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return devices, nil
}

// TouchDevice updates last seen time
func (s *Storage) TouchDevice(ctx context.Context, deviceID string, at int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE devices SET last_seen_at = ? WHERE id = ?`), at, deviceID)
	if err != nil {
		return fmt.Errorf("failed to touch device: %w", err)
	}
	return expectOneRow(res, storage.ErrDeviceNotFound)
}
