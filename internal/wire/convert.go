// Package wire переводит внутренние типы models в DTO pkg/api и обратно.
// Формат на проводе может меняться независимо от локального хранения.
package wire

import (
	"github.com/iudanet/vaultsync/internal/models"
	"github.com/iudanet/vaultsync/pkg/api"
)

// ChangeToAPI конвертирует изменение в формат протокола.
func ChangeToAPI(c models.Change) api.Change {
	out := api.Change{
		Seq:       c.Seq,
		ItemID:    c.ItemID,
		UpdatedAt: c.UpdatedAt,
		Deleted:   c.Deleted,
	}
	if c.Deleted || c.Record == nil {
		return out
	}
	out.Label = c.Record.Label
	out.URL = c.Record.URL
	out.Category = c.Record.Category
	out.CreatedAt = c.Record.CreatedAt
	out.Ciphertext = c.Record.Ciphertext
	out.IV = c.Record.Nonce
	out.AuthTag = c.Record.AuthTag
	return out
}

// ChangeFromAPI конвертирует изменение из формата протокола.
func ChangeFromAPI(c api.Change) models.Change {
	out := models.Change{
		Seq:       c.Seq,
		ItemID:    c.ItemID,
		UpdatedAt: c.UpdatedAt,
		Deleted:   c.Deleted,
	}
	if c.Deleted {
		return out
	}
	createdAt := c.CreatedAt
	if createdAt == 0 {
		createdAt = c.UpdatedAt
	}
	out.Record = &models.Record{
		ID:         c.ItemID,
		Label:      c.Label,
		URL:        c.URL,
		Category:   c.Category,
		CreatedAt:  createdAt,
		UpdatedAt:  c.UpdatedAt,
		Ciphertext: c.Ciphertext,
		Nonce:      c.IV,
		AuthTag:    c.AuthTag,
	}
	return out
}

// ChangesToAPI конвертирует срез изменений. Возвращает пустой срез вместо nil.
func ChangesToAPI(changes []models.Change) []api.Change {
	out := make([]api.Change, 0, len(changes))
	for _, c := range changes {
		out = append(out, ChangeToAPI(c))
	}
	return out
}

// ChangesFromAPI конвертирует срез изменений из формата протокола.
func ChangesFromAPI(changes []api.Change) []models.Change {
	out := make([]models.Change, 0, len(changes))
	for _, c := range changes {
		out = append(out, ChangeFromAPI(c))
	}
	return out
}

// EnvelopeToAPI конвертирует конверт ключа. nil остается nil.
func EnvelopeToAPI(e *models.KeyEnvelope) *api.KeyEnvelope {
	if e == nil {
		return nil
	}
	return &api.KeyEnvelope{
		KeyVersion: e.KeyVersion,
		KDF: api.KDFParams{
			Name:      e.KDF.Name,
			Time:      e.KDF.Time,
			MemoryKiB: e.KDF.MemoryKiB,
			Threads:   e.KDF.Threads,
		},
		Salt:       e.Salt,
		Nonce:      e.Nonce,
		Ciphertext: e.Ciphertext,
		AuthTag:    e.AuthTag,
		UpdatedAt:  e.UpdatedAt,
	}
}

// EnvelopeFromAPI конвертирует конверт ключа из формата протокола.
func EnvelopeFromAPI(e *api.KeyEnvelope) *models.KeyEnvelope {
	if e == nil {
		return nil
	}
	return &models.KeyEnvelope{
		KeyVersion: e.KeyVersion,
		KDF: models.KDFParams{
			Name:      e.KDF.Name,
			Time:      e.KDF.Time,
			MemoryKiB: e.KDF.MemoryKiB,
			Threads:   e.KDF.Threads,
		},
		Salt:       e.Salt,
		Nonce:      e.Nonce,
		Ciphertext: e.Ciphertext,
		AuthTag:    e.AuthTag,
		UpdatedAt:  e.UpdatedAt,
	}
}

// SessionFromAPI строит локальную сессию из ответа авторизации.
func SessionFromAPI(username string, resp *api.TokenResponse) *models.Session {
	return &models.Session{
		UserID:           resp.UserID,
		Username:         username,
		DeviceID:         resp.DeviceID,
		AccessToken:      resp.AccessToken,
		RefreshToken:     resp.RefreshToken,
		RefreshExpiresAt: resp.RefreshExpiresAt,
	}
}
