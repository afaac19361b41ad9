package validation

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/iudanet/vaultsync/pkg/api"
)

// ErrInvalidChange изменение из push отклоняется как некорректное
var ErrInvalidChange = errors.New("invalid change")

const (
	// MaxItemIDLen максимальная длина id записи
	MaxItemIDLen = 128
	// MaxMetadataLen максимальная длина label, url и category
	MaxMetadataLen = 2048
	// MaxPayloadSize максимальный размер шифртекста записи
	MaxPayloadSize = 1 << 20
	// MaxPushChanges максимальное число изменений в одном push
	MaxPushChanges = 1000
	// MaxPushBodySize максимальный размер тела push-запроса.
	// Одно изменение предельного размера занимает меньше десятой части.
	MaxPushBodySize = 16 << 20
)

// changeOverhead запас на имена полей, числа и разделители одного изменения в JSON
const changeOverhead = 256

// EncodedSize оценивает сверху размер изменения в JSON-теле push.
// Строки считаются с худшим экранированием (\u00XX), байты в base64.
func EncodedSize(c api.Change) int {
	b64 := base64.StdEncoding.EncodedLen
	return changeOverhead +
		6*(len(c.ItemID)+len(c.Label)+len(c.URL)+len(c.Category)) +
		b64(len(c.Ciphertext)) + b64(len(c.IV)) + b64(len(c.AuthTag))
}

// ValidateChange проверяет одно изменение из push-запроса
func ValidateChange(c api.Change) error {
	switch {
	case c.ItemID == "" || len(c.ItemID) > MaxItemIDLen:
		return fmt.Errorf("%w: itemId must be 1-%d bytes", ErrInvalidChange, MaxItemIDLen)
	case c.UpdatedAt <= 0:
		return fmt.Errorf("%w: updatedAt must be positive", ErrInvalidChange)
	case c.Deleted:
		return nil
	case len(c.Label) > MaxMetadataLen || len(c.URL) > MaxMetadataLen || len(c.Category) > MaxMetadataLen:
		return fmt.Errorf("%w: metadata field exceeds %d bytes", ErrInvalidChange, MaxMetadataLen)
	case len(c.Ciphertext) > MaxPayloadSize:
		return fmt.Errorf("%w: ciphertext exceeds %d bytes", ErrInvalidChange, MaxPayloadSize)
	case c.CreatedAt < 0:
		return fmt.Errorf("%w: createdAt must not be negative", ErrInvalidChange)
	}
	return nil
}
