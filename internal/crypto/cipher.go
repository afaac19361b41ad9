package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

const (
	// NonceSize - размер nonce для AES-GCM (12 bytes стандартный размер)
	NonceSize = 12
	// TagSize - размер authentication tag AES-GCM
	TagSize = 16
)

// Seal шифрует plaintext AES-256-GCM и возвращает ciphertext, nonce и auth tag раздельно.
// aad связывает шифртекст с контекстом (например, id записи).
func Seal(key, plaintext, aad []byte) (ciphertext, nonce, tag []byte, err error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, nil, nil, err
	}

	nonce, err = randomBytes(NonceSize)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// GCM добавляет authentication tag в конец, отделяем его
	sealed := aesGCM.Seal(nil, nonce, plaintext, aad)
	split := len(sealed) - TagSize
	return sealed[:split], nonce, sealed[split:], nil
}

// Open расшифровывает данные, зашифрованные Seal
func Open(key, ciphertext, nonce, tag, aad []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}
	if len(tag) != TagSize {
		return nil, fmt.Errorf("auth tag must be %d bytes, got %d", TagSize, len(tag))
	}

	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aesGCM.Open(nil, nonce, sealed, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: authentication failed or corrupted data: %w", err)
	}
	return plaintext, nil
}

// RecordSealer шифрует секреты записей ключом хранилища.
// Id записи используется как associated data, поэтому шифртекст нельзя переставить в другую запись.
type RecordSealer struct {
	key []byte
}

// NewRecordSealer создает sealer для ключа хранилища
func NewRecordSealer(vaultKey []byte) (*RecordSealer, error) {
	if len(vaultKey) != KeySize {
		return nil, fmt.Errorf("vault key must be %d bytes, got %d", KeySize, len(vaultKey))
	}
	key := make([]byte, KeySize)
	copy(key, vaultKey)
	return &RecordSealer{key: key}, nil
}

// Seal шифрует секрет записи id
func (s *RecordSealer) Seal(id string, plaintext []byte) (ciphertext, nonce, tag []byte, err error) {
	return Seal(s.key, plaintext, []byte(id))
}

// Open расшифровывает секрет записи id
func (s *RecordSealer) Open(id string, ciphertext, nonce, tag []byte) ([]byte, error) {
	return Open(s.key, ciphertext, nonce, tag, []byte(id))
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
