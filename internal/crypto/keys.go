package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/iudanet/vaultsync/internal/models"
)

// Параметры Argon2id по умолчанию
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
	// KeySize - длина ключа в байтах (AES-256)
	KeySize = 32
	// SaltSize - размер соли в байтах
	SaltSize = 32

	// KDFArgon2id имя KDF в конверте ключа
	KDFArgon2id = "argon2id"
	// EnvelopeKeyVersion текущая версия формата конверта
	EnvelopeKeyVersion = 1
)

// ErrWrongPassword возвращается, если конверт не удалось раскрыть паролем
var ErrWrongPassword = errors.New("wrong password or corrupted key envelope")

// DefaultKDFParams параметры деривации для новых конвертов
func DefaultKDFParams() models.KDFParams {
	return models.KDFParams{
		Name:      KDFArgon2id,
		Time:      Argon2Time,
		MemoryKiB: Argon2Memory,
		Threads:   Argon2Threads,
	}
}

// GenerateSalt генерирует криптографически случайную соль
func GenerateSalt() ([]byte, error) {
	return randomBytes(SaltSize)
}

// GenerateKey генерирует случайный ключ хранилища
func GenerateKey() ([]byte, error) {
	return randomBytes(KeySize)
}

// DeriveKey выводит ключ обертки из пароля
func DeriveKey(password string, salt []byte, params models.KDFParams) ([]byte, error) {
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}
	if params.Name != KDFArgon2id {
		return nil, fmt.Errorf("unsupported kdf %q", params.Name)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("salt cannot be empty")
	}
	return argon2.IDKey([]byte(password), salt, params.Time, params.MemoryKiB, params.Threads, KeySize), nil
}

// WrapKey оборачивает ключ хранилища ключом, выведенным из пароля
func WrapKey(vaultKey []byte, password string, params models.KDFParams) (*models.KeyEnvelope, error) {
	if len(vaultKey) != KeySize {
		return nil, fmt.Errorf("vault key must be %d bytes, got %d", KeySize, len(vaultKey))
	}

	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	kek, err := DeriveKey(password, salt, params)
	if err != nil {
		return nil, fmt.Errorf("failed to derive wrapping key: %w", err)
	}

	ciphertext, nonce, tag, err := Seal(kek, vaultKey, envelopeAAD)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap key: %w", err)
	}

	return &models.KeyEnvelope{
		KeyVersion: EnvelopeKeyVersion,
		KDF:        params,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		AuthTag:    tag,
	}, nil
}

// UnwrapKey раскрывает конверт паролем
func UnwrapKey(env *models.KeyEnvelope, password string) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("key envelope is nil")
	}
	if env.KeyVersion != EnvelopeKeyVersion {
		return nil, fmt.Errorf("unsupported key envelope version %d", env.KeyVersion)
	}

	kek, err := DeriveKey(password, env.Salt, env.KDF)
	if err != nil {
		return nil, fmt.Errorf("failed to derive wrapping key: %w", err)
	}

	key, err := Open(kek, env.Ciphertext, env.Nonce, env.AuthTag, envelopeAAD)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return key, nil
}

var envelopeAAD = []byte("vaultsync/key-envelope/v1")

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}
