package models

// Session локальная сессия клиента.
type Session struct {
	UserID           string `json:"userId"`
	Username         string `json:"username"`
	DeviceID         string `json:"deviceId"`
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	RefreshExpiresAt int64  `json:"refreshExpiresAt"`
}

// SyncState состояние репликации устройства.
type SyncState struct {
	ActiveUserID      string
	LastSyncError     string
	Cursor            int64
	LastSyncAt        int64
	LastSyncAttemptAt int64
	InitialSeedDone   bool
}

// KDFParams параметры функции деривации ключа конверта.
type KDFParams struct {
	Name      string `json:"name"`
	Time      uint32 `json:"time"`
	MemoryKiB uint32 `json:"memoryKiB"`
	Threads   uint8  `json:"threads"`
}

// KeyEnvelope обернутый паролем ключ хранилища.
// Сервер хранит и возвращает его без изменений, кроме UpdatedAt.
type KeyEnvelope struct {
	KDF        KDFParams `json:"kdf"`
	Salt       []byte    `json:"salt"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
	AuthTag    []byte    `json:"authTag"`
	KeyVersion int       `json:"keyVersion"`
	UpdatedAt  int64     `json:"updatedAt"`
}
