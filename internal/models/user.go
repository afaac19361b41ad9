package models

// User учетная запись на сервере
type User struct {
	ID               string // UUID пользователя
	Username         string // уникальный username
	PasswordHash     string // argon2id хеш пароля в PHC формате
	MFASecret        string // base32 TOTP секрет (пусто, если MFA не включена)
	MFAPendingSecret string // секрет, ожидающий подтверждения кодом
	CreatedAt        int64  // время создания (мс)
	LastLoginAt      int64  // время последнего входа (мс, 0 если не входил)
	LastSeq          int64  // последний назначенный seq аккаунта
	MFAEnabled       bool   // включен ли второй фактор
}

// Device устройство, привязанное к аккаунту.
// ClientID стабилен для установки клиента, ID назначается сервером.
type Device struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	ClientID   string `json:"clientId"`
	Name       string `json:"name"`
	CreatedAt  int64  `json:"createdAt"`
	LastSeenAt int64  `json:"lastSeenAt"`
}

// RefreshToken серверная запись refresh токена.
// Хранится только SHA-256 хеш токена.
type RefreshToken struct {
	TokenHash string
	UserID    string
	DeviceID  string
	ExpiresAt int64 // время истечения (мс)
	CreatedAt int64
}
