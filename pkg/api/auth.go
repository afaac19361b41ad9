package api

// AuthRequest запрос на регистрацию или вход
type AuthRequest struct {
	Username   string `json:"username"`          // username пользователя
	Password   string `json:"password"`          // пароль аккаунта
	DeviceName string `json:"deviceName"`        // человекочитаемое имя устройства
	ClientID   string `json:"clientId"`          // стабильный идентификатор установки клиента
	MFACode    string `json:"mfaCode,omitempty"` // TOTP код, если включен второй фактор
}

// TokenResponse ответ с сессией устройства
type TokenResponse struct {
	UserID           string `json:"userId"`           // UUID пользователя
	DeviceID         string `json:"deviceId"`         // UUID устройства на сервере
	AccessToken      string `json:"accessToken"`      // JWT access token
	RefreshToken     string `json:"refreshToken"`     // одноразовый refresh token
	RefreshExpiresAt int64  `json:"refreshExpiresAt"` // истечение refresh token (мс)
}

// RefreshRequest запрос на обмен refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest запрос на выход
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// MFAEnrollResponse секрет TOTP для подключения второго фактора
type MFAEnrollResponse struct {
	Secret string `json:"secret"` // base32 секрет
	URL    string `json:"url"`    // otpauth:// URL для приложения-аутентификатора
}

// MFAConfirmRequest подтверждение подключения второго фактора
type MFAConfirmRequest struct {
	Code string `json:"code"`
}

// Device устройство аккаунта
type Device struct {
	ID         string `json:"id"`
	ClientID   string `json:"clientId"`
	Name       string `json:"name"`
	CreatedAt  int64  `json:"createdAt"`
	LastSeenAt int64  `json:"lastSeenAt"`
}

// DevicesResponse список устройств аккаунта
type DevicesResponse struct {
	Devices []Device `json:"devices"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error       string `json:"error"`                 // описание ошибки
	Message     string `json:"message,omitempty"`     // дополнительное сообщение
	MFARequired bool   `json:"mfaRequired,omitempty"` // требуется код второго фактора
}
