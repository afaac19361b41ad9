// Package validation проверяет входные данные протокола на сервере и клиенте.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	ErrInvalidUsername   = errors.New("invalid username")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrInvalidDeviceName = errors.New("invalid device name")
	ErrInvalidClientID   = errors.New("invalid client id")
)

// usernamePattern латинские буквы, цифры, '_', '.', '-', длина 3-32
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

const (
	// MinPasswordLen минимальная длина пароля аккаунта
	MinPasswordLen = 12
	// MaxPasswordLen ограничивает работу argon2 на сервере
	MaxPasswordLen = 1024
	// MaxDeviceNameLen максимальная длина имени устройства в символах
	MaxDeviceNameLen = 64
)

// ValidateUsername проверяет формат username
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: must be 3-32 characters of letters, digits, '_', '.' or '-'", ErrInvalidUsername)
	}
	return nil
}

// ValidatePassword проверяет длину пароля
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLen {
		return fmt.Errorf("%w: must be at least %d characters long", ErrInvalidPassword, MinPasswordLen)
	}
	if len(password) > MaxPasswordLen {
		return fmt.Errorf("%w: must not exceed %d bytes", ErrInvalidPassword, MaxPasswordLen)
	}
	return nil
}

// ValidateDeviceName проверяет имя устройства. Пустое имя допустимо.
func ValidateDeviceName(name string) error {
	if utf8.RuneCountInString(name) > MaxDeviceNameLen {
		return fmt.Errorf("%w: must not exceed %d characters", ErrInvalidDeviceName, MaxDeviceNameLen)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: must be valid UTF-8", ErrInvalidDeviceName)
	}
	return nil
}

// ValidateClientID проверяет, что идентификатор установки является UUID
func ValidateClientID(clientID string) error {
	if _, err := uuid.Parse(clientID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidClientID, err)
	}
	return nil
}

// ValidateRegistration проверяет запрос регистрации целиком
func ValidateRegistration(username, password, deviceName, clientID string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if err := ValidateDeviceName(deviceName); err != nil {
		return err
	}
	return ValidateClientID(clientID)
}
