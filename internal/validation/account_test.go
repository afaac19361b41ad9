package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{name: "lowercase", username: "alice"},
		{name: "mixed case with digits", username: "Alice123"},
		{name: "dots and dashes", username: "alice.smith-2"},
		{name: "minimum length", username: "abc"},
		{name: "maximum length", username: strings.Repeat("a", 32)},
		{name: "empty", username: "", wantErr: true},
		{name: "too short", username: "ab", wantErr: true},
		{name: "too long", username: strings.Repeat("a", 33), wantErr: true},
		{name: "space", username: "alice smith", wantErr: true},
		{name: "at sign", username: "alice@example", wantErr: true},
		{name: "cyrillic", username: "алиса", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidUsername)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid", password: "correct horse battery"},
		{name: "exactly minimum", password: strings.Repeat("x", MinPasswordLen)},
		{name: "unicode counts runes", password: strings.Repeat("п", MinPasswordLen)},
		{name: "empty", password: "", wantErr: true},
		{name: "too short", password: "short", wantErr: true},
		{name: "too long", password: strings.Repeat("x", MaxPasswordLen+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPassword)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateDeviceName(t *testing.T) {
	assert.NoError(t, ValidateDeviceName(""))
	assert.NoError(t, ValidateDeviceName("Рабочий ноутбук"))
	assert.ErrorIs(t, ValidateDeviceName(strings.Repeat("d", MaxDeviceNameLen+1)), ErrInvalidDeviceName)
	assert.ErrorIs(t, ValidateDeviceName(string([]byte{0xff, 0xfe})), ErrInvalidDeviceName)
}

func TestValidateClientID(t *testing.T) {
	assert.NoError(t, ValidateClientID("8f14e45f-ceea-467f-a0e6-1b0c7b2a3c4d"))
	assert.ErrorIs(t, ValidateClientID(""), ErrInvalidClientID)
	assert.ErrorIs(t, ValidateClientID("not-a-uuid"), ErrInvalidClientID)
}

func TestValidateRegistration(t *testing.T) {
	const clientID = "8f14e45f-ceea-467f-a0e6-1b0c7b2a3c4d"

	assert.NoError(t, ValidateRegistration("alice", "correct horse battery", "laptop", clientID))
	assert.ErrorIs(t, ValidateRegistration("a", "correct horse battery", "laptop", clientID), ErrInvalidUsername)
	assert.ErrorIs(t, ValidateRegistration("alice", "short", "laptop", clientID), ErrInvalidPassword)
	assert.ErrorIs(t, ValidateRegistration("alice", "correct horse battery", "laptop", "x"), ErrInvalidClientID)
}
