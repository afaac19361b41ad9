// Package config загружает настройки сервера синхронизации.
//
// Порядок применения: значения по умолчанию, TOML-файл, переменные окружения
// VAULTSYNC_*, затем флаги командной строки (применяются в cmd/server).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/iudanet/vaultsync/internal/logging"
	"github.com/iudanet/vaultsync/internal/timex"
)

// Бэкенды хранения конвертов ключей
const (
	EnvelopeBackendDB = "db"
	EnvelopeBackendS3 = "s3"
)

// minSecretLen минимальная длина секрета подписи JWT
const minSecretLen = 32

// Config настройки сервера
type Config struct {
	ListenAddr string         `toml:"listen_addr"`
	Database   DatabaseConfig `toml:"database"`
	Auth       AuthConfig     `toml:"auth"`
	Envelopes  EnvelopeConfig `toml:"envelopes"`
	Log        logging.Config `toml:"log"`

	TokenCleanupInterval timex.Duration `toml:"token_cleanup_interval"`
	ShutdownTimeout      timex.Duration `toml:"shutdown_timeout"`
}

// DatabaseConfig подключение к SQL хранилищу
type DatabaseConfig struct {
	Driver string `toml:"driver"` // "sqlite" или "pgx"
	DSN    string `toml:"dsn"`
}

// AuthConfig токены и ограничение частоты запросов /v1/auth/*
type AuthConfig struct {
	JWTSecret       string         `toml:"jwt_secret"`
	AccessTokenTTL  timex.Duration `toml:"access_token_ttl"`
	RefreshTokenTTL timex.Duration `toml:"refresh_token_ttl"`
	RateLimit       int            `toml:"rate_limit"` // 0 отключает ограничение
	RateWindow      timex.Duration `toml:"rate_window"`
	TrustProxy      bool           `toml:"trust_proxy"`
}

// EnvelopeConfig где хранятся конверты ключей
type EnvelopeConfig struct {
	Backend string   `toml:"backend"` // "db" или "s3"
	S3      S3Config `toml:"s3"`
}

// S3Config параметры S3-совместимого хранилища
type S3Config struct {
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint,omitempty"`
	AccessKey string `toml:"access_key,omitempty"`
	SecretKey string `toml:"secret_key,omitempty"`
	Prefix    string `toml:"prefix,omitempty"`
}

// Default возвращает конфигурацию для локального запуска.
// JWTSecret пуст и должен быть задан явно.
func Default() *Config {
	return &Config{
		ListenAddr: ":8080",
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "vaultsync.db",
		},
		Auth: AuthConfig{
			AccessTokenTTL:  timex.D(15 * time.Minute),
			RefreshTokenTTL: timex.D(30 * 24 * time.Hour),
			RateLimit:       20,
			RateWindow:      timex.D(time.Minute),
		},
		Envelopes: EnvelopeConfig{
			Backend: EnvelopeBackendDB,
			S3:      S3Config{Region: "us-east-1"},
		},
		Log:                  logging.DefaultConfig(),
		TokenCleanupInterval: timex.D(time.Hour),
		ShutdownTimeout:      timex.D(10 * time.Second),
	}
}

// Load читает TOML-файл поверх значений по умолчанию.
// Пустой путь или отсутствующий файл дают конфигурацию по умолчанию.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	return cfg, nil
}

// LookupFunc источник переменных окружения, os.LookupEnv в рабочем режиме
type LookupFunc func(key string) (string, bool)

// ApplyEnv переопределяет поля из переменных окружения VAULTSYNC_*.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	strs := map[string]*string{
		"VAULTSYNC_LISTEN_ADDR":      &c.ListenAddr,
		"VAULTSYNC_DB_DRIVER":        &c.Database.Driver,
		"VAULTSYNC_DB_DSN":           &c.Database.DSN,
		"VAULTSYNC_JWT_SECRET":       &c.Auth.JWTSecret,
		"VAULTSYNC_ENVELOPE_BACKEND": &c.Envelopes.Backend,
		"VAULTSYNC_S3_BUCKET":         &c.Envelopes.S3.Bucket,
		"VAULTSYNC_S3_REGION":         &c.Envelopes.S3.Region,
		"VAULTSYNC_S3_ENDPOINT":       &c.Envelopes.S3.Endpoint,
		"VAULTSYNC_S3_ACCESS_KEY":     &c.Envelopes.S3.AccessKey,
		"VAULTSYNC_S3_SECRET_KEY":     &c.Envelopes.S3.SecretKey,
		"VAULTSYNC_S3_PREFIX":         &c.Envelopes.S3.Prefix,
		"VAULTSYNC_LOG_LEVEL":  &c.Log.Level,
		"VAULTSYNC_LOG_FORMAT": &c.Log.Format,
		"VAULTSYNC_LOG_FILE":   &c.Log.File,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	durations := map[string]*timex.Duration{
		"VAULTSYNC_ACCESS_TOKEN_TTL":       &c.Auth.AccessTokenTTL,
		"VAULTSYNC_REFRESH_TOKEN_TTL":      &c.Auth.RefreshTokenTTL,
		"VAULTSYNC_TOKEN_CLEANUP_INTERVAL": &c.TokenCleanupInterval,
		"VAULTSYNC_SHUTDOWN_TIMEOUT":       &c.ShutdownTimeout,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}

	if v, ok := lookup("VAULTSYNC_AUTH_RATE_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("VAULTSYNC_AUTH_RATE_LIMIT: %w", err)
		}
		c.Auth.RateLimit = n
	}
	if v, ok := lookup("VAULTSYNC_TRUST_PROXY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("VAULTSYNC_TRUST_PROXY: %w", err)
		}
		c.Auth.TrustProxy = b
	}
	return nil
}

// Validate проверяет согласованность настроек перед запуском.
func (c *Config) Validate() error {
	var errs []error

	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	if len(c.Auth.JWTSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("jwt secret must be at least %d bytes", minSecretLen))
	}
	if c.Auth.AccessTokenTTL.Duration <= 0 || c.Auth.RefreshTokenTTL.Duration <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	if c.Auth.RateLimit < 0 {
		errs = append(errs, errors.New("auth rate limit must not be negative"))
	}
	if c.Auth.RateLimit > 0 && c.Auth.RateWindow.Duration <= 0 {
		errs = append(errs, errors.New("auth rate window must be positive"))
	}
	switch c.Envelopes.Backend {
	case EnvelopeBackendDB:
	case EnvelopeBackendS3:
		if c.Envelopes.S3.Bucket == "" {
			errs = append(errs, errors.New("s3 bucket is required for the s3 envelope backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported envelope backend %q", c.Envelopes.Backend))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
