// Package config загружает настройки клиента: TOML-файл, затем переменные
// окружения VAULTSYNC_*, затем флаги командной строки (применяются в internal/client/cli).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/iudanet/vaultsync/internal/logging"
	"github.com/iudanet/vaultsync/internal/timex"
	"github.com/iudanet/vaultsync/internal/validation"
)

// Config настройки клиента
type Config struct {
	ServerURL  string `toml:"server_url"`
	DBPath     string `toml:"db_path"`
	DeviceName string `toml:"device_name,omitempty"` // пусто: имя хоста

	Sync SyncConfig     `toml:"sync"`
	Log  logging.Config `toml:"log"`

	RequestTimeout timex.Duration `toml:"request_timeout"`
}

// SyncConfig размеры пакетов и период фоновой синхронизации
type SyncConfig struct {
	PushBatch     int            `toml:"push_batch"`
	PullBatch     int            `toml:"pull_batch"`
	WatchInterval timex.Duration `toml:"watch_interval"`
}

// Default возвращает настройки по умолчанию
func Default() *Config {
	log := logging.DefaultConfig()
	log.Level = "warn"

	return &Config{
		ServerURL: "http://localhost:8080",
		DBPath:    "vaultsync-client.db",
		Sync: SyncConfig{
			PushBatch:     100,
			PullBatch:     200,
			WatchInterval: timex.D(time.Minute),
		},
		Log:            log,
		RequestTimeout: timex.D(30 * time.Second),
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
		"VAULTSYNC_SERVER_URL":  &c.ServerURL,
		"VAULTSYNC_DB_PATH":     &c.DBPath,
		"VAULTSYNC_DEVICE_NAME": &c.DeviceName,
		"VAULTSYNC_LOG_LEVEL":   &c.Log.Level,
		"VAULTSYNC_LOG_FORMAT":  &c.Log.Format,
		"VAULTSYNC_LOG_FILE":    &c.Log.File,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"VAULTSYNC_PUSH_BATCH": &c.Sync.PushBatch,
		"VAULTSYNC_PULL_BATCH": &c.Sync.PullBatch,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*timex.Duration{
		"VAULTSYNC_WATCH_INTERVAL":  &c.Sync.WatchInterval,
		"VAULTSYNC_REQUEST_TIMEOUT": &c.RequestTimeout,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	return nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("server url %q must be an absolute http(s) url", c.ServerURL))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.Sync.PushBatch <= 0 || c.Sync.PullBatch <= 0 {
		errs = append(errs, errors.New("sync batch sizes must be positive"))
	}
	if c.Sync.PushBatch > validation.MaxPushChanges {
		errs = append(errs, fmt.Errorf("push batch %d exceeds server limit %d", c.Sync.PushBatch, validation.MaxPushChanges))
	}
	if c.Sync.WatchInterval.Duration <= 0 {
		errs = append(errs, errors.New("watch interval must be positive"))
	}
	if c.RequestTimeout.Duration <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
