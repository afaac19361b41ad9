// Package cli команды клиента vaultsync.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/vaultsync/internal/client/api"
	"github.com/iudanet/vaultsync/internal/client/auth"
	"github.com/iudanet/vaultsync/internal/client/backup"
	"github.com/iudanet/vaultsync/internal/client/config"
	"github.com/iudanet/vaultsync/internal/client/data"
	"github.com/iudanet/vaultsync/internal/client/iocli"
	"github.com/iudanet/vaultsync/internal/client/storage/boltdb"
	"github.com/iudanet/vaultsync/internal/client/sync"
	"github.com/iudanet/vaultsync/internal/logging"
)

// PasswordEnv переменная окружения с паролем аккаунта
const PasswordEnv = "VAULTSYNC_PASSWORD"

// errNotLoggedIn подсказка для команд, которым нужна сессия
var errNotLoggedIn = errors.New("not logged in, run 'vaultsync login' first")

type globalFlags struct {
	configPath   string
	serverURL    string
	dbPath       string
	deviceName   string
	logLevel     string
	passwordFile string
}

// Cli клиент командной строки
type Cli struct {
	io         iocli.IO
	lookup     config.LookupFunc
	version    string
	authOpts   []auth.Option
	backupOpts []backup.Option
	flags      globalFlags

	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	store     *boltdb.Storage
	api       *api.Client
	auth      *auth.Manager
	engine    *sync.Engine
}

// Option настраивает Cli
type Option func(*Cli)

// WithLookup задает источник переменных окружения
func WithLookup(lookup config.LookupFunc) Option {
	return func(c *Cli) { c.lookup = lookup }
}

// WithVersion задает текст, который печатают version и --version
func WithVersion(version string) Option {
	return func(c *Cli) { c.version = version }
}

// WithAuthOptions передает опции менеджеру сессии
func WithAuthOptions(opts ...auth.Option) Option {
	return func(c *Cli) { c.authOpts = append(c.authOpts, opts...) }
}

// WithBackupOptions передает опции экспорту
func WithBackupOptions(opts ...backup.Option) Option {
	return func(c *Cli) { c.backupOpts = append(c.backupOpts, opts...) }
}

// New создает клиент
func New(io iocli.IO, opts ...Option) *Cli {
	c := &Cli{
		io:      io,
		lookup:  os.LookupEnv,
		version: "VaultSync Client dev\n",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute выполняет команду и освобождает ресурсы
func (c *Cli) Execute(ctx context.Context, args []string) error {
	defer c.close()

	root := c.Command()
	root.SetArgs(args)
	root.SetOut(c.io)
	root.SetErr(c.io)
	return root.ExecuteContext(ctx)
}

// setup загружает конфигурацию и открывает локальное хранилище
func (c *Cli) setup(cmd *cobra.Command) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	c.logger, c.logCloser = logger, closer

	store, err := boltdb.New(cmd.Context(), cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	c.store = store

	authOpts := c.authOpts
	if cfg.DeviceName != "" {
		authOpts = append([]auth.Option{auth.WithDeviceName(cfg.DeviceName)}, authOpts...)
	}

	c.cfg = cfg
	c.api = api.NewClient(cfg.ServerURL, api.WithTimeout(cfg.RequestTimeout.Duration))
	c.auth = auth.NewManager(c.api, store, store, logger, authOpts...)
	c.engine = sync.NewEngine(c.api, c.auth, store, logger, sync.WithBatchSizes(cfg.Sync.PushBatch, cfg.Sync.PullBatch))
	return nil
}

func (c *Cli) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(c.flags.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(c.lookup); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerURL = c.flags.serverURL
	}
	if flags.Changed("db") {
		cfg.DBPath = c.flags.dbPath
	}
	if flags.Changed("device-name") {
		cfg.DeviceName = c.flags.deviceName
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = c.flags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Cli) close() {
	if c.store != nil {
		if err := c.store.Close(); err != nil && c.logger != nil {
			c.logger.Error("failed to close database", "error", err)
		}
		c.store = nil
	}
	if c.logCloser != nil {
		_ = c.logCloser.Close()
		c.logCloser = nil
	}
}

// accountPassword читает пароль аккаунта. Приоритет:
// 1. переменная окружения VAULTSYNC_PASSWORD
// 2. файл --password-file
// 3. интерактивный ввод
func (c *Cli) accountPassword(prompt string) (string, error) {
	if v, ok := c.lookup(PasswordEnv); ok && v != "" {
		return v, nil
	}

	if c.flags.passwordFile != "" {
		content, err := os.ReadFile(c.flags.passwordFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	password, err := c.io.ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

// newAccountPassword как accountPassword, но при вводе с клавиатуры просит подтверждение
func (c *Cli) newAccountPassword() (string, error) {
	if v, ok := c.lookup(PasswordEnv); (ok && v != "") || c.flags.passwordFile != "" {
		return c.accountPassword("")
	}

	password, err := c.accountPassword("Password: ")
	if err != nil {
		return "", err
	}
	confirm, err := c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if confirm != password {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}

// unlock раскрывает ключ хранилища паролем аккаунта
func (c *Cli) unlock(ctx context.Context) (*data.Service, error) {
	password, err := c.accountPassword("Password: ")
	if err != nil {
		return nil, err
	}
	key, err := c.auth.UnlockVault(ctx, password)
	if err != nil {
		return nil, err
	}
	return data.NewService(c.store, key)
}

// requireSession проверяет, что устройство вошло в аккаунт
func (c *Cli) requireSession(ctx context.Context) error {
	if _, err := c.auth.Session(ctx); err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			return errNotLoggedIn
		}
		return err
	}
	return nil
}
