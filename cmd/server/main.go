package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iudanet/vaultsync/internal/logging"
	"github.com/iudanet/vaultsync/internal/server"
	"github.com/iudanet/vaultsync/internal/server/config"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// serverFlags значения флагов; применяются только явно заданные
type serverFlags struct {
	configPath string
	listenAddr string
	dbDriver   string
	dbDSN      string
	envBackend string
	logLevel   string
	logFormat  string
	logFile    string
}

func main() {
	if err := newRootCommand(&serverFlags{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand(flags *serverFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vaultsync-server",
		Short:         "VaultSync remote sync service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.SetVersionTemplate(versionString())

	f := cmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "vaultsync-server.toml", "path to TOML config file")
	f.StringVar(&flags.listenAddr, "listen", "", "listen address")
	f.StringVar(&flags.dbDriver, "db-driver", "", "database driver (sqlite|pgx)")
	f.StringVar(&flags.dbDSN, "db-dsn", "", "database DSN or SQLite path")
	f.StringVar(&flags.envBackend, "envelope-backend", "", "key envelope storage (db|s3)")
	f.StringVar(&flags.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	f.StringVar(&flags.logFormat, "log-format", "", "log format (text|json)")
	f.StringVar(&flags.logFile, "log-file", "", "log file path, stderr if empty")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), versionString())
		},
	})

	return cmd
}

// loadConfig файл, затем окружение, затем явно заданные флаги
func loadConfig(cmd *cobra.Command, flags *serverFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	overrides := map[string]struct {
		dst *string
		val string
	}{
		"listen":           {&cfg.ListenAddr, flags.listenAddr},
		"db-driver":        {&cfg.Database.Driver, flags.dbDriver},
		"db-dsn":           {&cfg.Database.DSN, flags.dbDSN},
		"envelope-backend": {&cfg.Envelopes.Backend, flags.envBackend},
		"log-level":        {&cfg.Log.Level, flags.logLevel},
		"log-format":       {&cfg.Log.Format, flags.logFormat},
		"log-file":         {&cfg.Log.File, flags.logFile},
	}
	for name, o := range overrides {
		if cmd.Flags().Changed(name) {
			*o.dst = o.val
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to init logging: %w", err)
	}
	defer closer.Close()

	logger.InfoContext(ctx, "starting vaultsync server",
		"version", Version,
		"commit", GitCommit,
		"db_driver", cfg.Database.Driver,
		"envelope_backend", cfg.Envelopes.Backend,
	)

	srv, err := server.New(ctx, cfg, logger, Version)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error("failed to close server", "error", err)
		}
	}()

	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func versionString() string {
	return fmt.Sprintf("VaultSync Server\nVersion:    %s\nBuild Date: %s\nGit Commit: %s\n",
		Version, BuildDate, GitCommit)
}
