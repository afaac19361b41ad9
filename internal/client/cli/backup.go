package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iudanet/vaultsync/internal/client/backup"
)

// BackupPassphraseEnv переменная окружения с паролем файла экспорта
const BackupPassphraseEnv = "VAULTSYNC_BACKUP_PASSPHRASE"

func (c *Cli) exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write an encrypted backup of the local vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd.Context(), args[0])
		},
	}
}

func (c *Cli) runExport(ctx context.Context, path string) error {
	passphrase, err := c.backupPassphrase(true)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}

	archive, err := backup.Export(ctx, c.store, f, passphrase, c.backupOpts...)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("export failed: %w", err)
	}

	c.io.Println("✓ Export successful!")
	c.io.Printf("Records:    %d\n", len(archive.Records))
	c.io.Printf("Tombstones: %d\n", len(archive.Tombstones))
	return nil
}

func (c *Cli) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge an encrypted backup into the local vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runImport(cmd.Context(), args[0])
		},
	}
}

func (c *Cli) runImport(ctx context.Context, path string) error {
	passphrase, err := c.backupPassphrase(false)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	res, err := backup.Import(ctx, c.store, f, passphrase)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	c.io.Println("✓ Import successful!")
	c.io.Printf("Applied: %d\n", res.Applied)
	c.io.Printf("Skipped: %d\n", res.Skipped)
	return nil
}

func (c *Cli) backupPassphrase(confirm bool) (string, error) {
	if v, ok := c.lookup(BackupPassphraseEnv); ok && v != "" {
		return v, nil
	}

	passphrase, err := c.io.ReadPassword("Backup passphrase: ")
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if passphrase == "" {
		return "", errors.New("passphrase cannot be empty")
	}
	if confirm {
		again, err := c.io.ReadPassword("Confirm passphrase: ")
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		if again != passphrase {
			return "", errors.New("passphrases do not match")
		}
	}
	return passphrase, nil
}
