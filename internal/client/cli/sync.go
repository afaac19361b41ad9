package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/vaultsync/internal/client/auth"
	"github.com/iudanet/vaultsync/internal/client/sync"
)

func (c *Cli) syncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local changes and pull remote ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runSync(cmd.Context())
		},
	}
}

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("=== Sync ===")

	res, err := c.sync(ctx)
	if err != nil {
		return err
	}

	c.io.Println("✓ Sync successful!")
	c.io.Printf("Pushed:  %d (rejected %d)\n", res.Pushed, res.Rejected)
	c.io.Printf("Pulled:  %d (applied %d, deleted %d)\n", res.Pulled, res.Applied, res.Deleted)
	c.io.Printf("Cursor:  %d\n", res.Cursor)
	return nil
}

func (c *Cli) sync(ctx context.Context) (*sync.Result, error) {
	res, err := c.engine.RunFullSync(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			return nil, errNotLoggedIn
		}
		return nil, fmt.Errorf("sync failed: %w", err)
	}
	return res, nil
}

func (c *Cli) watchCommand() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync periodically until interrupted, SIGHUP forces a sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("interval") {
				interval = c.cfg.Sync.WatchInterval.Duration
			}
			if interval <= 0 {
				return errors.New("interval must be positive")
			}

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)

			return c.watch(cmd.Context(), interval, hup)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "time between syncs (default from config)")
	return cmd
}

// watch синхронизирует сразу, затем по таймеру и по сигналу trigger до отмены ctx.
// Ошибки сети не прерывают цикл, потеря сессии прерывает.
func (c *Cli) watch(ctx context.Context, interval time.Duration, trigger <-chan os.Signal) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	unsubscribe := c.engine.Subscribe(func(ev sync.Event) {
		c.io.Printf("Received changes: %d applied, %d deleted (cursor %d)\n", ev.Applied, ev.Deleted, ev.Cursor)
	})
	defer unsubscribe()

	c.io.Printf("Watching, syncing every %s. Press Ctrl+C to stop.\n", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.sync(ctx); err != nil {
			if errors.Is(err, errNotLoggedIn) {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			c.io.Printf("Sync failed: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-trigger:
			c.logger.InfoContext(ctx, "sync requested by signal")
		}
	}
}
