package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/vaultsync/internal/client/auth"
)

func (c *Cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runStatus(cmd.Context())
		},
	}
}

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")
	c.io.Printf("Server:   %s\n", c.cfg.ServerURL)

	session, err := c.auth.Session(ctx)
	switch {
	case errors.Is(err, auth.ErrNotLoggedIn):
		c.io.Println("Session:  not logged in")
	case err != nil:
		return err
	default:
		c.io.Printf("Session:  %s (device %s)\n", session.Username, session.DeviceID)
	}

	state, err := c.store.GetSyncState(ctx)
	if err != nil {
		return fmt.Errorf("failed to read sync state: %w", err)
	}
	pending, err := c.store.CountOutbox(ctx)
	if err != nil {
		return fmt.Errorf("failed to count pending changes: %w", err)
	}

	c.io.Printf("Cursor:   %d\n", state.Cursor)
	c.io.Printf("Pending:  %d\n", pending)
	c.io.Printf("Synced:   %s\n", formatMillis(state.LastSyncAt))
	c.io.Printf("Attempt:  %s\n", formatMillis(state.LastSyncAttemptAt))
	if state.LastSyncError != "" {
		c.io.Printf("Error:    %s\n", state.LastSyncError)
	}
	return nil
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "never"
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
