package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	pkgapi "github.com/iudanet/vaultsync/pkg/api"
)

func (c *Cli) devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List devices of the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runDevices(cmd.Context())
		},
	}
}

func (c *Cli) runDevices(ctx context.Context) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	var devices []pkgapi.Device
	err := c.auth.Do(ctx, func(ctx context.Context, token string) error {
		var err error
		devices, err = c.api.ListDevices(ctx, token)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	c.io.Println("=== Devices ===")
	for _, d := range devices {
		c.io.Printf("%s  %-20s last seen %s\n", d.ID, d.Name, formatMillis(d.LastSeenAt))
	}
	return nil
}

func (c *Cli) mfaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mfa",
		Short: "Manage two-factor authentication",
	}

	enroll := &cobra.Command{
		Use:   "enroll",
		Short: "Generate a TOTP secret for an authenticator app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runMFAEnroll(cmd.Context())
		},
	}
	confirm := &cobra.Command{
		Use:   "confirm <code>",
		Short: "Enable two-factor authentication with a code from the app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMFAConfirm(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(enroll, confirm)
	return cmd
}

func (c *Cli) runMFAEnroll(ctx context.Context) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	var resp *pkgapi.MFAEnrollResponse
	err := c.auth.Do(ctx, func(ctx context.Context, token string) error {
		var err error
		resp, err = c.api.MFAEnroll(ctx, token)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to enroll: %w", err)
	}

	c.io.Println("=== Two-factor authentication ===")
	c.io.Printf("Secret: %s\n", resp.Secret)
	c.io.Printf("URL:    %s\n", resp.URL)
	c.io.Println("Add the secret to your authenticator app, then run 'vaultsync mfa confirm <code>'.")
	return nil
}

func (c *Cli) runMFAConfirm(ctx context.Context, code string) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	err := c.auth.Do(ctx, func(ctx context.Context, token string) error {
		return c.api.MFAConfirm(ctx, token, code)
	})
	if err != nil {
		return fmt.Errorf("failed to confirm: %w", err)
	}
	c.io.Println("✓ Two-factor authentication enabled!")
	return nil
}
