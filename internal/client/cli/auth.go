package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/vaultsync/internal/client/api"
)

func (c *Cli) registerCommand() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and a new vault key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runRegister(cmd.Context(), username)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	return cmd
}

func (c *Cli) runRegister(ctx context.Context, username string) error {
	c.io.Println("=== Registration ===")

	username, err := c.username(username)
	if err != nil {
		return err
	}
	password, err := c.newAccountPassword()
	if err != nil {
		return err
	}

	res, err := c.auth.Register(ctx, username, password)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	c.io.Println("✓ Registration successful!")
	c.io.Printf("Username:  %s\n", res.Session.Username)
	c.io.Printf("User ID:   %s\n", res.Session.UserID)
	c.io.Printf("Device ID: %s\n", res.Session.DeviceID)
	if res.Switched {
		c.io.Println("Local data of the previous account was removed from this device.")
	}
	return nil
}

func (c *Cli) loginCommand() *cobra.Command {
	var username, mfaCode string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and download the vault key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runLogin(cmd.Context(), username, mfaCode)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVar(&mfaCode, "mfa-code", "", "one-time code if two-factor auth is enabled")
	return cmd
}

func (c *Cli) runLogin(ctx context.Context, username, mfaCode string) error {
	c.io.Println("=== Login ===")

	username, err := c.username(username)
	if err != nil {
		return err
	}
	password, err := c.accountPassword("Password: ")
	if err != nil {
		return err
	}

	res, err := c.auth.Login(ctx, username, password, mfaCode)
	var mfaErr *api.MFARequiredError
	if errors.As(err, &mfaErr) && mfaCode == "" {
		code, readErr := c.io.ReadInput("Authentication code: ")
		if readErr != nil {
			return fmt.Errorf("failed to read code: %w", readErr)
		}
		res, err = c.auth.Login(ctx, username, password, strings.TrimSpace(code))
	}
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	c.io.Println("✓ Login successful!")
	c.io.Printf("Username:  %s\n", res.Session.Username)
	c.io.Printf("Device ID: %s\n", res.Session.DeviceID)
	if res.Switched {
		c.io.Println("Local data of the previous account was removed from this device.")
	}
	c.io.Println("Run 'vaultsync sync' to download your records.")
	return nil
}

func (c *Cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runLogout(cmd.Context())
		},
	}
}

func (c *Cli) runLogout(ctx context.Context) error {
	if err := c.auth.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	c.io.Println("✓ Logged out")
	return nil
}

func (c *Cli) username(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return "", fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return "", errors.New("username cannot be empty")
	}
	return username, nil
}
