package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/vaultsync/internal/client/data"
	"github.com/iudanet/vaultsync/internal/client/storage"
)

type entryFlags struct {
	label       string
	url         string
	category    string
	username    string
	notes       string
	newPassword bool
}

func (f *entryFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.label, "label", "l", "", "entry label")
	fs.StringVar(&f.url, "url", "", "site URL")
	fs.StringVar(&f.category, "category", "", "category")
	fs.StringVar(&f.username, "login", "", "login stored in the entry")
	fs.StringVar(&f.notes, "notes", "", "notes stored in the entry")
}

func (c *Cli) addCommand() *cobra.Command {
	var f entryFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runAdd(cmd.Context(), &f)
		},
	}
	f.bind(cmd)
	return cmd
}

func (c *Cli) runAdd(ctx context.Context, f *entryFlags) error {
	c.io.Println("=== Add Entry ===")

	svc, err := c.unlock(ctx)
	if err != nil {
		return err
	}

	label := strings.TrimSpace(f.label)
	if label == "" {
		if label, err = c.io.ReadInput("Label: "); err != nil {
			return fmt.Errorf("failed to read label: %w", err)
		}
	}
	secret, err := c.io.ReadPassword("Entry password: ")
	if err != nil {
		return fmt.Errorf("failed to read entry password: %w", err)
	}

	fields := data.Fields{
		Label:    strings.TrimSpace(label),
		URL:      f.url,
		Category: f.category,
	}
	fields.Secret.Username = f.username
	fields.Secret.Password = secret
	fields.Secret.Notes = f.notes

	rec, err := svc.Add(ctx, fields)
	if err != nil {
		return fmt.Errorf("failed to add entry: %w", err)
	}

	c.io.Println("✓ Entry added!")
	c.io.Printf("ID: %s\n", rec.ID)
	return nil
}

func (c *Cli) editCommand() *cobra.Command {
	var f entryFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEdit(cmd, args[0], &f)
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVarP(&f.newPassword, "password", "p", false, "prompt for a new entry password")
	return cmd
}

func (c *Cli) runEdit(cmd *cobra.Command, id string, f *entryFlags) error {
	ctx := cmd.Context()

	svc, err := c.unlock(ctx)
	if err != nil {
		return err
	}
	entry, err := svc.Get(ctx, id)
	if err != nil {
		return entryError(id, err)
	}

	fields := entry.Fields
	changed := cmd.Flags().Changed
	if changed("label") {
		fields.Label = strings.TrimSpace(f.label)
	}
	if changed("url") {
		fields.URL = f.url
	}
	if changed("category") {
		fields.Category = f.category
	}
	if changed("login") {
		fields.Secret.Username = f.username
	}
	if changed("notes") {
		fields.Secret.Notes = f.notes
	}
	if f.newPassword {
		if fields.Secret.Password, err = c.io.ReadPassword("New entry password: "); err != nil {
			return fmt.Errorf("failed to read entry password: %w", err)
		}
	}

	if _, err := svc.Update(ctx, id, fields); err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	c.io.Println("✓ Entry updated!")
	return nil
}

func (c *Cli) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [query]",
		Short: "List entries, optionally filtered by label, URL or category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return c.runList(cmd.Context(), query)
		},
	}
}

func (c *Cli) runList(ctx context.Context, query string) error {
	svc, err := c.unlock(ctx)
	if err != nil {
		return err
	}
	records, err := svc.List(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	c.io.Println("=== Entries ===")
	if len(records) == 0 {
		c.io.Println("No entries found.")
		return nil
	}
	for _, r := range records {
		c.io.Printf("%s  %s", r.ID, r.Label)
		if r.Category != "" {
			c.io.Printf("  [%s]", r.Category)
		}
		if r.URL != "" {
			c.io.Printf("  %s", r.URL)
		}
		c.io.Println()
	}
	c.io.Printf("Total: %d\n", len(records))
	return nil
}

func (c *Cli) showCommand() *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a decrypted entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runShow(cmd.Context(), args[0], reveal)
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print the password instead of a mask")
	return cmd
}

func (c *Cli) runShow(ctx context.Context, id string, reveal bool) error {
	svc, err := c.unlock(ctx)
	if err != nil {
		return err
	}
	entry, err := svc.Get(ctx, id)
	if err != nil {
		return entryError(id, err)
	}
	return renderEntry(c.io, entry, reveal)
}

func (c *Cli) deleteCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDelete(cmd.Context(), args[0], yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (c *Cli) runDelete(ctx context.Context, id string, yes bool) error {
	rec, err := c.store.GetRecord(ctx, id)
	if err != nil {
		return entryError(id, err)
	}

	if !yes {
		answer, err := c.io.ReadInput(fmt.Sprintf("Delete %q? (yes/no): ", rec.Label))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "yes" && answer != "y" {
			c.io.Println("Deletion cancelled.")
			return nil
		}
	}

	if _, err := c.store.DeleteLocal(ctx, id); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	c.io.Println("✓ Entry deleted!")
	return nil
}

func entryError(id string, err error) error {
	if errors.Is(err, storage.ErrRecordNotFound) {
		return fmt.Errorf("entry %s not found", id)
	}
	return err
}
