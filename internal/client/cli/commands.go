package cli

import (
	"github.com/spf13/cobra"
)

// Command собирает дерево команд клиента
func (c *Cli) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "vaultsync",
		Short:         "Offline-first password vault with server sync",
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return c.setup(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetVersionTemplate(c.version)

	pf := root.PersistentFlags()
	pf.StringVarP(&c.flags.configPath, "config", "c", "", "path to TOML config file")
	pf.StringVar(&c.flags.serverURL, "server", "", "server URL")
	pf.StringVar(&c.flags.dbPath, "db", "", "path to local database")
	pf.StringVar(&c.flags.deviceName, "device-name", "", "device name shown to the server")
	pf.StringVar(&c.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&c.flags.passwordFile, "password-file", "", "read account password from file")

	root.AddCommand(
		c.registerCommand(),
		c.loginCommand(),
		c.logoutCommand(),
		c.statusCommand(),
		c.addCommand(),
		c.editCommand(),
		c.listCommand(),
		c.showCommand(),
		c.deleteCommand(),
		c.syncCommand(),
		c.watchCommand(),
		c.exportCommand(),
		c.importCommand(),
		c.devicesCommand(),
		c.mfaCommand(),
		c.versionCommand(),
	)
	return root
}

func (c *Cli) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(*cobra.Command, []string) {
			c.io.Printf("%s", c.version)
		},
	}
}
