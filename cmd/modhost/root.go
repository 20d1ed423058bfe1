package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	verbose    bool
	logFormat  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	app := newAppContext(flags)

	cmd := &cobra.Command{
		Use:           "modhost",
		Short:         "modhost discovers, installs and manages application modules",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to the configuration file (default ./modhost.yaml)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format: console or json (overrides log.format)")

	cmd.AddCommand(newModuleCmd(app))
	cmd.AddCommand(newBootCmd(app))
	cmd.AddCommand(newMigrationsCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDashboardCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newModuleCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "module",
		Aliases: []string{"modules", "mod"},
		Short:   "Install, inspect and manage modules",
	}

	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newInstallCmd(app))
	cmd.AddCommand(newCheckCmd(app))
	cmd.AddCommand(newActivateCmd(app))
	cmd.AddCommand(newDeactivateCmd(app))
	cmd.AddCommand(newRemoveCmd(app))

	return cmd
}
