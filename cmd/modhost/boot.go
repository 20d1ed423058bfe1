package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/modhost/internal/ports"
)

func newBootCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "boot",
		Short: "Discover, register and boot every module and print the load order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withHost(cmd, "boot modules", "command.boot", func(ctx context.Context, log ports.Logger, host *Host) error {
				modules := host.Registry.Modules()
				log.Info(ctx, "host booted", "module_count", len(modules))

				writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(writer, "#\tID\tPRIORITY\tSTATE\tNAMESPACE")
				for i, d := range modules {
					state, _ := host.Registry.StateOf(d.ID())
					fmt.Fprintf(writer, "%d\t%s\t%d\t%s\t%s\n", i+1, d.ID(), d.Metadata().Priority, state, d.Namespace())
				}
				if err := writer.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Booted %d modules.\n", len(modules))
				return nil
			})
		},
	}
}

func newMigrationsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrations",
		Short: "Print the migration directory of every module in load order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withHost(cmd, "list migrations", "command.migrations", func(ctx context.Context, log ports.Logger, host *Host) error {
				for _, path := range host.Registry.MigrationPaths() {
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				return nil
			})
		},
	}
}
