package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/modhost/internal/lifecycle"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
)

func newActivateCmd(app *AppContext) *cobra.Command {
	return newStateCmd(app, lifecycle.ActionActivate, "Activate a module")
}

func newDeactivateCmd(app *AppContext) *cobra.Command {
	return newStateCmd(app, lifecycle.ActionDeactivate, "Deactivate a module")
}

func newStateCmd(app *AppContext, action lifecycle.Action, short string) *cobra.Command {
	operation := string(action) + " module"

	return &cobra.Command{
		Use:   string(action) + " <module-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return app.withHost(cmd, operation, "command.module."+string(action), func(ctx context.Context, log ports.Logger, host *Host) error {
				before, err := host.Manager.Get(ctx, id)
				if err != nil {
					return newCommandError(operation, fmt.Sprintf("looking up module %q", id), err, suggestionFor(err))
				}

				if _, err := host.Manager.Perform(ctx, action, id, nil); err != nil {
					return newCommandError(operation, fmt.Sprintf("running %s on %q", action, id), err, suggestionFor(err))
				}

				after, err := host.Manager.Get(ctx, id)
				if err != nil {
					return newCommandError(operation, fmt.Sprintf("reading status of %q", id), err, suggestionFor(err))
				}
				if before.Status == after.Status {
					fmt.Fprintf(cmd.OutOrStdout(), "Module '%s' is already %s.\n", id, after.Status)
					return nil
				}
				log.Info(ctx, "module status changed", "module_id", id, "status", after.Status)
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Module '%s' is now %s.\n", id, after.Status)
				return nil
			})
		},
	}
}
