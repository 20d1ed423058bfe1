package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/modhost/internal/ports"
)

type removeOptions struct {
	force bool
}

func newRemoveCmd(app *AppContext) *cobra.Command {
	opts := &removeOptions{}

	cmd := &cobra.Command{
		Use:     "remove <module-id>...",
		Aliases: []string{"uninstall", "rm"},
		Short:   "Uninstall one or more modules",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if strings.TrimSpace(id) == "" {
					return newCommandError("remove modules", "validating module IDs", errors.New("module ID cannot be empty"), "Provide the IDs of the modules you wish to remove.")
				}
			}
			if !opts.force {
				confirmed, err := confirmRemoval(cmd, args)
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			return app.withHost(cmd, "remove modules", "command.module.remove", func(ctx context.Context, log ports.Logger, host *Host) error {
				return runRemove(ctx, cmd, host, args)
			})
		},
	}

	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Remove without confirmation")

	return cmd
}

func runRemove(ctx context.Context, cmd *cobra.Command, host *Host, ids []string) error {
	removed, err := host.Manager.UninstallMany(ctx, ids)
	for _, id := range removed {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed module '%s'\n", id)
	}
	if err == nil {
		return nil
	}

	failures := multierr.Errors(err)
	for _, failure := range failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "✗ %v\n", failure)
	}
	return newCommandError("remove modules",
		fmt.Sprintf("%d of %d removals failed", len(failures), len(ids)),
		err, suggestionFor(failures[0]))
}

func confirmRemoval(cmd *cobra.Command, ids []string) (bool, error) {
	if !isTerminal(cmd.InOrStdin()) {
		return false, newCommandError("remove modules", "prompting for confirmation", errors.New("not a terminal"), "Use --force when running in non-interactive environments.")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Remove %s and delete their files? [y/N]: ", strings.Join(quoteAll(ids), ", "))

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		return false, scanner.Err()
	}

	answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return answer == "y" || answer == "yes", nil
}

func quoteAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = "'" + id + "'"
	}
	return out
}

func isTerminal(reader any) bool {
	if file, ok := reader.(*os.File); ok {
		return termIsTerminal(int(file.Fd()))
	}
	return false
}

var termIsTerminal = func(fd int) bool {
	return term.IsTerminal(fd)
}
