package main

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/modhost/internal/config"
	"github.com/alexisbeaulieu97/modhost/pkg/diff"
)

func newConfigCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create and inspect the host configuration",
	}

	cmd.AddCommand(newConfigInitCmd(app))
	cmd.AddCommand(newConfigShowCmd(app))
	cmd.AddCommand(newConfigDiffCmd(app))

	return cmd
}

func newConfigInitCmd(app *AppContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, log := app.CommandContext(cmd, "command.config.init")

			path := app.flags.configPath
			if path == "" {
				path = config.FileName
			}

			if err := config.Write(afero.NewOsFs(), path, config.Default(), force); err != nil {
				log.Error(ctx, "config write failed", "path", path, "error", err)
				if errors.Is(err, config.ErrExists) {
					return newCommandError("initialize config", fmt.Sprintf("writing %s", path), err, "Use --force to overwrite the existing file.")
				}
				return newCommandError("initialize config", fmt.Sprintf("writing %s", path), err, suggestionFor(err))
			}

			log.Info(ctx, "config written", "path", path)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

func newConfigShowCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after defaults and environment overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _ := app.CommandContext(cmd, "command.config.show")

			cfg, path, err := app.Config(ctx)
			if err != nil {
				return newCommandError("show config", "loading configuration", err, suggestionFor(err))
			}

			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n", valueOrFallback(path, "(defaults)"))
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigDiffCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show how the effective configuration differs from the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _ := app.CommandContext(cmd, "command.config.diff")

			cfg, path, err := app.Config(ctx)
			if err != nil {
				return newCommandError("diff config", "loading configuration", err, suggestionFor(err))
			}

			defaults, err := config.Marshal(config.Default())
			if err != nil {
				return err
			}
			effective, err := config.Marshal(cfg)
			if err != nil {
				return err
			}

			out := diff.Unified(defaults, effective, "defaults", valueOrFallback(path, "environment"))
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Configuration matches the defaults.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			added, removed := diff.Changed(out)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d added, %d removed\n", added, removed)
			return nil
		},
	}
}
