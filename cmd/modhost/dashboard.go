package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/modhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
	"github.com/alexisbeaulieu97/modhost/internal/tui/dashboard"
)

func newDashboardCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Launch the interactive dashboard",
		Long:  `Launch the interactive TUI dashboard to view, activate, deactivate and uninstall modules.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, log := app.CommandContext(cmd, "command.dashboard")

			cfg, _, err := app.Config(ctx)
			if err != nil {
				return newCommandError("run dashboard", "loading configuration", err, suggestionFor(err))
			}

			// The TUI owns the terminal until it exits; host logs are held
			// and written out afterwards.
			recorder := logging.NewRecorder(0)
			defer recorder.Flush(log)

			host, err := openHost(ctx, cfg, logging.NewRecordingLogger(recorder).With("component", "command.dashboard"))
			if err != nil {
				return newCommandError("run dashboard", "starting the module host", err, suggestionFor(err))
			}
			defer func() {
				if cerr := host.Close(); cerr != nil {
					log.Warn(ctx, "host shutdown failed", "error", cerr)
				}
			}()

			err = runDashboard(ctx, cmd, host, log)
			if err != nil {
				log.Error(ctx, "dashboard command failed", "error", err)
			}
			return err
		},
	}
}

func runDashboard(ctx context.Context, cmd *cobra.Command, host *Host, log ports.Logger) error {
	service := newDashboardModuleAdapter(host)

	rows, err := service.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load modules: %w", err)
	}
	log.Info(ctx, "dashboard loaded", "module_count", len(rows))

	m := dashboard.NewModel(rows, service,
		dashboard.WithContext(ctx),
		dashboard.WithUnicode(supportsUnicode(cmd.OutOrStdout())),
	)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}

	log.Info(ctx, "dashboard closed")
	return nil
}
