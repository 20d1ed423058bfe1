package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/modhost/internal/lifecycle"
	"github.com/alexisbeaulieu97/modhost/internal/module"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
)

type listOptions struct {
	jsonOutput bool
}

func newListCmd(app *AppContext) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered modules in load order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withHost(cmd, "list modules", "command.module.list", func(ctx context.Context, log ports.Logger, host *Host) error {
				return runList(ctx, cmd, host, opts)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func runList(ctx context.Context, cmd *cobra.Command, host *Host, opts *listOptions) error {
	infos, err := host.Manager.List(ctx)
	if err != nil {
		return newCommandError("list modules", "reading module status", err, suggestionFor(err))
	}

	views := make([]moduleView, len(infos))
	for i, info := range infos {
		views[i] = newModuleView(info)
	}

	if opts.jsonOutput {
		return renderListJSON(cmd, views)
	}
	if len(views) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No modules discovered.")
		fmt.Fprintln(cmd.OutOrStdout(), "\nRun 'modhost module install <archive.zip>' to add your first module.")
		return nil
	}
	return renderListTable(cmd, views)
}

// moduleView is the printable form of a module shared by list and show.
type moduleView struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string        `json:"version,omitempty" yaml:"version,omitempty"`
	AuthorName  string        `json:"author_name,omitempty" yaml:"author_name,omitempty"`
	AuthorURL   string        `json:"author_url,omitempty" yaml:"author_url,omitempty"`
	Priority    int           `json:"priority" yaml:"priority"`
	Core        bool          `json:"is_core" yaml:"is_core"`
	Status      module.Status `json:"status" yaml:"status"`
	State       string        `json:"state" yaml:"state"`
	Namespace   string        `json:"namespace" yaml:"namespace"`
	Path        string        `json:"path" yaml:"path"`
	Migrations  string        `json:"migrations" yaml:"migrations"`
	Kind        string        `json:"kind,omitempty" yaml:"kind,omitempty"`
	Hooks       []string      `json:"hooks,omitempty" yaml:"hooks,omitempty"`
	Source      string        `json:"source,omitempty" yaml:"source,omitempty"`
	Digest      string        `json:"digest,omitempty" yaml:"digest,omitempty"`
	InstalledAt *time.Time    `json:"installed_at,omitempty" yaml:"installed_at,omitempty"`
	UpdatedAt   *time.Time    `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

func newModuleView(info lifecycle.ModuleInfo) moduleView {
	d := info.Descriptor
	meta := d.Metadata()
	view := moduleView{
		ID:          d.ID(),
		Name:        meta.Name,
		Description: meta.Description,
		Version:     meta.Version,
		AuthorName:  meta.AuthorName,
		AuthorURL:   meta.AuthorURL,
		Priority:    meta.Priority,
		Core:        meta.IsCore,
		Status:      info.Status,
		State:       info.State.String(),
		Namespace:   d.Namespace(),
		Path:        d.BasePath(),
		Migrations:  d.MigrationPath(),
		Source:      info.Record.Source,
		Digest:      info.Record.Digest,
	}
	if h, ok := d.(interface{ Hooks() []string }); ok {
		view.Hooks = h.Hooks()
	}
	if !info.Record.InstalledAt.IsZero() {
		installed := info.Record.InstalledAt
		view.InstalledAt = &installed
	}
	if !info.Record.UpdatedAt.IsZero() {
		updated := info.Record.UpdatedAt
		view.UpdatedAt = &updated
	}
	return view
}

func renderListTable(cmd *cobra.Command, views []moduleView) error {
	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

	fmt.Fprintln(writer, "ID\tVERSION\tPRIORITY\tSTATUS\tSTATE\tSOURCE")

	styled := supportsUnicode(cmd.OutOrStdout())
	for _, v := range views {
		id := v.ID
		if v.Core {
			id += " (core)"
		}
		fmt.Fprintf(writer, "%s\t%s\t%d\t%s\t%s\t%s\n",
			id,
			valueOrFallback(v.Version, "-"),
			v.Priority,
			formatStatus(v.Status, styled),
			v.State,
			valueOrFallback(v.Source, "-"),
		)
	}

	return writer.Flush()
}

type listJSONPayload struct {
	Version string       `json:"version"`
	Count   int          `json:"count"`
	Modules []moduleView `json:"modules"`
}

func renderListJSON(cmd *cobra.Command, views []moduleView) error {
	payload := listJSONPayload{
		Version: "1.0",
		Count:   len(views),
		Modules: views,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

var (
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func supportsUnicode(writer any) bool {
	if file, ok := writer.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}

func formatStatus(status module.Status, styled bool) string {
	if !styled {
		if status == module.StatusActive {
			return "[on] active"
		}
		return "[--] inactive"
	}
	if status == module.StatusActive {
		return activeStyle.Render("● active")
	}
	return inactiveStyle.Render("○ inactive")
}

func formatRelativeTime(ts time.Time) string {
	if ts.IsZero() {
		return "never"
	}

	delta := time.Since(ts)
	if delta < time.Minute {
		return "just now"
	}
	if delta < time.Hour {
		return fmt.Sprintf("%d minutes ago", int(delta.Minutes()))
	}
	if delta < 24*time.Hour {
		return fmt.Sprintf("%d hours ago", int(delta.Hours()))
	}

	return fmt.Sprintf("%d days ago", int(delta.Hours()/24))
}

func valueOrFallback(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
