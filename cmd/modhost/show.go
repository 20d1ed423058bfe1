package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/modhost/internal/module"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
)

type showOptions struct {
	jsonOutput bool
	yamlOutput bool
}

func newShowCmd(app *AppContext) *cobra.Command {
	opts := &showOptions{}

	cmd := &cobra.Command{
		Use:   "show <module-id>",
		Short: "Show detailed information about a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(args[0]) == "" {
				return newCommandError("show module", "validating module ID", errors.New("module ID cannot be empty"), "Provide the module ID you wish to inspect.")
			}
			return app.withHost(cmd, "show module", "command.module.show", func(ctx context.Context, log ports.Logger, host *Host) error {
				return runShow(ctx, cmd, host, args[0], opts)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output module details as JSON")
	cmd.Flags().BoolVar(&opts.yamlOutput, "yaml", false, "Output module details as YAML")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")

	return cmd
}

func runShow(ctx context.Context, cmd *cobra.Command, host *Host, id string, opts *showOptions) error {
	info, err := host.Manager.Get(ctx, id)
	if err != nil {
		return newCommandError("show module", fmt.Sprintf("looking up module %q", id), err, suggestionFor(err))
	}
	view := newModuleView(info)
	view.Kind = moduleKind(host, info.Descriptor)

	switch {
	case opts.jsonOutput:
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(view)
	case opts.yamlOutput:
		encoder := yaml.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent(2)
		if err := encoder.Encode(view); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return renderShowTable(cmd, view)
	}
}

// moduleKind tells compiled-in modules from script modules.
func moduleKind(host *Host, d module.Descriptor) string {
	if slices.Contains(host.Catalog.IDs(d.Namespace()), d.ID()) {
		return "compiled-in"
	}
	return "script"
}

func renderShowTable(cmd *cobra.Command, v moduleView) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Module:    %s\n", v.ID)
	fmt.Fprintf(out, "Name:      %s\n", valueOrFallback(v.Name, "(no name)"))
	fmt.Fprintf(out, "Version:   %s\n", valueOrFallback(v.Version, "(none)"))
	fmt.Fprintf(out, "Status:    %s\n", formatStatus(v.Status, supportsUnicode(out)))
	fmt.Fprintf(out, "State:     %s\n", v.State)
	fmt.Fprintf(out, "Priority:  %d\n", v.Priority)
	fmt.Fprintf(out, "Core:      %t\n", v.Core)
	fmt.Fprintf(out, "\nDescription:\n  %s\n\n", valueOrFallback(v.Description, "(none)"))

	if v.AuthorName != "" || v.AuthorURL != "" {
		fmt.Fprintf(out, "Author:    %s %s\n", v.AuthorName, v.AuthorURL)
	}
	fmt.Fprintf(out, "Namespace: %s\n", v.Namespace)
	fmt.Fprintf(out, "Path:      %s\n", v.Path)
	fmt.Fprintf(out, "Migrations: %s\n", v.Migrations)
	fmt.Fprintf(out, "Kind:      %s\n", v.Kind)
	if len(v.Hooks) > 0 {
		fmt.Fprintf(out, "Hooks:     %s\n", strings.Join(v.Hooks, ", "))
	}
	fmt.Fprintf(out, "Source:    %s\n", valueOrFallback(v.Source, "(built in or copied by hand)"))
	if v.Digest != "" {
		fmt.Fprintf(out, "Digest:    %s\n", v.Digest)
	}
	fmt.Fprintf(out, "Installed: %s\n", formatTimestamp(v.InstalledAt))
	fmt.Fprintf(out, "Updated:   %s\n", formatTimestamp(v.UpdatedAt))
	return nil
}

func formatTimestamp(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return "never"
	}
	return fmt.Sprintf("%s (%s)", ts.Format(time.RFC3339), formatRelativeTime(*ts))
}
