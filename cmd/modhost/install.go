package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/modhost/internal/installer"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
	"github.com/alexisbeaulieu97/modhost/internal/source"
)

type sourceOptions struct {
	gitURL  string
	gitRef  string
	gitName string
	depth   int
}

func (o *sourceOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.gitURL, "git", "", "Install from a git repository instead of an archive")
	cmd.Flags().StringVar(&o.gitRef, "ref", "", "Branch or tag to check out (with --git)")
	cmd.Flags().StringVar(&o.gitName, "name", "", "Module folder for repositories whose root is the module itself (with --git)")
	cmd.Flags().IntVar(&o.depth, "depth", 1, "Clone depth (with --git, 0 for full history)")
}

// resolve turns the positional archive or the git flags into a Source.
func (o *sourceOptions) resolve(args []string) (installer.Source, error) {
	if o.gitURL != "" {
		if len(args) > 0 {
			return nil, errors.New("pass either an archive path or --git, not both")
		}
		return source.Git{URL: o.gitURL, Ref: o.gitRef, Name: o.gitName, Depth: o.depth}, nil
	}
	if o.gitRef != "" || o.gitName != "" {
		return nil, errors.New("--ref and --name require --git")
	}
	if len(args) != 1 {
		return nil, errors.New("an archive path is required")
	}
	path, err := validateAndNormalizePath(args[0])
	if err != nil {
		return nil, err
	}
	return installer.ArchiveSource{Path: path}, nil
}

func newInstallCmd(app *AppContext) *cobra.Command {
	opts := &sourceOptions{}

	cmd := &cobra.Command{
		Use:   "install [archive.zip]",
		Short: "Install a module from a zip archive or a git repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := opts.resolve(args)
			if err != nil {
				return newCommandError("install module", "resolving the package source", err, "Run 'modhost module install <archive.zip>' or 'modhost module install --git <url>'.")
			}
			return app.withHost(cmd, "install module", "command.module.install", func(ctx context.Context, log ports.Logger, host *Host) error {
				log.Info(ctx, "installing module", "source", src.Describe())
				return runInstall(ctx, cmd, host, src)
			})
		},
	}

	opts.bind(cmd)
	return cmd
}

func runInstall(ctx context.Context, cmd *cobra.Command, host *Host, src installer.Source) error {
	d, err := host.Manager.Install(ctx, src)
	if err != nil {
		return newCommandError("install module", fmt.Sprintf("installing from %s", src.Describe()), err, suggestionFor(err))
	}

	meta := d.Metadata()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Installed module '%s' (%s)\n", d.ID(), valueOrFallback(meta.Version, "no version"))
	fmt.Fprintf(out, "  Path:   %s\n", d.BasePath())
	fmt.Fprintf(out, "  Source: %s\n", src.Describe())
	fmt.Fprintf(out, "\nRun 'modhost module activate %s' to enable it.\n", d.ID())
	return nil
}

func newCheckCmd(app *AppContext) *cobra.Command {
	opts := &sourceOptions{}

	cmd := &cobra.Command{
		Use:   "check [archive.zip]",
		Short: "Validate a package without installing it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := opts.resolve(args)
			if err != nil {
				return newCommandError("check package", "resolving the package source", err, "Run 'modhost module check <archive.zip>' or 'modhost module check --git <url>'.")
			}
			return app.withHost(cmd, "check package", "command.module.check", func(ctx context.Context, log ports.Logger, host *Host) error {
				return runCheck(ctx, cmd, host, src)
			})
		},
	}

	opts.bind(cmd)
	return cmd
}

func runCheck(ctx context.Context, cmd *cobra.Command, host *Host, src installer.Source) error {
	results, err := host.Installer.Check(ctx, src)

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "GATE\tRESULT\tDETAIL")
	for _, r := range results {
		outcome := "pass"
		if !r.Passed {
			outcome = "FAIL"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\n", r.Check, outcome, r.Message)
	}
	if ferr := writer.Flush(); ferr != nil {
		return ferr
	}

	if err != nil {
		return newCommandError("check package", fmt.Sprintf("validating %s", src.Describe()), err, suggestionFor(err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), "\n✓ Package can be installed.")
	return nil
}

func validateAndNormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("archive path cannot be empty")
	}

	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", err
	}

	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory, not a file", absPath)
	}

	return absPath, nil
}
