package main

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/modhost/internal/config"
	"github.com/alexisbeaulieu97/modhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/modhost/internal/logger"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
)

// AppContext bundles what every command shares: flags, the loaded
// configuration and the root logger. Services are opened per command by
// withHost.
type AppContext struct {
	flags *rootFlags
	// environ replaces the process environment when non-nil.
	environ []string

	mu      sync.Mutex
	loaded  bool
	cfg     *config.Config
	cfgPath string
	cfgErr  error
	logger  ports.Logger
}

func newAppContext(flags *rootFlags) *AppContext {
	return &AppContext{flags: flags}
}

// Config loads the configuration once per process.
func (a *AppContext) Config(ctx context.Context) (*config.Config, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.loaded {
		a.cfg, a.cfgPath, a.cfgErr = config.Load(ctx, config.LoadOptions{
			Path:    a.flags.configPath,
			Fs:      afero.NewOsFs(),
			Environ: a.environ,
		})
		a.loaded = true
	}
	return a.cfg, a.cfgPath, a.cfgErr
}

// CommandContext returns the command's context tagged with a fresh
// correlation id, and a logger scoped to component. A configuration that
// fails to load falls back to default logging; the error surfaces when the
// command opens the host.
func (a *AppContext) CommandContext(cmd *cobra.Command, component string) (context.Context, ports.Logger) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = ports.WithCorrelationID(ctx, ports.GenerateCorrelationID())

	cfg, _, err := a.Config(ctx)
	if err != nil || cfg == nil {
		cfg = config.Default()
	}
	return ctx, a.rootLogger(cmd.ErrOrStderr(), cfg.Log).With("component", component)
}

func (a *AppContext) rootLogger(w io.Writer, lc config.LogConfig) ports.Logger {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.logger != nil {
		return a.logger
	}

	level := lc.Level
	if a.flags.verbose {
		level = "debug"
	}
	format := lc.Format
	if a.flags.logFormat != "" {
		format = a.flags.logFormat
	}

	l, err := newLogger(w, level, format)
	if err != nil {
		l = logging.NewNoOpLogger()
	}
	a.logger = l
	return l
}

// newLogger picks zerolog for machine-readable output and charmbracelet/log
// for the console.
func newLogger(w io.Writer, level, format string) (ports.Logger, error) {
	if strings.EqualFold(format, "json") {
		return logger.New(logger.Options{Level: level, Writer: w})
	}
	return logging.New(logging.Options{Writer: w, Level: level, Format: "text", Layer: "cli"})
}

// withHost opens the host for one command, runs fn, and closes the host.
func (a *AppContext) withHost(cmd *cobra.Command, operation, component string, fn func(ctx context.Context, log ports.Logger, host *Host) error) error {
	ctx, log := a.CommandContext(cmd, component)

	cfg, path, err := a.Config(ctx)
	if err != nil {
		log.Error(ctx, "configuration load failed", "error", err)
		return newCommandError(operation, "loading configuration", err, suggestionFor(err))
	}
	log.Debug(ctx, "configuration loaded", "path", valueOrFallback(path, "(defaults)"))

	host, err := openHost(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "host startup failed", "error", err)
		return newCommandError(operation, "starting the module host", err, suggestionFor(err))
	}
	defer func() {
		if cerr := host.Close(); cerr != nil {
			log.Warn(ctx, "host shutdown failed", "error", cerr)
		}
	}()

	err = fn(ctx, log, host)
	if err != nil {
		log.Error(ctx, operation+" failed", "error", err)
	}
	return err
}
