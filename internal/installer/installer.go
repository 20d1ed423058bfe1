// Package installer turns an untrusted module package into an installed,
// booted module, or rejects it without leaving anything behind.
//
// An install runs these steps in order:
//
//	extract        stage the source into a fresh scratch directory
//	single root    exactly one top-level folder, named like a module id
//	core override  never replace a core module
//	entry file     <id>/<id>.lua, plus <public>/<id>.js when public exists
//	pattern scan   forbidden constructs in source files
//	extension      allow-list, and no private extensions in public
//	promote        move into the live tree, publish assets
//	cleanup        release the scratch directory, always
//	reload         discover, register and boot the new module
//	approve        optional caller veto; a refusal undoes promote and reload
//
// Installs of the same id are serialized; different ids run concurrently.
package installer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/alexisbeaulieu97/modhost/internal/container"
	"github.com/alexisbeaulieu97/modhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/modhost/internal/module"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
	"github.com/alexisbeaulieu97/modhost/internal/storage"
	"github.com/alexisbeaulieu97/modhost/internal/validation"
)

// Reloader is the registry surface the installer drives.
type Reloader interface {
	ModuleLookup
	Reload(ctx context.Context, c *container.Container, ids ...string) ([]module.Descriptor, error)
	Forget(c *container.Container, id string) bool
}

// Approval decides, with the per-id lock still held, whether a loaded module
// stays installed. Returning false or an error undoes the install.
type Approval func(ctx context.Context, d module.Descriptor) (bool, error)

// Options configures an Installer.
type Options struct {
	Storage   storage.Storage
	Scratch   *storage.Scratch
	Registry  Reloader
	Container *container.Container
	Layout    Layout
	Policy    Policy
	// Locks is shared with whatever else mutates the live tree. Nil creates
	// a private one.
	Locks *KeyedMutex
	// Metrics nil creates instruments on the global MeterProvider.
	Metrics *Metrics
	Logger  ports.Logger
}

// Installation describes a successful install.
type Installation struct {
	Descriptor module.Descriptor
	Digest     string
	Source     string
	// Replaced is true when an installed version was overwritten.
	Replaced bool
	// Declined is true when the approval refused the module. Nothing was
	// installed and Descriptor is the module as it was loaded.
	Declined bool
}

// Installer runs the install pipeline.
type Installer struct {
	storage   storage.Storage
	scratch   *storage.Scratch
	registry  Reloader
	container *container.Container
	extractor *Extractor
	validator *Validator
	promoter  *Promoter
	locks     *KeyedMutex
	metrics   *Metrics
	logger    ports.Logger
}

// New creates an Installer.
func New(opts Options) (*Installer, error) {
	if opts.Storage == nil {
		return nil, errors.New("installer: storage is required")
	}
	if opts.Scratch == nil {
		return nil, errors.New("installer: scratch allocator is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("installer: registry is required")
	}
	if opts.Layout.ModulesDir == "" || opts.Layout.PublicRoot == "" {
		return nil, errors.New("installer: modules dir and public root are required")
	}
	if opts.Container == nil {
		opts.Container = container.New()
	}
	if opts.Locks == nil {
		opts.Locks = NewKeyedMutex()
	}
	if opts.Metrics == nil {
		m, err := NewMetrics(nil)
		if err != nil {
			return nil, err
		}
		opts.Metrics = m
	}

	logger := logging.OrNoOp(opts.Logger).With("component", "installer")
	validator, err := NewValidator(opts.Storage, opts.Policy, opts.Registry, logger)
	if err != nil {
		return nil, err
	}

	return &Installer{
		storage:   opts.Storage,
		scratch:   opts.Scratch,
		registry:  opts.Registry,
		container: opts.Container,
		extractor: NewExtractor(opts.Storage, opts.Scratch, opts.Policy.Limits, logger),
		validator: validator,
		promoter:  NewPromoter(opts.Storage, opts.Layout, opts.Policy.PublicDir, logger),
		locks:     opts.Locks,
		metrics:   opts.Metrics,
		logger:    logger,
	}, nil
}

// Locks returns the per-id lock shared by install and uninstall.
func (i *Installer) Locks() *KeyedMutex { return i.locks }

// Install installs the zip archive at archivePath.
func (i *Installer) Install(ctx context.Context, archivePath string) (module.Descriptor, error) {
	installation, err := i.InstallFrom(ctx, ArchiveSource{Path: archivePath}, nil)
	if installation == nil {
		return nil, err
	}
	return installation.Descriptor, err
}

// InstallFrom runs the full pipeline for src. Any gate failure returns a
// typed error and leaves the live tree untouched. The scratch directory is
// released in every case; a release failure is combined into the returned
// error. A non-nil approve runs after reload.
func (i *Installer) InstallFrom(ctx context.Context, src Source, approve Approval) (installation *Installation, err error) {
	i.metrics.attempt(ctx)
	i.logger.Info(ctx, "install started", "source", src.Describe())

	candidate, err := i.extractor.Extract(ctx, src)
	if candidate != nil {
		defer func() {
			err = multierr.Append(err, i.release(ctx, candidate))
		}()
	}
	if err != nil {
		i.rejected(ctx, candidate, err)
		return nil, err
	}

	unlock := i.locks.Lock(candidate.ID)
	defer unlock()

	if _, err = i.validator.Chain(candidate).Run(ctx, validation.FailFast); err != nil {
		i.rejected(ctx, candidate, err)
		return nil, err
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	promotion, err := i.promoter.Promote(ctx, candidate)
	if err != nil {
		return nil, err
	}

	descriptor, err := i.reload(ctx, candidate.ID)
	if err != nil {
		return nil, multierr.Append(err, i.undo(ctx, candidate.ID, promotion))
	}

	if approve != nil {
		ok, approveErr := approve(ctx, descriptor)
		if approveErr != nil || !ok {
			if undoErr := i.undo(ctx, candidate.ID, promotion); undoErr != nil || approveErr != nil {
				return nil, multierr.Append(approveErr, undoErr)
			}
			i.logger.Info(ctx, "install declined", "module_id", candidate.ID)
			return &Installation{Descriptor: descriptor, Declined: true}, nil
		}
	}

	i.metrics.success(ctx)
	i.logger.Info(ctx, "module installed", "module_id", candidate.ID, "digest", candidate.Digest, "replaced", promotion.Replaced())
	return &Installation{
		Descriptor: descriptor,
		Digest:     candidate.Digest,
		Source:     candidate.Source,
		Replaced:   promotion.Replaced(),
	}, nil
}

// Check stages src and runs every gate without promoting anything. Results
// include the extract step first; gates keep running after a failure so the
// caller sees every problem at once.
func (i *Installer) Check(ctx context.Context, src Source) (results []validation.Result, err error) {
	candidate, err := i.extractor.Extract(ctx, src)
	if candidate != nil {
		defer func() {
			err = multierr.Append(err, i.release(ctx, candidate))
		}()
	}
	if err != nil {
		return []validation.Result{{Check: GateExtract, Message: err.Error(), Err: err}}, err
	}

	extracted := validation.Result{Check: GateExtract, Passed: true, Message: fmt.Sprintf("%s: %d files", candidate.ID, len(candidate.Files))}
	gates, err := i.validator.Chain(candidate).Run(ctx, validation.CollectAll)
	return append([]validation.Result{extracted}, gates...), err
}

func (i *Installer) reload(ctx context.Context, id string) (module.Descriptor, error) {
	if _, err := i.registry.Reload(ctx, i.container, id); err != nil {
		return nil, fmt.Errorf("load installed module %s: %w", id, err)
	}
	descriptor, ok := i.registry.FindByID(id)
	if !ok {
		return nil, fmt.Errorf("load installed module %s: not registered after reload", id)
	}
	return descriptor, nil
}

// undo drops id from the registry, rolls back the promotion and reloads the
// version it replaced, if any. It runs to completion even when ctx is done.
func (i *Installer) undo(ctx context.Context, id string, promotion *Promotion) error {
	ctx = context.WithoutCancel(ctx)
	i.registry.Forget(i.container, id)
	err := promotion.Rollback(ctx)
	if promotion.Replaced() {
		if _, restoreErr := i.registry.Reload(ctx, i.container, id); restoreErr != nil {
			err = multierr.Append(err, fmt.Errorf("restore previous %s: %w", id, restoreErr))
		}
	}
	return err
}

func (i *Installer) release(ctx context.Context, c *Candidate) error {
	if err := i.scratch.Release(c.ScratchDir); err != nil {
		i.logger.Error(ctx, "scratch cleanup failed", "scratch", c.ScratchDir, "error", err)
		return fmt.Errorf("release scratch directory: %w", err)
	}
	return nil
}

func (i *Installer) rejected(ctx context.Context, c *Candidate, err error) {
	i.metrics.reject(ctx, err)
	id := ""
	if c != nil {
		id = c.ID
	}
	i.logger.Warn(ctx, "package rejected", "module_id", id, "error", err)
}
