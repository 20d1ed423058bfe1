// Package uninstaller removes an installed module's code and published
// assets. Core protection is the caller's concern.
package uninstaller

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/alexisbeaulieu97/modhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/modhost/internal/installer"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
	"github.com/alexisbeaulieu97/modhost/internal/storage"
	moderrors "github.com/alexisbeaulieu97/modhost/pkg/errors"
)

// Recorder counts removals.
type Recorder interface {
	RecordUninstall(ctx context.Context)
}

// Options configures an Uninstaller.
type Options struct {
	Storage storage.Storage
	Layout  installer.Layout
	// Locks should be the installer's, so removal never interleaves with an
	// install of the same id.
	Locks   *installer.KeyedMutex
	Metrics Recorder
	Logger  ports.Logger
}

// Uninstaller deletes modules from the live tree.
type Uninstaller struct {
	storage storage.Storage
	layout  installer.Layout
	locks   *installer.KeyedMutex
	metrics Recorder
	logger  ports.Logger
}

// New creates an Uninstaller.
func New(opts Options) *Uninstaller {
	locks := opts.Locks
	if locks == nil {
		locks = installer.NewKeyedMutex()
	}
	return &Uninstaller{
		storage: opts.Storage,
		layout:  opts.Layout,
		locks:   locks,
		metrics: opts.Metrics,
		logger:  logging.OrNoOp(opts.Logger).With("component", "uninstaller"),
	}
}

// Uninstall deletes <modulesDir>/<id> and then the published assets at
// <publicRoot>/<base(modulesDir)>/<id>.
//
// It returns false with no error when there is nothing to remove: an empty
// id, an id resolving to the modules root or outside it, or a missing
// directory. A failed code deletion returns false with the error and nothing
// else is attempted. Once the code is gone the result is true; if the
// published assets then fail to delete the error is a
// *moderrors.PartialUninstallError.
func (u *Uninstaller) Uninstall(ctx context.Context, id string) (bool, error) {
	live, ok := u.liveDir(id)
	if !ok {
		u.logger.Debug(ctx, "uninstall refused", "module_id", id)
		return false, nil
	}

	unlock := u.locks.Lock(id)
	defer unlock()

	if !u.storage.IsDir(live) {
		return false, nil
	}
	if err := u.storage.DeleteDirectory(live); err != nil {
		u.logger.Error(ctx, "module directory removal failed", "module_id", id, "error", err)
		return false, err
	}
	if u.metrics != nil {
		u.metrics.RecordUninstall(ctx)
	}

	public := u.layout.PublicDir(id)
	if u.storage.Exists(public) {
		if err := u.storage.DeleteDirectory(public); err != nil {
			u.logger.Warn(ctx, "published assets left behind", "module_id", id, "public", public, "error", err)
			return true, &moderrors.PartialUninstallError{Module: id, PublicDir: public, Err: err}
		}
	}

	u.logger.Info(ctx, "module uninstalled", "module_id", id)
	return true, nil
}

func (u *Uninstaller) liveDir(id string) (string, bool) {
	if strings.TrimSpace(id) == "" {
		return "", false
	}
	root := filepath.Clean(u.layout.ModulesDir)
	live := filepath.Clean(u.layout.LiveDir(id))
	if live == root || filepath.Dir(live) != root || !storage.Within(root, live) {
		return "", false
	}
	return live, true
}
