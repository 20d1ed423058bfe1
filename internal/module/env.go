package module

import (
	"context"
	"path/filepath"

	"github.com/alexisbeaulieu97/modhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
	"github.com/alexisbeaulieu97/modhost/internal/storage"
)

// Location identifies where a module was discovered.
type Location struct {
	ID        string
	BasePath  string
	Namespace string
}

// Key is the resolution key for a location: <namespace>.<id>.<id>.
func (l Location) Key() string {
	return Key(l.Namespace, l.ID)
}

// Key builds the resolution key for a module id under namespace.
func Key(namespace, id string) string {
	return namespace + "." + id + "." + id
}

// TranslationLoader loads a module's translation files.
type TranslationLoader interface {
	LoadTranslations(ctx context.Context, moduleID, dir string) error
}

// RouteLoader loads a module's route definitions.
type RouteLoader interface {
	LoadRoutes(ctx context.Context, moduleID, dir string) error
}

// MigrationRunner runs the migrations found in a module's migration directory.
type MigrationRunner interface {
	RunMigrations(ctx context.Context, moduleID, dir string) error
}

// Env carries what a Factory needs to build a descriptor: its location and
// the host collaborators shared by every module.
type Env struct {
	Location     Location
	Storage      storage.Storage
	Logger       ports.Logger
	Translations TranslationLoader
	Routes       RouteLoader
	Migrations   MigrationRunner
}

// WithLocation returns a copy of e bound to loc, with a logger scoped to the
// module.
func (e Env) WithLocation(loc Location) Env {
	e.Location = loc
	e.Logger = logging.OrNoOp(e.Logger).With("module_id", loc.ID)
	return e
}

// LoggingLoaders implements TranslationLoader, RouteLoader and
// MigrationRunner by recording each request. Hosts without real loaders use
// it so module flags stay observable.
type LoggingLoaders struct {
	Logger ports.Logger
}

func (l LoggingLoaders) LoadTranslations(ctx context.Context, moduleID, dir string) error {
	logging.OrNoOp(l.Logger).Debug(ctx, "translations requested", "module_id", moduleID, "dir", dir)
	return nil
}

func (l LoggingLoaders) LoadRoutes(ctx context.Context, moduleID, dir string) error {
	logging.OrNoOp(l.Logger).Debug(ctx, "routes requested", "module_id", moduleID, "dir", dir)
	return nil
}

func (l LoggingLoaders) RunMigrations(ctx context.Context, moduleID, dir string) error {
	logging.OrNoOp(l.Logger).Info(ctx, "migrations requested", "module_id", moduleID, "dir", dir)
	return nil
}

// Conventional subdirectories of a module.
const (
	DirMigrations   = "migrations"
	DirTranslations = "lang"
	DirRoutes       = "routes"
)

func join(base, dir string) string {
	return filepath.Join(base, dir)
}
