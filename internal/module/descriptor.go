// Package module defines the contract every module implements and the
// composition helpers modules build on.
package module

import (
	"context"
	"errors"

	"github.com/alexisbeaulieu97/modhost/internal/container"
)

// Descriptor is the unit of extension the host discovers, registers and boots.
//
// The registry drives two phases, each exactly once per descriptor:
//   - register: BeforeRegister then Register, after which the descriptor is
//     bound into the container
//   - boot: BeforeBoot then Boot, in the same priority order
//
// Hook errors are not isolated. A failing hook aborts the phase for every
// module after it, since installed modules are trusted.
type Descriptor interface {
	// ID is the module folder name. It never changes after installation.
	ID() string
	// Metadata returns display metadata, priority and flags.
	Metadata() Metadata
	// BasePath is the module's live directory.
	BasePath() string
	// Namespace is the code namespace root the module was resolved under.
	Namespace() string
	// MigrationPath is the directory an external migration runner reads.
	MigrationPath() string

	BeforeRegister(ctx context.Context) error
	Register(ctx context.Context, c *container.Container) error
	// BeforeBoot loads translations and routes when the module's flags ask
	// for them.
	BeforeBoot(ctx context.Context) error
	Boot(ctx context.Context, c *container.Container) error
}

// Installer is implemented by modules that react to being installed.
type Installer interface {
	OnInstall(ctx context.Context) error
}

// Activator is implemented by modules that react to activation.
type Activator interface {
	OnActivate(ctx context.Context) error
}

// Deactivator is implemented by modules that react to deactivation.
type Deactivator interface {
	OnDeactivate(ctx context.Context) error
}

// Uninstaller is implemented by modules that clean up before their files are
// removed.
type Uninstaller interface {
	OnUninstall(ctx context.Context) error
}

// Migrator is implemented by modules that can run their own migrations.
// Base satisfies it by delegating to the host's MigrationRunner.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// ErrNotResolvable is returned by a resolver that has no implementation for
// a location. Chained resolvers treat it as "try the next one".
var ErrNotResolvable = errors.New("no implementation for module location")

// Factory builds a Descriptor for a discovered module location.
type Factory func(env Env) (Descriptor, error)

// Status is the persisted activation state of an installed module.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}
