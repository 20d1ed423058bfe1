package module

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/modhost/internal/container"
	"github.com/alexisbeaulieu97/modhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
)

// Base implements the bookkeeping half of Descriptor. Modules embed it and
// override the hooks they care about. Migration support comes from the
// MigrationRunner held in Env rather than from the module itself.
type Base struct {
	env  Env
	meta Metadata
}

// NewBase binds meta to env.
func NewBase(env Env, meta Metadata) Base {
	return Base{env: env, meta: meta}
}

func (b *Base) ID() string         { return b.env.Location.ID }
func (b *Base) Metadata() Metadata { return b.meta }
func (b *Base) BasePath() string   { return b.env.Location.BasePath }
func (b *Base) Namespace() string  { return b.env.Location.Namespace }

// MigrationPath returns <basePath>/migrations.
func (b *Base) MigrationPath() string {
	return join(b.BasePath(), DirMigrations)
}

// Env returns the environment the module was built with.
func (b *Base) Env() Env { return b.env }

// Logger returns a logger scoped to the module.
func (b *Base) Logger() ports.Logger { return logging.OrNoOp(b.env.Logger) }

func (b *Base) BeforeRegister(context.Context) error { return nil }

func (b *Base) Register(context.Context, *container.Container) error { return nil }

// BeforeBoot asks the translation and route loaders for the module's lang
// and routes directories when the matching metadata flags are set.
func (b *Base) BeforeBoot(ctx context.Context) error {
	if b.meta.Translations && b.env.Translations != nil {
		if err := b.env.Translations.LoadTranslations(ctx, b.ID(), join(b.BasePath(), DirTranslations)); err != nil {
			return fmt.Errorf("load translations for %s: %w", b.ID(), err)
		}
	}
	if b.meta.Routes && b.env.Routes != nil {
		if err := b.env.Routes.LoadRoutes(ctx, b.ID(), join(b.BasePath(), DirRoutes)); err != nil {
			return fmt.Errorf("load routes for %s: %w", b.ID(), err)
		}
	}
	return nil
}

func (b *Base) Boot(context.Context, *container.Container) error { return nil }

// Migrate runs the module's migrations through the host's runner. Without a
// runner it does nothing.
func (b *Base) Migrate(ctx context.Context) error {
	if b.env.Migrations == nil {
		return nil
	}
	if err := b.env.Migrations.RunMigrations(ctx, b.ID(), b.MigrationPath()); err != nil {
		return fmt.Errorf("migrate %s: %w", b.ID(), err)
	}
	return nil
}
