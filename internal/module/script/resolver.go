package script

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/modhost/internal/module"
)

// Resolver builds script modules for locations whose entry file exists.
type Resolver struct{}

// NewResolver creates a Resolver.
func NewResolver() *Resolver { return &Resolver{} }

// Resolve loads <basePath>/<id>.lua. It returns module.ErrNotResolvable when
// the location has no script entry file.
func (r *Resolver) Resolve(ctx context.Context, env module.Env) (module.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if env.Storage == nil {
		return nil, module.ErrNotResolvable
	}
	entry := EntryPath(env.Location.BasePath, env.Location.ID)
	if !env.Storage.Exists(entry) {
		return nil, module.ErrNotResolvable
	}
	source, err := env.Storage.Get(entry)
	if err != nil {
		return nil, fmt.Errorf("read entry file: %w", err)
	}
	return Load(ctx, env, source)
}
