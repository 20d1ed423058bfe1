package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/modhost/internal/module"
)

// Resolver turns a discovered location into a Descriptor. It returns
// module.ErrNotResolvable when it has no implementation for the location.
type Resolver interface {
	Resolve(ctx context.Context, env module.Env) (module.Descriptor, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, env module.Env) (module.Descriptor, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, env module.Env) (module.Descriptor, error) {
	return f(ctx, env)
}

// ChainResolver asks each resolver in turn and returns the first answer that
// is not module.ErrNotResolvable.
type ChainResolver []Resolver

// Resolve implements Resolver.
func (c ChainResolver) Resolve(ctx context.Context, env module.Env) (module.Descriptor, error) {
	for _, r := range c {
		d, err := r.Resolve(ctx, env)
		if errors.Is(err, module.ErrNotResolvable) {
			continue
		}
		return d, err
	}
	return nil, module.ErrNotResolvable
}

// Catalog is an explicit factory table for compiled-in modules, keyed by
// <namespace>.<id>.<id>.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]module.Factory
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]module.Factory)}
}

// Register adds factory under namespace/id. Registering a key twice is an
// error.
func (c *Catalog) Register(namespace, id string, factory module.Factory) error {
	if factory == nil {
		return fmt.Errorf("catalog: nil factory for %s", id)
	}
	if !module.ValidID(id) {
		return fmt.Errorf("catalog: invalid module id %q", id)
	}
	key := module.Key(namespace, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.factories[key]; exists {
		return fmt.Errorf("catalog: %s already registered", key)
	}
	c.factories[key] = factory
	return nil
}

// IDs lists the module ids registered under namespace, sorted.
func (c *Catalog) IDs(namespace string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var ids []string
	prefix := namespace + "."
	for key := range c.factories {
		if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		rest := key[len(prefix):]
		for i := 0; i < len(rest); i++ {
			if rest[i] == '.' {
				ids = append(ids, rest[:i])
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// Resolve implements Resolver.
func (c *Catalog) Resolve(ctx context.Context, env module.Env) (module.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	factory, ok := c.factories[env.Location.Key()]
	c.mu.RUnlock()
	if !ok {
		return nil, module.ErrNotResolvable
	}
	return factory(env)
}
