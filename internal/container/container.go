// Package container is the host's dependency container. It stores singletons
// keyed by the concrete type of the stored value, so any component can look
// up a module or service without a global.
package container

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Keyed lets values that share a Go type (for example script-backed modules)
// supply their own container key.
type Keyed interface {
	ContainerKey() string
}

// Container holds singletons. It is safe for concurrent use.
type Container struct {
	mu      sync.RWMutex
	entries map[string]any
}

// New creates an empty Container.
func New() *Container {
	return &Container{entries: make(map[string]any)}
}

// KeyFor returns the key v is stored under: its ContainerKey when v
// implements Keyed, otherwise its concrete type name.
func KeyFor(v any) string {
	if keyed, ok := v.(Keyed); ok {
		return keyed.ContainerKey()
	}
	return typeName(reflect.TypeOf(v))
}

// TypeKey returns the key a value of type T is stored under when it does not
// implement Keyed.
func TypeKey[T any]() string {
	return typeName(reflect.TypeOf((*T)(nil)).Elem())
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// Singleton stores v under key unless the key is already taken. It reports
// whether v was stored.
func (c *Container) Singleton(key string, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		return false
	}
	c.entries[key] = v
	return true
}

// Bind stores v under KeyFor(v) unless already present.
func (c *Container) Bind(v any) bool {
	return c.Singleton(KeyFor(v), v)
}

// Replace stores v under key, overwriting any previous value.
func (c *Container) Replace(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
}

// Has reports whether key is bound.
func (c *Container) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// Resolve returns the value bound to key.
func (c *Container) Resolve(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Forget removes key.
func (c *Container) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Keys lists bound keys in sorted order.
func (c *Container) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Get resolves the singleton stored under TypeKey[T].
func Get[T any](c *Container) (T, bool) {
	var zero T
	v, ok := c.Resolve(TypeKey[T]())
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// MustGet is Get that panics when T is not bound. Intended for wiring code
// where a missing binding is a programming error.
func MustGet[T any](c *Container) T {
	v, ok := Get[T](c)
	if !ok {
		panic(fmt.Sprintf("container: %s is not bound", TypeKey[T]()))
	}
	return v
}
