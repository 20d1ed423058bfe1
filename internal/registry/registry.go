// Package registry discovers modules on disk, orders them by priority and
// drives their register and boot phases.
package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/multierr"

	"github.com/alexisbeaulieu97/modhost/internal/container"
	"github.com/alexisbeaulieu97/modhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/modhost/internal/module"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
	"github.com/alexisbeaulieu97/modhost/internal/storage"
	moderrors "github.com/alexisbeaulieu97/modhost/pkg/errors"
)

// SearchRoot is a directory whose immediate subdirectories are modules
// resolved under Namespace.
type SearchRoot struct {
	Path      string
	Namespace string
}

// State is a descriptor's position in the register/boot sequence.
type State int

const (
	StateDiscovered State = iota
	StateRegistered
	StateBooted
)

func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateBooted:
		return "booted"
	default:
		return "discovered"
	}
}

// Options configures a Registry.
type Options struct {
	Storage  storage.Storage
	Resolver Resolver
	Roots    []SearchRoot
	// Env is the template every resolved module's Env is derived from.
	Env    module.Env
	Logger ports.Logger
}

type entry struct {
	descriptor module.Descriptor
	root       SearchRoot
	seq        int
	state      State
}

// Registry is the set of discovered modules. Lookups are safe for concurrent
// use; register, boot and reload are serialized.
type Registry struct {
	storage  storage.Storage
	resolver Resolver
	roots    []SearchRoot
	env      module.Env
	logger   ports.Logger

	// phase serializes Register, Boot and Reload. Hooks run without mu held
	// so they may call back into lookups.
	phase sync.Mutex

	mu         sync.RWMutex
	entries    map[string]*entry
	ordered    []*entry
	nextSeq    int
	discovered bool
}

// New creates a Registry.
func New(opts Options) (*Registry, error) {
	if opts.Storage == nil {
		return nil, errors.New("registry: storage is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("registry: resolver is required")
	}
	if len(opts.Roots) == 0 {
		return nil, errors.New("registry: at least one search root is required")
	}

	env := opts.Env
	env.Storage = opts.Storage
	logger := logging.OrNoOp(opts.Logger).With("component", "registry")
	if env.Logger == nil {
		env.Logger = logger
	}

	roots := make([]SearchRoot, len(opts.Roots))
	for i, root := range opts.Roots {
		roots[i] = SearchRoot{Path: filepath.Clean(root.Path), Namespace: root.Namespace}
	}

	return &Registry{
		storage:  opts.Storage,
		resolver: opts.Resolver,
		roots:    roots,
		env:      env,
		logger:   logger,
		entries:  make(map[string]*entry),
	}, nil
}

// Roots returns the configured search roots.
func (r *Registry) Roots() []SearchRoot {
	return append([]SearchRoot(nil), r.roots...)
}

// Discover enumerates the search roots and resolves every module found.
// Modules that fail to resolve are logged and skipped. Without a filter the
// sorted result replaces the cache, reusing cached instances whose id and
// base path are unchanged. With a filter only the named ids are resolved and
// the cache is left as is.
func (r *Registry) Discover(ctx context.Context, filter ...string) ([]module.Descriptor, error) {
	want := mapset.NewThreadUnsafeSet[string](filter...)
	found, err := r.scan(ctx, want, len(filter) == 0)
	if err != nil {
		return nil, err
	}
	sortEntries(found)

	if len(filter) > 0 {
		return descriptors(found), nil
	}

	r.mu.Lock()
	previous := r.entries
	r.entries = make(map[string]*entry, len(found))
	for _, e := range found {
		r.entries[e.descriptor.ID()] = e
	}
	r.ordered = found
	r.nextSeq = len(found)
	r.discovered = true
	r.mu.Unlock()

	for id, old := range previous {
		if current, ok := r.entries[id]; !ok || current != old {
			closeDescriptor(old.descriptor)
		}
	}

	r.logger.Debug(ctx, "modules discovered", "count", len(found))
	return descriptors(found), nil
}

func (r *Registry) scan(ctx context.Context, want mapset.Set[string], reuse bool) ([]*entry, error) {
	var found []*entry
	seen := mapset.NewThreadUnsafeSet[string]()

	for _, root := range r.roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !r.storage.IsDir(root.Path) {
			r.logger.Debug(ctx, "search root missing", "path", root.Path)
			continue
		}
		children, err := r.storage.List(root.Path)
		if err != nil {
			r.logger.Warn(ctx, "search root unreadable", "path", root.Path, "error", err)
			continue
		}

		for _, child := range children {
			id := child.Name()
			if !child.IsDir() || strings.HasPrefix(id, ".") {
				continue
			}
			if want.Cardinality() > 0 && !want.Contains(id) {
				continue
			}
			if seen.Contains(id) {
				r.logger.Warn(ctx, "duplicate module id skipped", "module_id", id, "path", root.Path)
				continue
			}

			loc := module.Location{ID: id, BasePath: filepath.Join(root.Path, id), Namespace: root.Namespace}
			if reuse {
				if existing := r.cached(id, loc.BasePath); existing != nil {
					seen.Add(id)
					found = append(found, &entry{descriptor: existing.descriptor, root: root, seq: len(found), state: existing.state})
					continue
				}
			}

			d, err := r.resolver.Resolve(ctx, r.env.WithLocation(loc))
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				r.logger.Warn(ctx, "module resolution failed", "module_id", id, "key", loc.Key(), "error", err)
				continue
			}
			if d == nil || d.ID() != id {
				r.logger.Warn(ctx, "module resolved with mismatched id", "module_id", id)
				closeDescriptor(d)
				continue
			}

			seen.Add(id)
			found = append(found, &entry{descriptor: d, root: root, seq: len(found)})
		}
	}
	return found, nil
}

func (r *Registry) cached(id, basePath string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok || e.descriptor.BasePath() != basePath {
		return nil
	}
	return e
}

func (r *Registry) ensureDiscovered(ctx context.Context) error {
	r.mu.RLock()
	done := r.discovered
	r.mu.RUnlock()
	if done {
		return nil
	}
	_, err := r.Discover(ctx)
	return err
}

// Register runs BeforeRegister and Register for every discovered module not
// yet registered, in priority order, then binds each into c. The first hook
// error aborts the sequence.
func (r *Registry) Register(ctx context.Context, c *container.Container) error {
	r.phase.Lock()
	defer r.phase.Unlock()

	if err := r.ensureDiscovered(ctx); err != nil {
		return err
	}
	return r.register(ctx, c, r.snapshot())
}

func (r *Registry) register(ctx context.Context, c *container.Container, entries []*entry) error {
	for _, e := range entries {
		if r.stateOf(e) >= StateRegistered {
			continue
		}
		d := e.descriptor
		if err := d.BeforeRegister(ctx); err != nil {
			return fmt.Errorf("register %s: before register: %w", d.ID(), err)
		}
		if err := d.Register(ctx, c); err != nil {
			return fmt.Errorf("register %s: %w", d.ID(), err)
		}
		c.Singleton(container.KeyFor(d), d)
		r.setState(e, StateRegistered)
		r.logger.Debug(ctx, "module registered", "module_id", d.ID(), "priority", d.Metadata().Priority)
	}
	return nil
}

// Boot runs BeforeBoot and Boot for every registered module not yet booted,
// in priority order. The first hook error aborts the sequence.
func (r *Registry) Boot(ctx context.Context, c *container.Container) error {
	r.phase.Lock()
	defer r.phase.Unlock()

	if err := r.ensureDiscovered(ctx); err != nil {
		return err
	}
	return r.boot(ctx, c, r.snapshot())
}

func (r *Registry) boot(ctx context.Context, c *container.Container, entries []*entry) error {
	for _, e := range entries {
		switch r.stateOf(e) {
		case StateBooted:
			continue
		case StateDiscovered:
			r.logger.Debug(ctx, "boot skipped for unregistered module", "module_id", e.descriptor.ID())
			continue
		}
		d := e.descriptor
		if err := d.BeforeBoot(ctx); err != nil {
			return fmt.Errorf("boot %s: before boot: %w", d.ID(), err)
		}
		if err := d.Boot(ctx, c); err != nil {
			return fmt.Errorf("boot %s: %w", d.ID(), err)
		}
		r.setState(e, StateBooted)
		r.logger.Debug(ctx, "module booted", "module_id", d.ID())
	}
	return nil
}

// Reload resolves ids afresh, replaces any cached instances, and registers and
// boots only the reloaded modules. Reloaded ids keep their original
// discovery position; new ids sort after every known module of equal
// priority. Ids that cannot be found yield ModuleNotFound errors, combined.
func (r *Registry) Reload(ctx context.Context, c *container.Container, ids ...string) ([]module.Descriptor, error) {
	r.phase.Lock()
	defer r.phase.Unlock()

	if len(ids) == 0 {
		return nil, nil
	}
	if err := r.ensureDiscovered(ctx); err != nil {
		return nil, err
	}

	fresh, err := r.scan(ctx, mapset.NewThreadUnsafeSet[string](ids...), false)
	if err != nil {
		return nil, err
	}

	var missing error
	loaded := mapset.NewThreadUnsafeSet[string]()
	for _, e := range fresh {
		loaded.Add(e.descriptor.ID())
	}
	for _, id := range ids {
		if !loaded.Contains(id) {
			missing = multierr.Append(missing, moderrors.New(moderrors.KindModuleNotFound, id, "not resolvable after reload", nil))
		}
	}

	r.mu.Lock()
	var replaced []module.Descriptor
	for _, e := range fresh {
		id := e.descriptor.ID()
		if old, ok := r.entries[id]; ok {
			e.seq = old.seq
			replaced = append(replaced, old.descriptor)
			r.ordered = removeEntry(r.ordered, old)
		} else {
			e.seq = r.nextSeq
			r.nextSeq++
		}
		r.entries[id] = e
		r.ordered = append(r.ordered, e)
	}
	sortEntries(r.ordered)
	r.mu.Unlock()

	for _, old := range replaced {
		c.Forget(container.KeyFor(old))
		closeDescriptor(old)
	}

	sortEntries(fresh)
	if err := r.register(ctx, c, fresh); err != nil {
		return descriptors(fresh), multierr.Append(missing, err)
	}
	if err := r.boot(ctx, c, fresh); err != nil {
		return descriptors(fresh), multierr.Append(missing, err)
	}
	r.logger.Info(ctx, "modules reloaded", "ids", strings.Join(ids, ","), "loaded", len(fresh))
	return descriptors(fresh), missing
}

// Forget drops id from the registry and unbinds it from c. It reports
// whether id was known.
func (r *Registry) Forget(c *container.Container, id string) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
		r.ordered = removeEntry(r.ordered, e)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	if c != nil {
		c.Forget(container.KeyFor(e.descriptor))
	}
	closeDescriptor(e.descriptor)
	return true
}

// Modules returns the cached descriptors in processing order.
func (r *Registry) Modules() []module.Descriptor {
	return descriptors(r.snapshot())
}

// FindByID returns the cached descriptor for id.
func (r *Registry) FindByID(id string) (module.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.descriptor, true
}

// FindByFilePath returns the module owning path: the id is the path segment
// right after a search root.
func (r *Registry) FindByFilePath(path string) (module.Descriptor, bool) {
	clean := filepath.Clean(path)
	for _, root := range r.roots {
		if !storage.Within(root.Path, clean) {
			continue
		}
		rel, err := filepath.Rel(root.Path, clean)
		if err != nil {
			continue
		}
		id := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
		if d, ok := r.FindByID(id); ok && d.BasePath() == filepath.Join(root.Path, id) {
			return d, true
		}
	}
	return nil, false
}

// StateOf reports the lifecycle state of id.
func (r *Registry) StateOf(id string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return StateDiscovered, false
	}
	return e.state, true
}

// MigrationPaths returns the migration directories of discovered modules that
// have one, in processing order.
func (r *Registry) MigrationPaths() []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	var paths []string
	for _, d := range r.Modules() {
		p := d.MigrationPath()
		if seen.Contains(p) || !r.storage.IsDir(p) {
			continue
		}
		seen.Add(p)
		paths = append(paths, p)
	}
	return paths
}

func (r *Registry) snapshot() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*entry(nil), r.ordered...)
}

func (r *Registry) stateOf(e *entry) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return e.state
}

func (r *Registry) setState(e *entry, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.state = s
}

// sortEntries orders by priority descending, then discovery sequence.
func sortEntries(entries []*entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		pi, pj := entries[i].descriptor.Metadata().Priority, entries[j].descriptor.Metadata().Priority
		if pi != pj {
			return pi > pj
		}
		return entries[i].seq < entries[j].seq
	})
}

func removeEntry(entries []*entry, target *entry) []*entry {
	out := entries[:0]
	for _, e := range entries {
		if e != target {
			out = append(out, e)
		}
	}
	return out
}

func descriptors(entries []*entry) []module.Descriptor {
	out := make([]module.Descriptor, len(entries))
	for i, e := range entries {
		out[i] = e.descriptor
	}
	return out
}

type closer interface{ Close() }

func closeDescriptor(d module.Descriptor) {
	if c, ok := d.(closer); ok {
		c.Close()
	}
}
