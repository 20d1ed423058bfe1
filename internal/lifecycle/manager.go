// Package lifecycle is the administrative surface of the host: it lists
// modules and performs install, activate, deactivate and uninstall, wrapping
// each in before/after events.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/alexisbeaulieu97/modhost/internal/container"
	"github.com/alexisbeaulieu97/modhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/modhost/internal/installer"
	"github.com/alexisbeaulieu97/modhost/internal/module"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
	"github.com/alexisbeaulieu97/modhost/internal/registry"
	"github.com/alexisbeaulieu97/modhost/internal/status"
	moderrors "github.com/alexisbeaulieu97/modhost/pkg/errors"
)

// Registry is the module registry surface the manager needs.
type Registry interface {
	FindByID(id string) (module.Descriptor, bool)
	Modules() []module.Descriptor
	StateOf(id string) (registry.State, bool)
	Forget(c *container.Container, id string) bool
}

// Installer runs the install pipeline.
type Installer interface {
	InstallFrom(ctx context.Context, src installer.Source, approve installer.Approval) (*installer.Installation, error)
}

// Uninstaller removes installed modules.
type Uninstaller interface {
	Uninstall(ctx context.Context, id string) (bool, error)
}

// Handler performs an action on a descriptor.
type Handler func(ctx context.Context, d module.Descriptor) error

// Options configures a Manager.
type Options struct {
	Registry    Registry
	Installer   Installer
	Uninstaller Uninstaller
	Status      status.Store
	Events      ports.EventPublisher
	Container   *container.Container
	Logger      ports.Logger
	Now         func() time.Time
}

// Manager performs lifecycle actions.
type Manager struct {
	registry    Registry
	installer   Installer
	uninstaller Uninstaller
	status      status.Store
	events      ports.EventPublisher
	container   *container.Container
	logger      ports.Logger
	now         func() time.Time
}

// ModuleInfo is a descriptor joined with its persisted state.
type ModuleInfo struct {
	Descriptor module.Descriptor
	Status     module.Status
	State      registry.State
	// Record is the zero value for modules never installed through the
	// manager.
	Record status.Record
}

// ID returns the module id.
func (i ModuleInfo) ID() string { return i.Descriptor.ID() }

// NewManager creates a Manager.
func NewManager(opts Options) (*Manager, error) {
	if opts.Registry == nil {
		return nil, errors.New("lifecycle: registry is required")
	}
	if opts.Status == nil {
		return nil, errors.New("lifecycle: status store is required")
	}
	if opts.Events == nil {
		return nil, errors.New("lifecycle: event publisher is required")
	}
	if opts.Container == nil {
		opts.Container = container.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		registry:    opts.Registry,
		installer:   opts.Installer,
		uninstaller: opts.Uninstaller,
		status:      opts.Status,
		events:      opts.Events,
		container:   opts.Container,
		logger:      logging.OrNoOp(opts.Logger).With("component", "lifecycle"),
		now:         opts.Now,
	}, nil
}

// List returns every discovered module in processing order.
func (m *Manager) List(ctx context.Context) ([]ModuleInfo, error) {
	records, err := m.status.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]status.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	modules := m.registry.Modules()
	infos := make([]ModuleInfo, 0, len(modules))
	for _, d := range modules {
		infos = append(infos, m.info(d, byID[d.ID()]))
	}
	return infos, nil
}

// Get returns one module.
func (m *Manager) Get(ctx context.Context, id string) (ModuleInfo, error) {
	d, err := m.find(id)
	if err != nil {
		return ModuleInfo{}, err
	}
	record, _, err := m.status.Get(ctx, id)
	if err != nil {
		return ModuleInfo{}, err
	}
	return m.info(d, record), nil
}

func (m *Manager) info(d module.Descriptor, record status.Record) ModuleInfo {
	state, _ := m.registry.StateOf(d.ID())
	return ModuleInfo{Descriptor: d, Status: m.effectiveStatus(d, record), State: state, Record: record}
}

// effectiveStatus treats core modules without a record as active.
func (m *Manager) effectiveStatus(d module.Descriptor, record status.Record) module.Status {
	if record.Status.Valid() {
		return record.Status
	}
	if d.Metadata().IsCore {
		return module.StatusActive
	}
	return module.StatusInactive
}

// Install runs the install pipeline for src, then the install action on the
// resulting descriptor. before.install is published while the installer
// still holds the module's lock; a listener that stops it undoes the install
// and the loaded descriptor is returned unchanged.
func (m *Manager) Install(ctx context.Context, src installer.Source) (module.Descriptor, error) {
	if m.installer == nil {
		return nil, moderrors.New(moderrors.KindUnsupportedLifecycleAction, "", string(ActionInstall), errors.New("no installer configured"))
	}

	var target module.Descriptor
	approve := func(ctx context.Context, d module.Descriptor) (bool, error) {
		next, proceed, err := m.before(ctx, ActionInstall, d)
		target = next
		return proceed, err
	}

	installation, err := m.installer.InstallFrom(ctx, src, approve)
	if installation == nil {
		return nil, err
	}
	if installation.Declined {
		return installation.Descriptor, err
	}
	if err != nil {
		m.logger.Warn(ctx, "install completed with errors", "module_id", installation.Descriptor.ID(), "error", err)
	}
	if target == nil {
		target = installation.Descriptor
	}
	d, runErr := m.run(ctx, ActionInstall, target, func(ctx context.Context, d module.Descriptor) error {
		return m.install(ctx, d, installation)
	})
	return d, multierr.Append(err, runErr)
}

// Activate marks id active. Activating an active module is a no-op.
func (m *Manager) Activate(ctx context.Context, id string) (module.Descriptor, error) {
	return m.Perform(ctx, ActionActivate, id, nil)
}

// Deactivate marks id inactive. Core modules cannot be deactivated.
func (m *Manager) Deactivate(ctx context.Context, id string) (module.Descriptor, error) {
	return m.Perform(ctx, ActionDeactivate, id, nil)
}

// Uninstall removes id. Core modules cannot be removed.
func (m *Manager) Uninstall(ctx context.Context, id string) (module.Descriptor, error) {
	return m.Perform(ctx, ActionUninstall, id, nil)
}

// UninstallMany removes every id, continuing past failures, and returns the
// ids removed together with the combined errors.
func (m *Manager) UninstallMany(ctx context.Context, ids []string) ([]string, error) {
	var removed []string
	var errs error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return removed, multierr.Append(errs, err)
		}
		if _, err := m.Uninstall(ctx, id); err != nil {
			errs = multierr.Append(errs, err)
			var partial *moderrors.PartialUninstallError
			if !errors.As(err, &partial) {
				continue
			}
		}
		if _, still := m.registry.FindByID(id); !still {
			removed = append(removed, id)
		}
	}
	return removed, errs
}

// Perform runs action on id. A custom handler replaces the built-in behaviour;
// without one, only the four lifecycle actions are supported.
func (m *Manager) Perform(ctx context.Context, action Action, id string, custom Handler) (module.Descriptor, error) {
	d, err := m.find(id)
	if err != nil {
		return nil, err
	}

	handler := custom
	if handler == nil {
		switch action {
		case ActionActivate:
			handler = m.activate
		case ActionDeactivate:
			handler = m.deactivate
		case ActionUninstall:
			handler = m.uninstall
		case ActionInstall:
			handler = func(ctx context.Context, d module.Descriptor) error { return m.install(ctx, d, nil) }
		default:
			return d, moderrors.New(moderrors.KindUnsupportedLifecycleAction, id, string(action), nil)
		}
	}

	if custom == nil {
		skip, err := m.precheck(ctx, action, d)
		if err != nil || skip {
			return d, err
		}
	}
	return m.perform(ctx, action, d, handler)
}

// precheck enforces core protection and the no-op cases of activate and
// deactivate before any event is published.
func (m *Manager) precheck(ctx context.Context, action Action, d module.Descriptor) (skip bool, err error) {
	switch action {
	case ActionDeactivate, ActionUninstall:
		if d.Metadata().IsCore {
			return false, moderrors.New(moderrors.KindCoreModuleOverrideDenied, d.ID(), string(action), nil)
		}
	}

	switch action {
	case ActionActivate, ActionDeactivate:
		record, _, err := m.status.Get(ctx, d.ID())
		if err != nil {
			return false, err
		}
		current := m.effectiveStatus(d, record)
		if (action == ActionActivate && current == module.StatusActive) ||
			(action == ActionDeactivate && current == module.StatusInactive) {
			m.logger.Debug(ctx, "lifecycle action already applied", "module_id", d.ID(), "action", string(action))
			return true, nil
		}
	}
	return false, nil
}

func (m *Manager) perform(ctx context.Context, action Action, d module.Descriptor, handler Handler) (module.Descriptor, error) {
	d, proceed, err := m.before(ctx, action, d)
	if err != nil || !proceed {
		return d, err
	}
	return m.run(ctx, action, d, handler)
}

// before publishes the before event and reports whether the action should
// go ahead, and on which descriptor.
func (m *Manager) before(ctx context.Context, action Action, d module.Descriptor) (module.Descriptor, bool, error) {
	event := &Event{Action: action, Phase: PhaseBefore, Descriptor: d}
	if err := m.events.Publish(ctx, event); err != nil {
		return d, false, err
	}
	if event.Stopped() {
		m.logger.Info(ctx, "lifecycle action cancelled by listener", "module_id", d.ID(), "action", string(action))
		return d, false, nil
	}
	if event.Descriptor != nil {
		d = event.Descriptor
	}
	return d, true, nil
}

func (m *Manager) run(ctx context.Context, action Action, d module.Descriptor, handler Handler) (module.Descriptor, error) {
	if err := handler(ctx, d); err != nil {
		m.logger.Warn(ctx, "lifecycle action failed", "module_id", d.ID(), "action", string(action), "error", err)
		var partial *moderrors.PartialUninstallError
		if !errors.As(err, &partial) {
			return d, err
		}
		m.publishAfter(ctx, action, d)
		return d, err
	}

	m.publishAfter(ctx, action, d)
	m.logger.Info(ctx, "lifecycle action performed", "module_id", d.ID(), "action", string(action))
	return d, nil
}

func (m *Manager) publishAfter(ctx context.Context, action Action, d module.Descriptor) {
	if err := m.events.Publish(ctx, &Event{Action: action, Phase: PhaseAfter, Descriptor: d}); err != nil {
		m.logger.Warn(ctx, "after event failed", "module_id", d.ID(), "action", string(action), "error", err)
	}
}

func (m *Manager) install(ctx context.Context, d module.Descriptor, installation *installer.Installation) error {
	if hook, ok := d.(module.Installer); ok {
		if err := hook.OnInstall(ctx); err != nil {
			return err
		}
	}
	if migrator, ok := d.(module.Migrator); ok {
		if err := migrator.Migrate(ctx); err != nil {
			return err
		}
	}

	existing, found, err := m.status.Get(ctx, d.ID())
	if err != nil {
		return err
	}
	now := m.now().UTC()
	record := status.Record{
		ID:          d.ID(),
		Status:      module.StatusInactive,
		Version:     d.Metadata().Version,
		InstalledAt: now,
		UpdatedAt:   now,
	}
	if found {
		record.Status = existing.Status
		record.InstalledAt = existing.InstalledAt
		record.Digest = existing.Digest
		record.Source = existing.Source
	}
	if installation != nil {
		record.Digest = installation.Digest
		record.Source = installation.Source
	}
	return m.status.Put(ctx, record)
}

func (m *Manager) activate(ctx context.Context, d module.Descriptor) error {
	if hook, ok := d.(module.Activator); ok {
		if err := hook.OnActivate(ctx); err != nil {
			return err
		}
	}
	return m.setStatus(ctx, d, module.StatusActive)
}

func (m *Manager) deactivate(ctx context.Context, d module.Descriptor) error {
	if hook, ok := d.(module.Deactivator); ok {
		if err := hook.OnDeactivate(ctx); err != nil {
			return err
		}
	}
	return m.setStatus(ctx, d, module.StatusInactive)
}

func (m *Manager) uninstall(ctx context.Context, d module.Descriptor) error {
	if m.uninstaller == nil {
		return moderrors.New(moderrors.KindUnsupportedLifecycleAction, d.ID(), string(ActionUninstall), errors.New("no uninstaller configured"))
	}
	if hook, ok := d.(module.Uninstaller); ok {
		if err := hook.OnUninstall(ctx); err != nil {
			return err
		}
	}

	removed, err := m.uninstaller.Uninstall(ctx, d.ID())
	if !removed {
		if err == nil {
			err = moderrors.New(moderrors.KindModuleNotFound, d.ID(), "module directory is missing", nil)
		}
		return err
	}

	m.registry.Forget(m.container, d.ID())
	return multierr.Append(err, m.status.Delete(ctx, d.ID()))
}

func (m *Manager) setStatus(ctx context.Context, d module.Descriptor, s module.Status) error {
	record, found, err := m.status.Get(ctx, d.ID())
	if err != nil {
		return err
	}
	now := m.now().UTC()
	if !found {
		record = status.Record{ID: d.ID(), Version: d.Metadata().Version, InstalledAt: now}
	}
	record.Status = s
	record.UpdatedAt = now
	if err := m.status.Put(ctx, record); err != nil {
		return fmt.Errorf("persist status of %s: %w", d.ID(), err)
	}
	return nil
}

func (m *Manager) find(id string) (module.Descriptor, error) {
	d, ok := m.registry.FindByID(id)
	if !ok {
		return nil, moderrors.New(moderrors.KindModuleNotFound, id, "", nil)
	}
	return d, nil
}
