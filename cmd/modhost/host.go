package main

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/alexisbeaulieu97/modhost/internal/config"
	"github.com/alexisbeaulieu97/modhost/internal/container"
	"github.com/alexisbeaulieu97/modhost/internal/infrastructure/events"
	"github.com/alexisbeaulieu97/modhost/internal/installer"
	"github.com/alexisbeaulieu97/modhost/internal/lifecycle"
	"github.com/alexisbeaulieu97/modhost/internal/module"
	"github.com/alexisbeaulieu97/modhost/internal/module/script"
	"github.com/alexisbeaulieu97/modhost/internal/modules"
	"github.com/alexisbeaulieu97/modhost/internal/modules/core"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
	"github.com/alexisbeaulieu97/modhost/internal/registry"
	"github.com/alexisbeaulieu97/modhost/internal/source"
	"github.com/alexisbeaulieu97/modhost/internal/status"
	"github.com/alexisbeaulieu97/modhost/internal/storage"
	"github.com/alexisbeaulieu97/modhost/internal/uninstaller"
)

// Host is the wired module host: every service a command may need.
type Host struct {
	Config      *config.Config
	Storage     *storage.Local
	Container   *container.Container
	Registry    *registry.Registry
	Catalog     *registry.Catalog
	Installer   *installer.Installer
	Uninstaller *uninstaller.Uninstaller
	Status      status.Store
	Events      *events.Bus
	Manager     *lifecycle.Manager
	Layout      installer.Layout
}

// openHost builds the services from cfg, then discovers, registers and boots
// every module.
func openHost(ctx context.Context, cfg *config.Config, log ports.Logger) (*Host, error) {
	source.UseInProcessFileTransport()

	st, err := storage.NewOS(cfg.Storage.RootPath())
	if err != nil {
		return nil, err
	}

	layout := installer.Layout{
		ModulesDir: cfg.Storage.Resolve(cfg.Storage.ModulesDir),
		PublicRoot: cfg.Storage.Resolve(cfg.Storage.PublicDir),
	}
	if err := modules.Seed(st, layout.ModulesDir); err != nil {
		return nil, err
	}

	catalog := registry.NewCatalog()
	if err := modules.Register(catalog, cfg.Discovery.Namespace, modules.Options{
		Core: core.Options{AppName: cfg.App.Name, AppEnv: cfg.App.Env, Version: version},
	}); err != nil {
		return nil, err
	}

	roots := []registry.SearchRoot{{Path: layout.ModulesDir, Namespace: cfg.Discovery.Namespace}}
	for _, root := range cfg.Discovery.Roots {
		roots = append(roots, registry.SearchRoot{Path: cfg.Storage.Resolve(root.Path), Namespace: root.Namespace})
	}

	loaders := module.LoggingLoaders{Logger: log}
	reg, err := registry.New(registry.Options{
		Storage:  st,
		Resolver: registry.ChainResolver{catalog, script.NewResolver()},
		Roots:    roots,
		Env: module.Env{
			Translations: loaders,
			Routes:       loaders,
			Migrations:   loaders,
		},
		Logger: log,
	})
	if err != nil {
		return nil, err
	}

	c := container.New()
	if err := reg.Register(ctx, c); err != nil {
		return nil, err
	}
	if err := reg.Boot(ctx, c); err != nil {
		return nil, err
	}

	policy, err := cfg.Installer.Policy()
	if err != nil {
		return nil, err
	}
	metrics, err := installer.NewMetrics(nil)
	if err != nil {
		return nil, err
	}
	inst, err := installer.New(installer.Options{
		Storage:   st,
		Scratch:   storage.NewScratch(st, cfg.Storage.Resolve(cfg.Storage.ScratchDir)),
		Registry:  reg,
		Container: c,
		Layout:    layout,
		Policy:    policy,
		Metrics:   metrics,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	un := uninstaller.New(uninstaller.Options{
		Storage: st,
		Layout:  layout,
		Locks:   inst.Locks(),
		Metrics: metrics,
		Logger:  log,
	})

	store, err := status.Open(status.Driver(cfg.Status.Driver), st.Fs(), cfg.Storage.Resolve(cfg.Status.Path))
	if err != nil {
		return nil, fmt.Errorf("open status store: %w", err)
	}

	bus := events.NewBus(log)
	manager, err := lifecycle.NewManager(lifecycle.Options{
		Registry:    reg,
		Installer:   inst,
		Uninstaller: un,
		Status:      store,
		Events:      bus,
		Container:   c,
		Logger:      log,
	})
	if err != nil {
		return nil, multierr.Append(err, store.Close())
	}

	return &Host{
		Config:      cfg,
		Storage:     st,
		Container:   c,
		Registry:    reg,
		Catalog:     catalog,
		Installer:   inst,
		Uninstaller: un,
		Status:      store,
		Events:      bus,
		Manager:     manager,
		Layout:      layout,
	}, nil
}

// Close releases the status store and the script interpreters.
func (h *Host) Close() error {
	for _, d := range h.Registry.Modules() {
		if c, ok := d.(interface{ Close() }); ok {
			c.Close()
		}
	}
	return h.Status.Close()
}
