// Package core is the host's built-in module. It is always present, cannot
// be replaced, deactivated or removed, and binds host information into the
// container for other modules.
package core

import (
	"context"
	"time"

	"github.com/alexisbeaulieu97/modhost/internal/container"
	"github.com/alexisbeaulieu97/modhost/internal/module"
)

// ID is the folder name of the core module.
const ID = "Core"

// Priority places Core ahead of every installed module.
const Priority = 100

// Host describes the running host application.
type Host struct {
	Name      string
	Env       string
	Version   string
	StartedAt time.Time
}

// Options configures the module.
type Options struct {
	AppName string
	AppEnv  string
	Version string
	Now     func() time.Time
}

// Module is the core descriptor.
type Module struct {
	module.Base
	opts Options
	host *Host
}

// New returns a module.Factory for Core.
func New(opts Options) module.Factory {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return func(env module.Env) (module.Descriptor, error) {
		meta := module.Metadata{
			Name:        ID,
			Description: "Host services shared by every module.",
			Version:     opts.Version,
			Priority:    Priority,
			IsCore:      true,
		}
		if err := meta.Validate(); err != nil {
			meta.Version = ""
		}
		return &Module{Base: module.NewBase(env, meta), opts: opts}, nil
	}
}

// Register binds *Host.
func (m *Module) Register(_ context.Context, c *container.Container) error {
	m.host = &Host{
		Name:      m.opts.AppName,
		Env:       m.opts.AppEnv,
		Version:   m.opts.Version,
		StartedAt: m.opts.Now().UTC(),
	}
	c.Replace(container.KeyFor(m.host), m.host)
	return nil
}

func (m *Module) Boot(ctx context.Context, _ *container.Container) error {
	m.Logger().Info(ctx, "host ready", "app", m.host.Name, "env", m.host.Env, "version", m.host.Version)
	return nil
}
