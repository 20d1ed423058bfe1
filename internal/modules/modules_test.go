package modules

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/modhost/internal/container"
	"github.com/alexisbeaulieu97/modhost/internal/module"
	"github.com/alexisbeaulieu97/modhost/internal/modules/core"
	"github.com/alexisbeaulieu97/modhost/internal/registry"
	"github.com/alexisbeaulieu97/modhost/internal/storage"
)

func TestSeedAndBootCore(t *testing.T) {
	st := storage.New(afero.NewMemMapFs(), "/app")
	require.NoError(t, Seed(st, "/app/modules"))
	require.NoError(t, Seed(st, "/app/modules"))
	assert.True(t, st.IsDir("/app/modules/Core"))

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	catalog := registry.NewCatalog()
	require.NoError(t, Register(catalog, "Modules", Options{Core: core.Options{
		AppName: "shop", AppEnv: "testing", Version: "1.4.0",
		Now: func() time.Time { return started },
	}}))
	require.Error(t, Register(catalog, "Modules", Options{}))
	assert.Equal(t, []string{"Core"}, catalog.IDs("Modules"))

	reg, err := registry.New(registry.Options{
		Storage:  st,
		Resolver: catalog,
		Roots:    []registry.SearchRoot{{Path: "/app/modules", Namespace: "Modules"}},
	})
	require.NoError(t, err)

	c := container.New()
	ctx := context.Background()
	require.NoError(t, reg.Register(ctx, c))
	require.NoError(t, reg.Boot(ctx, c))

	d, ok := reg.FindByID("Core")
	require.True(t, ok)
	assert.True(t, d.Metadata().IsCore)
	assert.Equal(t, core.Priority, d.Metadata().Priority)

	host, ok := container.Get[*core.Host](c)
	require.True(t, ok)
	assert.Equal(t, "shop", host.Name)
	assert.Equal(t, "testing", host.Env)
	assert.Equal(t, started, host.StartedAt)
}

func TestCoreDropsMalformedVersion(t *testing.T) {
	d, err := core.New(core.Options{Version: "dev build"})(moduleEnv())
	require.NoError(t, err)
	assert.Empty(t, d.Metadata().Version)
}

func moduleEnv() module.Env {
	return module.Env{Location: module.Location{ID: core.ID, BasePath: "/app/modules/Core", Namespace: "Modules"}}
}
