package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/modhost/internal/config"
	"github.com/alexisbeaulieu97/modhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/modhost/internal/installer"
	"github.com/alexisbeaulieu97/modhost/internal/module"
	moderrors "github.com/alexisbeaulieu97/modhost/pkg/errors"
)

func openTestHost(t *testing.T, d hostDir) *Host {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Root = d.root
	cfg.App.Env = "testing"

	host, err := openHost(context.Background(), cfg, logging.NewNoOpLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = host.Close() })
	return host
}

func TestDashboardAdapter_DrivesLifecycle(t *testing.T) {
	d := setupHostDir(t)
	host := openTestHost(t, d)
	ctx := context.Background()

	_, err := host.Manager.Install(ctx, installer.ArchiveSource{Path: blogPackage(t, d)})
	require.NoError(t, err)

	svc := newDashboardModuleAdapter(host)
	rows, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Core", rows[0].ID)
	assert.True(t, rows[0].Core)
	assert.Equal(t, "Blog", rows[1].Title())
	assert.Equal(t, module.StatusInactive, rows[1].Status)
	assert.Equal(t, "booted", rows[1].State)
	assert.False(t, rows[1].InstalledAt.IsZero())

	require.NoError(t, svc.Activate(ctx, "Blog"))
	rows, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, module.StatusActive, rows[1].Status)

	require.NoError(t, svc.Deactivate(ctx, "Blog"))
	require.ErrorIs(t, svc.Uninstall(ctx, "Core"), moderrors.ErrCoreModuleOverrideDenied)
	require.NoError(t, svc.Uninstall(ctx, "Blog"))

	rows, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestOpenHost_StatusSurvivesRestart(t *testing.T) {
	d := setupHostDir(t)
	ctx := context.Background()

	first := openTestHost(t, d)
	_, err := first.Manager.Install(ctx, installer.ArchiveSource{Path: blogPackage(t, d)})
	require.NoError(t, err)
	_, err = first.Manager.Activate(ctx, "Blog")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := openTestHost(t, d)
	info, err := second.Manager.Get(ctx, "Blog")
	require.NoError(t, err)
	assert.Equal(t, module.StatusActive, info.Status)
	assert.Equal(t, []string{"Core", "Blog"}, []string{
		second.Registry.Modules()[0].ID(),
		second.Registry.Modules()[1].ID(),
	})
}
