package status

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/modhost/internal/module"
)

func record(id string, status module.Status) Record {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return Record{ID: id, Status: status, Version: "1.0.0", InstalledAt: now, UpdatedAt: now}
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	jsonStore, err := NewJSONStore(afero.NewMemMapFs(), "/var/modhost/status.json")
	require.NoError(t, err)

	boltStore, err := OpenBolt(filepath.Join(t.TempDir(), "status.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = boltStore.Close() })

	return map[string]Store{"json": jsonStore, "bolt": boltStore}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := store.Get(ctx, "blog")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Put(ctx, record("shop", module.StatusActive)))
			require.NoError(t, store.Put(ctx, record("blog", module.StatusInactive)))

			got, ok, err := store.Get(ctx, "blog")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, module.StatusInactive, got.Status)
			assert.False(t, got.Active())

			list, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "blog", list[0].ID)
			assert.Equal(t, "shop", list[1].ID)

			require.NoError(t, store.Delete(ctx, "blog"))
			require.NoError(t, store.Delete(ctx, "blog"))
			_, ok, err = store.Get(ctx, "blog")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStoreRejectsInvalidRecords(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.Error(t, store.Put(ctx, record("../etc", module.StatusActive)))
			require.Error(t, store.Put(ctx, record("blog", module.Status("paused"))))
		})
	}
}

func TestStoreRefusesWorkAfterClose(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Close())
			require.NoError(t, store.Close())

			_, err := store.List(context.Background())
			require.ErrorIs(t, err, ErrClosed)
		})
	}
}

func TestJSONStorePersistsAcrossReopen(t *testing.T) {
	fsys := afero.NewMemMapFs()
	ctx := context.Background()

	first, err := NewJSONStore(fsys, "/data/status.json")
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, record("blog", module.StatusActive)))

	exists, err := afero.Exists(fsys, "/data/status.json.tmp")
	require.NoError(t, err)
	assert.False(t, exists)

	second, err := NewJSONStore(fsys, "/data/status.json")
	require.NoError(t, err)
	got, ok, err := second.Get(ctx, "blog")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Active())
}

func TestJSONStoreRejectsCorruptFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/data/status.json", []byte("{"), 0o644))

	_, err := NewJSONStore(fsys, "/data/status.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse status file")
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.db")
	ctx := context.Background()

	first, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, record("blog", module.StatusActive)))
	require.NoError(t, first.Close())

	second, err := OpenBolt(path)
	require.NoError(t, err)
	defer second.Close()

	got, ok, err := second.Get(ctx, "blog")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.0.0", got.Version)
}

func TestOpenSelectsDriver(t *testing.T) {
	store, err := Open(DriverJSON, afero.NewMemMapFs(), "/s.json")
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, store)

	store, err = Open(DriverBolt, nil, filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	assert.IsType(t, &BoltStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open("redis", nil, "")
	require.Error(t, err)
}
