package uninstaller

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/modhost/internal/installer"
	"github.com/alexisbeaulieu97/modhost/internal/storage"
	"github.com/alexisbeaulieu97/modhost/internal/testutil"
	moderrors "github.com/alexisbeaulieu97/modhost/pkg/errors"
)

var layout = installer.Layout{ModulesDir: "/app/modules", PublicRoot: "/app/public"}

type failingStorage struct {
	storage.Storage
	failOn string
}

func (f failingStorage) DeleteDirectory(path string) error {
	if path == f.failOn {
		return errors.New("permission denied")
	}
	return f.Storage.DeleteDirectory(path)
}

type countingRecorder struct{ n int }

func (c *countingRecorder) RecordUninstall(context.Context) { c.n++ }

func seed(t *testing.T) (afero.Fs, *storage.Local) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	testutil.WriteTree(t, fsys, "/app/modules/Blog", map[string]string{"Blog.lua": "return {}", "lang/en.json": "{}"})
	testutil.WriteTree(t, fsys, "/app/public/modules/Blog", map[string]string{"style.css": "body{}"})
	testutil.WriteTree(t, fsys, "/app/modules/Shop", map[string]string{"Shop.lua": "return {}"})
	return fsys, storage.New(fsys, "/app")
}

func TestUninstallRemovesCodeAndAssets(t *testing.T) {
	_, store := seed(t)
	recorder := &countingRecorder{}
	u := New(Options{Storage: store, Layout: layout, Metrics: recorder})

	removed, err := u.Uninstall(context.Background(), "Blog")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, store.Exists("/app/modules/Blog"))
	assert.False(t, store.Exists("/app/public/modules/Blog"))
	assert.True(t, store.Exists("/app/modules/Shop/Shop.lua"))
	assert.Equal(t, 1, recorder.n)

	removed, err = u.Uninstall(context.Background(), "Blog")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 1, recorder.n)
}

func TestUninstallWithoutPublishedAssets(t *testing.T) {
	_, store := seed(t)
	u := New(Options{Storage: store, Layout: layout})

	removed, err := u.Uninstall(context.Background(), "Shop")
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestUninstallRefusesUnsafeIDs(t *testing.T) {
	_, store := seed(t)
	u := New(Options{Storage: store, Layout: layout})

	for _, id := range []string{"", "  ", ".", "..", "../public", "Blog/lang", "/etc"} {
		removed, err := u.Uninstall(context.Background(), id)
		require.NoError(t, err, id)
		assert.False(t, removed, id)
	}
	assert.True(t, store.Exists("/app/modules/Blog/lang/en.json"))
	assert.True(t, store.Exists("/app/modules"))
}

func TestUninstallStopsWhenCodeDeletionFails(t *testing.T) {
	_, store := seed(t)
	u := New(Options{Storage: failingStorage{Storage: store, failOn: "/app/modules/Blog"}, Layout: layout})

	removed, err := u.Uninstall(context.Background(), "Blog")
	require.Error(t, err)
	assert.False(t, removed)
	assert.True(t, store.Exists("/app/public/modules/Blog/style.css"))
}

func TestUninstallReportsPartialRemoval(t *testing.T) {
	_, store := seed(t)
	u := New(Options{Storage: failingStorage{Storage: store, failOn: "/app/public/modules/Blog"}, Layout: layout})

	removed, err := u.Uninstall(context.Background(), "Blog")
	assert.True(t, removed)

	var partial *moderrors.PartialUninstallError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "Blog", partial.Module)
	assert.Equal(t, "/app/public/modules/Blog", partial.PublicDir)
	assert.False(t, store.Exists("/app/modules/Blog"))
}
