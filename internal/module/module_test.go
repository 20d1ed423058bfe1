package module

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingLoaders struct {
	translations []string
	routes       []string
	migrations   []string
}

func (r *recordingLoaders) LoadTranslations(_ context.Context, id, dir string) error {
	r.translations = append(r.translations, id+":"+dir)
	return nil
}

func (r *recordingLoaders) LoadRoutes(_ context.Context, id, dir string) error {
	r.routes = append(r.routes, id+":"+dir)
	return nil
}

func (r *recordingLoaders) RunMigrations(_ context.Context, id, dir string) error {
	r.migrations = append(r.migrations, id+":"+dir)
	return nil
}

func newEnv(loaders *recordingLoaders) Env {
	return Env{
		Location:     Location{ID: "Blog", BasePath: "/srv/app/modules/Blog", Namespace: "modules"},
		Translations: loaders,
		Routes:       loaders,
		Migrations:   loaders,
	}
}

func TestBaseBeforeBootHonoursFlags(t *testing.T) {
	t.Parallel()

	loaders := &recordingLoaders{}
	base := NewBase(newEnv(loaders), Metadata{Name: "Blog", Routes: true})

	require.NoError(t, base.BeforeBoot(context.Background()))
	require.Equal(t, []string{"Blog:/srv/app/modules/Blog/routes"}, loaders.routes)
	require.Empty(t, loaders.translations)
}

func TestBaseMigrateDelegatesToRunner(t *testing.T) {
	t.Parallel()

	loaders := &recordingLoaders{}
	base := NewBase(newEnv(loaders), Metadata{Name: "Blog"})

	require.Equal(t, "/srv/app/modules/Blog/migrations", base.MigrationPath())
	require.NoError(t, base.Migrate(context.Background()))
	require.Equal(t, []string{"Blog:/srv/app/modules/Blog/migrations"}, loaders.migrations)

	withoutRunner := NewBase(Env{Location: Location{ID: "Blog"}}, Metadata{Name: "Blog"})
	require.NoError(t, withoutRunner.Migrate(context.Background()))
}

func TestLocationKey(t *testing.T) {
	t.Parallel()

	loc := Location{ID: "Blog", Namespace: "modules"}
	require.Equal(t, "modules.Blog.Blog", loc.Key())
}

func TestMetadataValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Metadata{Name: "Blog", Version: "1.2.0", AuthorURL: "https://example.com"}.Validate())
	require.NoError(t, Metadata{Name: "Blog", Version: "v2.0"}.Validate())

	err := Metadata{Version: "one"}.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "name")
	require.Contains(t, err.Error(), "version")

	require.Error(t, Metadata{Name: "Blog", AuthorURL: "not a url"}.Validate())
}

func TestValidID(t *testing.T) {
	t.Parallel()

	require.True(t, ValidID("Blog"))
	require.True(t, ValidID("blog_posts-2"))
	require.False(t, ValidID(""))
	require.False(t, ValidID("2fa"))
	require.False(t, ValidID("../Core"))
}

func TestStatusValid(t *testing.T) {
	t.Parallel()

	require.True(t, StatusActive.Valid())
	require.False(t, Status("enabled").Valid())
}
