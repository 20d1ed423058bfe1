package config

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/modhost/internal/validation"
	moderrors "github.com/alexisbeaulieu97/modhost/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, Validate(cfg))

	policy, err := cfg.Installer.Policy()
	require.NoError(t, err)
	assert.Len(t, policy.Rules, 4)
	assert.Equal(t, "lua", policy.SourceExtension)
	assert.Equal(t, int64(256<<20), policy.Limits.MaxBytes)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, path, err := Load(context.Background(), LoadOptions{Fs: afero.NewMemMapFs(), Environ: []string{}})
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, Default(), cfg)
}

func TestLoadReadsWorkingDirectoryFile(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, FileName, []byte(`
app:
  name: shop
storage:
  root: /srv/shop
status:
  driver: bolt
  path: storage/modules.db
installer:
  scan_extensions: [lua]
  rules:
    - name: no-eval
      pattern: '\beval\s*\('
discovery:
  roots:
    - path: vendor/modules
      namespace: Vendor
`), 0o644))

	cfg, path, err := Load(context.Background(), LoadOptions{Fs: fsys, Environ: []string{}})
	require.NoError(t, err)
	assert.Equal(t, FileName, path)
	assert.Equal(t, "shop", cfg.App.Name)
	assert.Equal(t, "/srv/shop", cfg.Storage.Root)
	assert.Equal(t, "modules", cfg.Storage.ModulesDir)
	assert.Equal(t, "bolt", cfg.Status.Driver)
	assert.Equal(t, []string{"lua"}, cfg.Installer.ScanExtensions)
	assert.Equal(t, []validation.RuleSpec{{Name: "no-eval", Pattern: `\beval\s*\(`}}, cfg.Installer.Rules)
	assert.Equal(t, []RootConfig{{Path: "vendor/modules", Namespace: "Vendor"}}, cfg.Discovery.Roots)
	assert.Equal(t, "/srv/shop/modules", cfg.Storage.Resolve(cfg.Storage.ModulesDir))
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Parallel()

	cfg, _, err := Load(context.Background(), LoadOptions{
		Fs:      afero.NewMemMapFs(),
		Environ: []string{"MODHOST_STATUS_DRIVER=bolt", "MODHOST_LOG_LEVEL=debug", "MODHOST_INSTALLER_MAX_ENTRIES=50", "OTHER=1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "bolt", cfg.Status.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Installer.MaxEntries)
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	t.Parallel()

	_, _, err := Load(context.Background(), LoadOptions{Fs: afero.NewMemMapFs(), Path: "/etc/modhost.yaml", Environ: []string{}})
	var parseErr *moderrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "/etc/modhost.yaml", parseErr.Path)
}

func TestLoadReportsSyntaxErrors(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "bad.yaml", []byte("log:\n  level: info\n   format: json\n"), 0o644))

	_, _, err := Load(context.Background(), LoadOptions{Fs: fsys, Path: "bad.yaml", Environ: []string{}})
	var parseErr *moderrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "bad.yaml", parseErr.Path)
}

func TestLoadHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Load(ctx, LoadOptions{Fs: afero.NewMemMapFs()})
	require.ErrorIs(t, err, context.Canceled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"driver", func(c *Config) { c.Status.Driver = "redis" }, "status.driver"},
		{"dotted extension", func(c *Config) { c.Installer.ScanExtensions = []string{".lua"} }, "installer.scan_extensions[0]"},
		{"uppercase extension", func(c *Config) { c.Installer.SourceExtension = "LUA" }, "installer.source_extension"},
		{"nested public dir", func(c *Config) { c.Installer.PublicDir = "assets/public" }, "installer.public_dir"},
		{"bad regex", func(c *Config) { c.Installer.Rules = []validation.RuleSpec{{Name: "x", Pattern: "("}} }, "installer.rules[0].pattern"},
		{"duplicate rule", func(c *Config) {
			c.Installer.Rules = []validation.RuleSpec{{Name: "x", Pattern: "a"}, {Name: "x", Pattern: "b"}}
		}, "installer.rules[1].name"},
		{"duplicate namespace", func(c *Config) {
			c.Discovery.Roots = []RootConfig{{Path: "extra", Namespace: "Modules"}}
		}, "discovery.roots[0].namespace"},
		{"vendor equals public", func(c *Config) { c.Installer.VendorDir = "public" }, "installer.vendor_dir"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tc.mutate(cfg)

			err := Validate(cfg)
			var valErr *moderrors.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tc.field, valErr.Field)
		})
	}
}

func TestWriteRoundTripsThroughLoad(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	cfg := Default()
	cfg.App.Name = "shop"
	cfg.Status.Driver = "bolt"
	require.NoError(t, Write(fsys, "conf/modhost.yaml", cfg, false))

	exists, err := afero.Exists(fsys, "conf/modhost.yaml.tmp")
	require.NoError(t, err)
	assert.False(t, exists)

	loaded, _, err := Load(context.Background(), LoadOptions{Fs: fsys, Path: "conf/modhost.yaml", Environ: []string{}})
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	err = Write(fsys, "conf/modhost.yaml", cfg, false)
	require.True(t, errors.Is(err, os.ErrExist))
	require.NoError(t, Write(fsys, "conf/modhost.yaml", cfg, true))
}

func TestWriteRefusesInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Log.Level = "loud"
	require.Error(t, Write(afero.NewMemMapFs(), "modhost.yaml", cfg, true))
}
