// Package config loads and validates the host configuration. Values come
// from defaults, then the YAML file, then MODHOST_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	moderrors "github.com/alexisbeaulieu97/modhost/pkg/errors"
)

const (
	// FileName is the configuration file looked up in the working directory.
	FileName = "modhost.yaml"
	// EnvPrefix prefixes environment overrides: MODHOST_STATUS_DRIVER=bolt.
	EnvPrefix = "MODHOST"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// Path is an explicit configuration file. It must exist.
	Path string
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
	// Environ replaces the process environment when non-nil, as KEY=VALUE
	// pairs.
	Environ []string
}

// Load resolves the configuration and returns it with the file it was read
// from, which is empty when only defaults and environment applied.
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("load config cancelled: %w", err)
	}

	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	v := viper.New()
	v.SetFs(fsys)
	v.SetConfigType("yaml")
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if opts.Environ != nil {
		applyEnviron(v, opts.Environ)
	} else {
		v.AutomaticEnv()
	}

	resolved := ""
	switch {
	case opts.Path != "":
		exists, err := afero.Exists(fsys, opts.Path)
		if err != nil || !exists {
			return nil, "", moderrors.NewParseError(opts.Path, 0, fmt.Errorf("config file not found: %w", errNotExist(err)))
		}
		resolved = opts.Path
	default:
		if exists, _ := afero.Exists(fsys, FileName); exists {
			resolved = FileName
		}
	}

	if resolved != "" {
		v.SetConfigFile(resolved)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", moderrors.NewParseError(resolved, extractLine(err), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", moderrors.NewParseError(resolved, 0, fmt.Errorf("decode config: %w", err))
	}
	if err := Validate(&cfg); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

var errConfigMissing = errors.New("no such file")

func errNotExist(err error) error {
	if err != nil {
		return err
	}
	return errConfigMissing
}

// setDefaults registers every leaf of d so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("app.name", d.App.Name)
	v.SetDefault("app.env", d.App.Env)
	v.SetDefault("storage.root", d.Storage.Root)
	v.SetDefault("storage.modules_dir", d.Storage.ModulesDir)
	v.SetDefault("storage.public_dir", d.Storage.PublicDir)
	v.SetDefault("storage.scratch_dir", d.Storage.ScratchDir)
	v.SetDefault("discovery.namespace", d.Discovery.Namespace)
	v.SetDefault("installer.source_extension", d.Installer.SourceExtension)
	v.SetDefault("installer.public_dir", d.Installer.PublicDir)
	v.SetDefault("installer.public_entry_extension", d.Installer.PublicEntryExtension)
	v.SetDefault("installer.vendor_dir", d.Installer.VendorDir)
	v.SetDefault("installer.scan_extensions", d.Installer.ScanExtensions)
	v.SetDefault("installer.public_extensions", d.Installer.PublicExtensions)
	v.SetDefault("installer.private_extensions", d.Installer.PrivateExtensions)
	rules := make([]map[string]any, 0, len(d.Installer.Rules))
	for _, rule := range d.Installer.Rules {
		rules = append(rules, map[string]any{"name": rule.Name, "pattern": rule.Pattern})
	}
	v.SetDefault("installer.rules", rules)
	v.SetDefault("installer.max_entries", d.Installer.MaxEntries)
	v.SetDefault("installer.max_bytes", d.Installer.MaxBytes)
	v.SetDefault("installer.scan_concurrency", d.Installer.ScanConcurrency)
	v.SetDefault("status.driver", d.Status.Driver)
	v.SetDefault("status.path", d.Status.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// applyEnviron sets overrides from explicit KEY=VALUE pairs. Only keys with a
// registered default are honoured, matching AutomaticEnv.
func applyEnviron(v *viper.Viper, environ []string) {
	prefix := EnvPrefix + "_"
	replacer := strings.NewReplacer(".", "_")
	known := make(map[string]string)
	for _, key := range v.AllKeys() {
		known[prefix+strings.ToUpper(replacer.Replace(key))] = key
	}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if key, found := known[name]; found {
			v.Set(key, value)
		}
	}
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}
	return line
}
