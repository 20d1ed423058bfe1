package config

import (
	"github.com/alexisbeaulieu97/modhost/internal/installer"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	policy := installer.DefaultPolicy()
	return &Config{
		App: AppConfig{Name: "modhost", Env: "production"},
		Storage: StorageConfig{
			Root:       ".",
			ModulesDir: "modules",
			PublicDir:  "public",
			ScratchDir: "storage/tmp/modules",
		},
		Discovery: DiscoveryConfig{Namespace: "Modules"},
		Installer: InstallerConfig{
			SourceExtension:      policy.SourceExtension,
			PublicDir:            policy.PublicDir,
			PublicEntryExtension: policy.PublicEntryExtension,
			VendorDir:            policy.VendorDir,
			ScanExtensions:       policy.ScanExtensions,
			PublicExtensions:     policy.PublicExtensions,
			PrivateExtensions:    policy.PrivateExtensions,
			Rules:                installer.DefaultRuleSpecs(),
			MaxEntries:           policy.Limits.MaxEntries,
			MaxBytes:             policy.Limits.MaxBytes,
			ScanConcurrency:      policy.ScanConcurrency,
		},
		Status: StatusConfig{Driver: "json", Path: "storage/modules.json"},
		Log:    LogConfig{Level: "info", Format: "console"},
	}
}
