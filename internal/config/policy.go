package config

import (
	"fmt"

	"github.com/alexisbeaulieu97/modhost/internal/installer"
	"github.com/alexisbeaulieu97/modhost/internal/storage"
	"github.com/alexisbeaulieu97/modhost/internal/validation"
)

// Policy converts the installer section into an installer.Policy.
func (c InstallerConfig) Policy() (installer.Policy, error) {
	rules, err := validation.CompileRules(c.Rules)
	if err != nil {
		return installer.Policy{}, fmt.Errorf("installer.rules: %w", err)
	}
	return installer.Policy{
		SourceExtension:      c.SourceExtension,
		PublicDir:            c.PublicDir,
		PublicEntryExtension: c.PublicEntryExtension,
		VendorDir:            c.VendorDir,
		ScanExtensions:       append([]string(nil), c.ScanExtensions...),
		PublicExtensions:     append([]string(nil), c.PublicExtensions...),
		PrivateExtensions:    append([]string(nil), c.PrivateExtensions...),
		Rules:                rules,
		Limits:               storage.Limits{MaxEntries: c.MaxEntries, MaxBytes: c.MaxBytes},
		ScanConcurrency:      c.ScanConcurrency,
	}, nil
}
