package config

import (
	"path/filepath"

	"github.com/alexisbeaulieu97/modhost/internal/validation"
)

// Config is the host configuration file.
type Config struct {
	App       AppConfig       `mapstructure:"app" yaml:"app"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Discovery DiscoveryConfig `mapstructure:"discovery" yaml:"discovery"`
	Installer InstallerConfig `mapstructure:"installer" yaml:"installer"`
	Status    StatusConfig    `mapstructure:"status" yaml:"status"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// AppConfig names the host application.
type AppConfig struct {
	Name string `mapstructure:"name" yaml:"name" validate:"required"`
	Env  string `mapstructure:"env" yaml:"env" validate:"required,oneof=production staging development testing"`
}

// StorageConfig locates the host's directories. Relative paths resolve
// against Root.
type StorageConfig struct {
	Root       string `mapstructure:"root" yaml:"root" validate:"required"`
	ModulesDir string `mapstructure:"modules_dir" yaml:"modules_dir" validate:"required"`
	PublicDir  string `mapstructure:"public_dir" yaml:"public_dir" validate:"required"`
	ScratchDir string `mapstructure:"scratch_dir" yaml:"scratch_dir" validate:"required"`
}

// DiscoveryConfig controls where modules are searched for. The modules
// directory is always the first root; Roots adds read-only ones.
type DiscoveryConfig struct {
	Namespace string       `mapstructure:"namespace" yaml:"namespace" validate:"required"`
	Roots     []RootConfig `mapstructure:"roots" yaml:"roots,omitempty" validate:"dive"`
}

// RootConfig is an additional discovery root.
type RootConfig struct {
	Path      string `mapstructure:"path" yaml:"path" validate:"required"`
	Namespace string `mapstructure:"namespace" yaml:"namespace" validate:"required"`
}

// InstallerConfig mirrors installer.Policy.
type InstallerConfig struct {
	SourceExtension      string                `mapstructure:"source_extension" yaml:"source_extension" validate:"required,extension"`
	PublicDir            string                `mapstructure:"public_dir" yaml:"public_dir" validate:"required,dirname"`
	PublicEntryExtension string                `mapstructure:"public_entry_extension" yaml:"public_entry_extension" validate:"required,extension"`
	VendorDir            string                `mapstructure:"vendor_dir" yaml:"vendor_dir" validate:"required,dirname"`
	ScanExtensions       []string              `mapstructure:"scan_extensions" yaml:"scan_extensions" validate:"dive,extension"`
	PublicExtensions     []string              `mapstructure:"public_extensions" yaml:"public_extensions" validate:"min=1,dive,extension"`
	PrivateExtensions    []string              `mapstructure:"private_extensions" yaml:"private_extensions" validate:"min=1,dive,extension"`
	Rules                []validation.RuleSpec `mapstructure:"rules" yaml:"rules" validate:"dive"`
	MaxEntries           int                   `mapstructure:"max_entries" yaml:"max_entries" validate:"gte=0"`
	MaxBytes             int64                 `mapstructure:"max_bytes" yaml:"max_bytes" validate:"gte=0"`
	ScanConcurrency      int                   `mapstructure:"scan_concurrency" yaml:"scan_concurrency" validate:"gte=1,lte=64"`
}

// StatusConfig selects the status store.
type StatusConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver" validate:"required,oneof=json bolt"`
	Path   string `mapstructure:"path" yaml:"path" validate:"required"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=json console"`
}

// Resolve returns p made absolute against the storage root.
func (s StorageConfig) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	root := s.Root
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return filepath.Join(root, p)
}

// RootPath is the absolute storage root.
func (s StorageConfig) RootPath() string { return s.Resolve(".") }
