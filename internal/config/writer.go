package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ErrExists is returned by Write when the target exists and overwrite is
// false.
var ErrExists = os.ErrExist

// Marshal renders cfg as YAML with two-space indentation.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Write validates cfg and saves it to path through a temp file and rename.
func Write(fsys afero.Fs, path string, cfg *Config, overwrite bool) error {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if err := Validate(cfg); err != nil {
		return err
	}
	if !overwrite {
		if exists, _ := afero.Exists(fsys, path); exists {
			return fmt.Errorf("write config %s: %w", path, ErrExists)
		}
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fsys, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
