// Package modules lists the modules compiled into the host binary.
package modules

import (
	"fmt"
	"path/filepath"

	"github.com/alexisbeaulieu97/modhost/internal/modules/core"
	"github.com/alexisbeaulieu97/modhost/internal/registry"
	"github.com/alexisbeaulieu97/modhost/internal/storage"
)

// Options carries host details passed to compiled-in modules.
type Options struct {
	Core core.Options
}

// IDs returns the ids of the compiled-in modules.
func IDs() []string {
	return []string{core.ID}
}

// Register adds every compiled-in module to catalog under namespace.
func Register(catalog *registry.Catalog, namespace string, opts Options) error {
	if err := catalog.Register(namespace, core.ID, core.New(opts.Core)); err != nil {
		return fmt.Errorf("register %s: %w", core.ID, err)
	}
	return nil
}

// Seed creates the folders of compiled-in modules below root so discovery
// finds them.
func Seed(st storage.Storage, root string) error {
	for _, id := range IDs() {
		dir := filepath.Join(root, id)
		if st.IsDir(dir) {
			continue
		}
		if err := st.MakeDirectory(dir); err != nil {
			return fmt.Errorf("seed %s: %w", id, err)
		}
	}
	return nil
}
