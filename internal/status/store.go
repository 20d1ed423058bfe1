// Package status persists the activation state of installed modules.
package status

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/alexisbeaulieu97/modhost/internal/module"
)

// Driver names a Store implementation.
type Driver string

const (
	DriverJSON Driver = "json"
	DriverBolt Driver = "bolt"
)

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("status: store is closed")

// Record is the persisted state of one installed module.
type Record struct {
	ID          string        `json:"id"`
	Status      module.Status `json:"status"`
	Version     string        `json:"version,omitempty"`
	Digest      string        `json:"digest,omitempty"`
	Source      string        `json:"source,omitempty"`
	InstalledAt time.Time     `json:"installed_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Active reports whether the module is activated.
func (r Record) Active() bool { return r.Status == module.StatusActive }

// Store persists module records keyed by module id.
type Store interface {
	Get(ctx context.Context, id string) (Record, bool, error)
	Put(ctx context.Context, record Record) error
	Delete(ctx context.Context, id string) error
	// List returns every record sorted by id.
	List(ctx context.Context) ([]Record, error)
	Close() error
}

// Open creates the Store selected by driver. The JSON driver writes through
// fsys; the bolt driver always uses the OS filesystem.
func Open(driver Driver, fsys afero.Fs, path string) (Store, error) {
	switch driver {
	case DriverJSON, "":
		return NewJSONStore(fsys, path)
	case DriverBolt:
		return OpenBolt(path)
	default:
		return nil, fmt.Errorf("status: unknown driver %q", driver)
	}
}

func validate(record Record) error {
	if !module.ValidID(record.ID) {
		return fmt.Errorf("status: invalid module id %q", record.ID)
	}
	if !record.Status.Valid() {
		return fmt.Errorf("status: invalid status %q for %s", record.Status, record.ID)
	}
	return nil
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}
