package dashboard

import (
	"context"
	"time"

	"github.com/alexisbeaulieu97/modhost/internal/module"
)

// ModuleService exposes the host operations the dashboard drives.
type ModuleService interface {
	List(ctx context.Context) ([]Row, error)
	Activate(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
	Uninstall(ctx context.Context, id string) error
}

// Row is one module as displayed by the dashboard.
type Row struct {
	ID          string
	Name        string
	Description string
	Version     string
	Priority    int
	Core        bool
	Status      module.Status
	// State is the registry lifecycle state: discovered, registered or
	// booted.
	State       string
	Source      string
	InstalledAt time.Time
}

// Title returns the display name, falling back to the id.
func (r Row) Title() string {
	if r.Name == "" {
		return r.ID
	}
	return r.Name
}
