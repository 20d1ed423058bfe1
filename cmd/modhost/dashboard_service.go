package main

import (
	"context"

	"github.com/alexisbeaulieu97/modhost/internal/lifecycle"
	"github.com/alexisbeaulieu97/modhost/internal/tui/dashboard"
)

type dashboardModuleAdapter struct {
	manager *lifecycle.Manager
}

func newDashboardModuleAdapter(host *Host) dashboard.ModuleService {
	return &dashboardModuleAdapter{manager: host.Manager}
}

func (a *dashboardModuleAdapter) List(ctx context.Context) ([]dashboard.Row, error) {
	infos, err := a.manager.List(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]dashboard.Row, len(infos))
	for i, info := range infos {
		rows[i] = rowFromInfo(info)
	}
	return rows, nil
}

func (a *dashboardModuleAdapter) Activate(ctx context.Context, id string) error {
	_, err := a.manager.Activate(ctx, id)
	return err
}

func (a *dashboardModuleAdapter) Deactivate(ctx context.Context, id string) error {
	_, err := a.manager.Deactivate(ctx, id)
	return err
}

func (a *dashboardModuleAdapter) Uninstall(ctx context.Context, id string) error {
	_, err := a.manager.Uninstall(ctx, id)
	return err
}

func rowFromInfo(info lifecycle.ModuleInfo) dashboard.Row {
	meta := info.Descriptor.Metadata()
	return dashboard.Row{
		ID:          info.ID(),
		Name:        meta.Name,
		Description: meta.Description,
		Version:     meta.Version,
		Priority:    meta.Priority,
		Core:        meta.IsCore,
		Status:      info.Status,
		State:       info.State.String(),
		Source:      info.Record.Source,
		InstalledAt: info.Record.InstalledAt,
	}
}
