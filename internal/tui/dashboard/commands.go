package dashboard

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// loadModulesCmd fetches the module listing asynchronously
func loadModulesCmd(ctx context.Context, svc ModuleService) tea.Cmd {
	return func() tea.Msg {
		if svc == nil {
			return ModulesLoadedMsg{Error: fmt.Errorf("no module service configured")}
		}
		rows, err := svc.List(ctx)
		return ModulesLoadedMsg{Rows: rows, Error: err}
	}
}

// actionCmd runs a lifecycle action for one module asynchronously
func actionCmd(ctx context.Context, svc ModuleService, action Action, id string) tea.Cmd {
	return func() tea.Msg {
		if svc == nil {
			return ActionErrorMsg{Action: action, ModuleID: id, Error: fmt.Errorf("no module service configured")}
		}

		var err error
		switch action {
		case ActionActivate:
			err = svc.Activate(ctx, id)
		case ActionDeactivate:
			err = svc.Deactivate(ctx, id)
		case ActionUninstall:
			err = svc.Uninstall(ctx, id)
		default:
			err = fmt.Errorf("unknown action %q", action)
		}

		if err != nil {
			if ctx.Err() != nil {
				return ActionCancelledMsg{Action: action, ModuleID: id}
			}
			return ActionErrorMsg{Action: action, ModuleID: id, Error: err}
		}
		return ActionCompleteMsg{Action: action, ModuleID: id}
	}
}
