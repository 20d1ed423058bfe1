package dashboard

// ViewMode determines which screen to render
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
	ViewHelp
	ViewConfirm
)

// Action is a lifecycle operation the dashboard can trigger.
type Action string

const (
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
	ActionUninstall  Action = "uninstall"
)

// ModulesLoadedMsg carries a fresh module listing.
type ModulesLoadedMsg struct {
	Rows  []Row
	Error error
}

// ActionCompleteMsg indicates an action finished successfully
type ActionCompleteMsg struct {
	Action   Action
	ModuleID string
}

// ActionErrorMsg indicates an action failed
type ActionErrorMsg struct {
	Action   Action
	ModuleID string
	Error    error
}

// ActionCancelledMsg indicates an action was cancelled before finishing
type ActionCancelledMsg struct {
	Action   Action
	ModuleID string
}

// ErrorMsg indicates a general error occurred
type ErrorMsg struct {
	Message string
}

// ClearErrorMsg requests error banner dismissal
type ClearErrorMsg struct{}
