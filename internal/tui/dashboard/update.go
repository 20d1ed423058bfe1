package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	minWidth  = 80
	minHeight = 24
)

// Update handles incoming messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		ApplyMaxWidth(m.width)

		if m.width < minWidth || m.height < minHeight {
			m.showError = true
			m.errorMsg = fmt.Sprintf("Terminal too small (%dx%d). Minimum size: %dx%d",
				m.width, m.height, minWidth, minHeight)
		} else if m.showError && strings.HasPrefix(m.errorMsg, "Terminal too small") {
			m.showError = false
			m.errorMsg = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ModulesLoadedMsg:
		m.refreshing = false
		if msg.Error != nil {
			m.showError = true
			m.errorMsg = fmt.Sprintf("Failed to load modules: %s", msg.Error.Error())
			return m, nil
		}
		m.setRows(msg.Rows)
		return m, nil

	case ActionCompleteMsg:
		m.finish(msg.ModuleID)
		delete(m.errors, msg.ModuleID)
		m.refreshing = true
		return m, loadModulesCmd(m.ctx, m.service)

	case ActionErrorMsg:
		m.finish(msg.ModuleID)
		m.errors[msg.ModuleID] = msg.Error.Error()
		m.showError = true
		m.errorMsg = fmt.Sprintf("Failed to %s %s: %s", msg.Action, msg.ModuleID, msg.Error.Error())
		return m, nil

	case ActionCancelledMsg:
		m.finish(msg.ModuleID)
		return m, nil

	case ErrorMsg:
		m.showError = true
		m.errorMsg = msg.Message
		return m, nil

	case ClearErrorMsg:
		m.showError = false
		m.errorMsg = ""
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input based on current view mode
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewHelp:
		return m.handleHelpKeys(msg)
	case ViewConfirm:
		return m.handleConfirmKeys(msg)
	default:
		return m, nil
	}
}

// handleListKeys handles keys in list view
func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Dismiss):
		m.showError = false
		m.errorMsg = ""
		return m, nil

	case key.Matches(msg, m.keys.Quit):
		m.cancelAll()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.MoveCursorUp()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.MoveCursorDown()
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if selected, ok := m.GetSelectedModule(); ok {
			m.selectedID = selected.ID
			m.viewMode = ViewDetail
		}
		return m, nil

	case key.Matches(msg, m.keys.Activate):
		return m.startOnSelected(ActionActivate)

	case key.Matches(msg, m.keys.Deactivate):
		return m.startOnSelected(ActionDeactivate)

	case key.Matches(msg, m.keys.Uninstall):
		if selected, ok := m.GetSelectedModule(); ok {
			m.confirm(ActionUninstall, selected.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m.refresh()

	case key.Matches(msg, m.keys.Help):
		m.viewMode = ViewHelp
		m.help.ShowAll = true
		return m, nil
	}

	// Direct selection with number keys
	if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
		m.SetCursor(int(s[0] - '1'))
	}
	return m, nil
}

// handleDetailKeys handles keys in detail view
func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancelAll()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		m.viewMode = ViewList
		m.selectedID = ""
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		m.showError = false
		m.errorMsg = ""
		return m, nil

	case key.Matches(msg, m.keys.Activate):
		return m.start(ActionActivate, m.selectedID)

	case key.Matches(msg, m.keys.Deactivate):
		return m.start(ActionDeactivate, m.selectedID)

	case key.Matches(msg, m.keys.Uninstall):
		m.confirm(ActionUninstall, m.selectedID)
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m.refresh()

	case key.Matches(msg, m.keys.Help):
		m.viewMode = ViewHelp
		m.help.ShowAll = true
		return m, nil
	}
	return m, nil
}

// handleHelpKeys handles keys in help view
func (m Model) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "?", "esc", "q":
		m.help.ShowAll = false
		m.viewMode = m.previousView()
	}
	return m, nil
}

// handleConfirmKeys handles keys in confirmation dialog
func (m Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		action, id := m.confirmAction, m.confirmModule
		m.confirmAction = ""
		m.confirmModule = ""
		m.viewMode = m.previousView()
		return m.start(action, id)

	case "n", "N", "esc":
		m.confirmAction = ""
		m.confirmModule = ""
		m.viewMode = m.previousView()
		return m, nil
	}
	return m, nil
}

func (m Model) previousView() ViewMode {
	if m.selectedID != "" {
		return ViewDetail
	}
	return ViewList
}

func (m *Model) confirm(action Action, id string) {
	if id == "" {
		return
	}
	m.confirmAction = action
	m.confirmModule = id
	m.viewMode = ViewConfirm
}

func (m Model) startOnSelected(action Action) (tea.Model, tea.Cmd) {
	selected, ok := m.GetSelectedModule()
	if !ok {
		return m, nil
	}
	return m.start(action, selected.ID)
}

// start launches action for id unless one is already running for it.
func (m Model) start(action Action, id string) (tea.Model, tea.Cmd) {
	if id == "" || m.loading[id] {
		return m, nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.operationCtxs[id] = cancel
	m.loading[id] = true
	m.operations[id] = Operation{Action: action, ModuleID: id, StartedAt: time.Now()}

	return m, tea.Batch(m.spinner.Tick, actionCmd(ctx, m.service, action, id))
}

func (m Model) refresh() (tea.Model, tea.Cmd) {
	if m.refreshing {
		return m, nil
	}
	m.refreshing = true
	return m, tea.Batch(m.spinner.Tick, loadModulesCmd(m.ctx, m.service))
}
