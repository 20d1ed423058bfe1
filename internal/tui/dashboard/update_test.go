package dashboard

import (
	"errors"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/modhost/internal/module"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	updated, ok := next.(Model)
	require.True(t, ok)
	return updated, cmd
}

func press(t *testing.T, m Model, keys string) (Model, tea.Cmd) {
	t.Helper()
	switch keys {
	case "enter":
		return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	case "esc":
		return update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	case "up":
		return update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	case "down":
		return update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	default:
		return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
	}
}

func TestUpdate_WindowSizeMsg(t *testing.T) {
	m := NewModel(nil, nil)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Equal(t, 100, m.width)
	assert.Equal(t, 40, m.height)
	assert.False(t, m.showError)
}

func TestUpdate_WindowSizeMsg_TooSmall(t *testing.T) {
	m := NewModel(nil, nil)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.True(t, m.showError, "Should show error for small terminal")
	assert.Contains(t, m.errorMsg, "Terminal too small")

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.False(t, m.showError)
}

func TestUpdate_SpinnerTickMsg(t *testing.T) {
	m := NewModel(nil, nil)

	_, cmd := update(t, m, spinner.TickMsg{})
	assert.NotNil(t, cmd)
}

func TestUpdate_ModulesLoaded(t *testing.T) {
	m := NewModel(nil, nil)
	m.refreshing = true

	m, _ = update(t, m, ModulesLoadedMsg{Rows: sampleRows()})
	assert.False(t, m.IsRefreshing())
	assert.Len(t, m.Rows(), 3)

	m, _ = update(t, m, ModulesLoadedMsg{Error: errors.New("status store closed")})
	assert.True(t, m.showError)
	assert.Contains(t, m.errorMsg, "status store closed")
	assert.Len(t, m.Rows(), 3, "failed reloads keep the last listing")
}

func TestUpdate_NavigationKeys(t *testing.T) {
	m := NewModel(sampleRows(), nil)

	m, _ = press(t, m, "j")
	assert.Equal(t, 1, m.cursor)
	m, _ = press(t, m, "down")
	assert.Equal(t, 2, m.cursor)
	m, _ = press(t, m, "k")
	assert.Equal(t, 1, m.cursor)
	m, _ = press(t, m, "up")
	assert.Equal(t, 0, m.cursor)
	m, _ = press(t, m, "3")
	assert.Equal(t, 2, m.cursor)
	m, _ = press(t, m, "9")
	assert.Equal(t, 2, m.cursor)
}

func TestUpdate_DetailAndBack(t *testing.T) {
	m := NewModel(sampleRows(), nil)

	m, _ = press(t, m, "j")
	m, _ = press(t, m, "enter")
	assert.Equal(t, ViewDetail, m.GetViewMode())
	assert.Equal(t, "Blog", m.selectedID)

	m, _ = press(t, m, "esc")
	assert.Equal(t, ViewList, m.GetViewMode())
	assert.Empty(t, m.selectedID)
}

func TestUpdate_ActivateStartsAction(t *testing.T) {
	svc := newFakeService(sampleRows()...)
	m := NewModel(sampleRows(), svc)

	m, _ = press(t, m, "j")
	m, cmd := press(t, m, "a")
	require.NotNil(t, cmd)
	assert.True(t, m.IsLoading("Blog"))
	assert.Equal(t, ActionActivate, m.operations["Blog"].Action)

	// A second request for the same module is ignored while one runs.
	_, cmd = press(t, m, "a")
	assert.Nil(t, cmd)

	m, cmd = update(t, m, ActionCompleteMsg{Action: ActionActivate, ModuleID: "Blog"})
	assert.False(t, m.IsLoading("Blog"))
	assert.True(t, m.IsRefreshing())
	require.NotNil(t, cmd)

	svc.rows[1].Status = module.StatusActive
	m, _ = update(t, m, cmd())
	assert.False(t, m.IsRefreshing())
	row, _, ok := m.GetModuleByID("Blog")
	require.True(t, ok)
	assert.Equal(t, module.StatusActive, row.Status)
}

func TestUpdate_ActionError(t *testing.T) {
	m := NewModel(sampleRows(), nil)
	m.loading["Core"] = true

	m, _ = update(t, m, ActionErrorMsg{Action: ActionDeactivate, ModuleID: "Core", Error: errors.New("core module cannot be changed")})
	assert.False(t, m.IsLoading("Core"))
	assert.True(t, m.showError)
	assert.Equal(t, "Failed to deactivate Core: core module cannot be changed", m.errorMsg)
	assert.Equal(t, "core module cannot be changed", m.GetError("Core"))

	m, _ = press(t, m, "x")
	assert.False(t, m.showError)
}

func TestUpdate_UninstallNeedsConfirmation(t *testing.T) {
	svc := newFakeService(sampleRows()...)
	m := NewModel(sampleRows(), svc)
	m, _ = press(t, m, "3")

	m, cmd := press(t, m, "u")
	assert.Nil(t, cmd)
	assert.Equal(t, ViewConfirm, m.GetViewMode())
	assert.Equal(t, ActionUninstall, m.confirmAction)
	assert.Equal(t, "Shop", m.confirmModule)

	m, cmd = press(t, m, "n")
	assert.Nil(t, cmd)
	assert.Equal(t, ViewList, m.GetViewMode())
	assert.Empty(t, svc.calls)

	m, _ = press(t, m, "u")
	m, cmd = press(t, m, "y")
	require.NotNil(t, cmd)
	assert.Equal(t, ViewList, m.GetViewMode())
	assert.True(t, m.IsLoading("Shop"))

	msg := actionCmd(m.ctx, svc, ActionUninstall, "Shop")()
	m, cmd = update(t, m, msg)
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	_, _, ok := m.GetModuleByID("Shop")
	assert.False(t, ok)
	assert.Len(t, m.Rows(), 2)
}

func TestUpdate_ConfirmFromDetailReturnsToDetail(t *testing.T) {
	m := NewModel(sampleRows(), newFakeService(sampleRows()...))
	m, _ = press(t, m, "2")
	m, _ = press(t, m, "enter")

	m, _ = press(t, m, "u")
	assert.Equal(t, ViewConfirm, m.GetViewMode())

	m, _ = press(t, m, "esc")
	assert.Equal(t, ViewDetail, m.GetViewMode())
}

func TestUpdate_RefreshKey(t *testing.T) {
	m := NewModel(nil, newFakeService(sampleRows()...))

	m, cmd := press(t, m, "r")
	require.NotNil(t, cmd)
	assert.True(t, m.IsRefreshing())

	_, cmd = press(t, m, "r")
	assert.Nil(t, cmd, "refresh is not restarted while one is running")
}

func TestUpdate_HelpToggle(t *testing.T) {
	m := NewModel(sampleRows(), nil)

	m, _ = press(t, m, "?")
	assert.Equal(t, ViewHelp, m.GetViewMode())

	m, _ = press(t, m, "?")
	assert.Equal(t, ViewList, m.GetViewMode())
}

func TestUpdate_QuitCancelsOperations(t *testing.T) {
	m := NewModel(sampleRows(), newFakeService(sampleRows()...))
	m, _ = press(t, m, "a")
	require.True(t, m.IsLoading("Core"))

	m, cmd := press(t, m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.False(t, m.IsLoading("Core"))
}
