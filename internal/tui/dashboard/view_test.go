package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alexisbeaulieu97/modhost/internal/module"
)

func TestViewInitializing(t *testing.T) {
	m := NewModel(nil, nil)
	m.width = 0
	assert.Equal(t, "Initializing...", m.View())
}

func TestListViewRendersRows(t *testing.T) {
	m := NewModel(sampleRows(), nil, WithUnicode(false))
	m.width, m.height = 120, 40

	out := m.View()
	assert.Contains(t, out, "modhost")
	assert.Contains(t, out, "1 active")
	assert.Contains(t, out, "2 inactive")
	assert.Contains(t, out, "1/3 active")
	assert.Contains(t, out, "Blog")
	assert.Contains(t, out, "1.0.0")
	assert.Contains(t, out, "[core]")
	assert.Contains(t, out, "[on]")
	assert.Contains(t, out, "[--]")
}

func TestListViewEmptyState(t *testing.T) {
	m := NewModel(nil, nil)
	m.width, m.height = 120, 40

	assert.Contains(t, m.View(), "No modules discovered.")
}

func TestDetailViewShowsModule(t *testing.T) {
	rows := sampleRows()
	rows[1].Source = "archive:/tmp/Blog.zip"
	rows[1].Description = "A tiny blog"
	m := NewModel(rows, nil)
	m.width, m.height = 120, 40
	m.selectedID = "Blog"
	m.viewMode = ViewDetail

	out := m.View()
	assert.Contains(t, out, "archive:/tmp/Blog.zip")
	assert.Contains(t, out, "A tiny blog")
	assert.Contains(t, out, "inactive")
	assert.Contains(t, out, "Never")
}

func TestConfirmViewNamesModule(t *testing.T) {
	m := NewModel(sampleRows(), nil)
	m.width, m.height = 120, 40
	m.confirm(ActionUninstall, "Shop")

	out := m.View()
	assert.Contains(t, out, "Uninstall Shop?")
	assert.Contains(t, out, "published assets will be deleted")
}

func TestHelpViewListsBindings(t *testing.T) {
	m := NewModel(sampleRows(), nil)
	m.width, m.height = 120, 40
	m.viewMode = ViewHelp

	out := m.View()
	assert.Contains(t, out, "activate")
	assert.Contains(t, out, "uninstall")
	assert.Contains(t, out, "Press ? or Esc to close")
}

func TestStatusIcon(t *testing.T) {
	assert.Equal(t, "●", StatusIcon(module.StatusActive, true))
	assert.Equal(t, "[on]", StatusIcon(module.StatusActive, false))
	assert.Equal(t, "○", StatusIcon(module.StatusInactive, true))
	assert.Equal(t, "[--]", StatusIcon(module.StatusInactive, false))
}

func TestFormatInstalled(t *testing.T) {
	assert.Equal(t, "Never", FormatInstalled(time.Time{}))
	ts := time.Date(2026, 3, 1, 12, 30, 0, 0, time.Local)
	assert.Equal(t, "Mar 1, 2026 12:30", FormatInstalled(ts))
}
