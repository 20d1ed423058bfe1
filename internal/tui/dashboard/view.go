package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/modhost/internal/module"
	"github.com/alexisbeaulieu97/modhost/internal/tui/components"
)

// View renders the current model state
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	switch m.viewMode {
	case ViewDetail:
		return m.renderDetailView()
	case ViewHelp:
		return m.renderHelpView()
	case ViewConfirm:
		return m.renderConfirmView()
	default:
		return m.renderListView()
	}
}

// renderListView renders the main module list view
func (m Model) renderListView() string {
	var content strings.Builder

	content.WriteString(m.renderHeader())
	content.WriteString("\n")

	if m.showError {
		content.WriteString(errorBannerStyle.Render(m.errorMsg))
		content.WriteString("\n")
	}

	content.WriteString(m.renderModuleList())
	content.WriteString("\n")
	content.WriteString(footerStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return content.String()
}

// renderHeader renders the title and status summary
func (m Model) renderHeader() string {
	title := titleStyle.Render("modhost")

	counts := m.CountByStatus()
	summary := fmt.Sprintf("%s %d active  %s %d inactive",
		GetStatusStyle(module.StatusActive).Render(StatusIcon(module.StatusActive, m.useUnicode)), counts[module.StatusActive],
		GetStatusStyle(module.StatusInactive).Render(StatusIcon(module.StatusInactive, m.useUnicode)), counts[module.StatusInactive],
	)
	if m.refreshing {
		summary += "  " + progressStyle.Render(m.spinner.View()+" refreshing")
	}
	gauge := components.NewGauge(len(m.rows)).View(counts[module.StatusActive])

	return headerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, summary, gauge))
}

// renderModuleList renders the visible window of rows
func (m Model) renderModuleList() string {
	if len(m.rows) == 0 {
		return emptyStateStyle.Render("No modules discovered.\n\nInstall one with:\n  modhost module install <archive.zip>")
	}

	visible := m.height - 10
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := start + visible
	if end > len(m.rows) {
		end = len(m.rows)
	}

	items := make([]string, 0, end-start+2)
	if start > 0 {
		items = append(items, lipgloss.NewStyle().Foreground(mutedColor).Render("▲ More above"))
	}
	for i := start; i < end; i++ {
		items = append(items, m.renderModuleItem(i, i == m.cursor))
	}
	if end < len(m.rows) {
		items = append(items, lipgloss.NewStyle().Foreground(mutedColor).Render("▼ More below"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

// renderModuleItem renders a single module row
func (m Model) renderModuleItem(index int, selected bool) string {
	r := m.rows[index]

	icon := StatusIcon(r.Status, m.useUnicode)
	if m.IsLoading(r.ID) {
		icon = m.spinner.View()
	}

	line := fmt.Sprintf("%s %d. %s", GetStatusStyle(r.Status).Render(icon), index+1, lipgloss.NewStyle().Bold(true).Render(r.ID))
	if r.Version != "" {
		line += " " + r.Version
	}
	if r.Core {
		line += " " + coreBadgeStyle.Render("[core]")
	}

	meta := fmt.Sprintf("   %s · priority %d · %s", r.Status, r.Priority, r.State)
	if msg := m.GetError(r.ID); msg != "" {
		meta += " · " + lipgloss.NewStyle().Foreground(errorColor).Render("last action failed")
	}

	content := lipgloss.JoinVertical(lipgloss.Left, line, lipgloss.NewStyle().Foreground(mutedColor).Render(meta))
	if selected {
		return selectedItemStyle.Render(content)
	}
	return itemStyle.Render(content)
}

// renderDetailView renders the selected module's details
func (m Model) renderDetailView() string {
	r, _, ok := m.GetModuleByID(m.selectedID)
	if !ok {
		return "Module not found"
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render(r.Title()))
	content.WriteString("\n")

	if m.showError {
		content.WriteString(errorBannerStyle.Render(m.errorMsg))
		content.WriteString("\n")
	}

	fields := [][2]string{
		{"ID", r.ID},
		{"Status", GetStatusStyle(r.Status).Render(StatusIcon(r.Status, m.useUnicode) + " " + string(r.Status))},
		{"Version", valueOr(r.Version, "-")},
		{"Priority", fmt.Sprintf("%d", r.Priority)},
		{"Core", fmt.Sprintf("%t", r.Core)},
		{"State", r.State},
		{"Source", valueOr(r.Source, "-")},
		{"Installed", FormatInstalled(r.InstalledAt)},
	}
	lines := make([]string, 0, len(fields)+2)
	for _, f := range fields {
		lines = append(lines, detailLabelStyle.Render(f[0])+detailValueStyle.Render(f[1]))
	}
	if r.Description != "" {
		lines = append(lines, "", detailValueStyle.Render(r.Description))
	}
	content.WriteString(detailSectionStyle.Render(strings.Join(lines, "\n")))
	content.WriteString("\n")

	if op, ok := m.operations[r.ID]; ok {
		content.WriteString(infoBannerStyle.Render(fmt.Sprintf("%s %s in progress...", m.spinner.View(), op.Action)))
		content.WriteString("\n")
	}

	footer := footerStyle.Render(m.help.ShortHelpView([]key.Binding{
		m.keys.Activate, m.keys.Deactivate, m.keys.Uninstall, m.keys.Back, m.keys.Help, m.keys.Quit,
	}))
	return lipgloss.JoinVertical(lipgloss.Left, content.String(), footer)
}

// renderHelpView renders the help overlay
func (m Model) renderHelpView() string {
	h := m.help
	h.ShowAll = true
	h.Styles.FullKey = helpKeyStyle
	h.Styles.FullDesc = helpDescStyle

	legend := fmt.Sprintf("%s active    %s inactive    %s cannot be deactivated or removed",
		StatusIcon(module.StatusActive, m.useUnicode),
		StatusIcon(module.StatusInactive, m.useUnicode),
		coreBadgeStyle.Render("[core]"))

	body := lipgloss.JoinVertical(lipgloss.Left,
		helpTitleStyle.Render("Keyboard shortcuts"),
		h.View(m.keys),
		"",
		legend,
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		helpBoxStyle.Render(body),
		footerStyle.Render("Press ? or Esc to close"),
	)
}

// renderConfirmView renders a confirmation dialog
func (m Model) renderConfirmView() string {
	verb := string(m.confirmAction)
	if verb != "" {
		verb = strings.ToUpper(verb[:1]) + verb[1:]
	}
	message := fmt.Sprintf("%s %s?", verb, m.confirmModule)
	if m.confirmAction == ActionUninstall {
		message += "\n\nIts code and published assets will be deleted."
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Center,
		confirmButtonYesStyle.Render("y  Yes"),
		confirmButtonNoStyle.Render("n  No"),
	)
	dialog := confirmBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		confirmTitleStyle.Render("Confirm"),
		message,
		"",
		buttons,
	))

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(dialog)
}

// FormatInstalled formats an install timestamp for display
func FormatInstalled(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.Local().Format("Jan 2, 2006 15:04")
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
