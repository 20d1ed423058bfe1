package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/modhost/internal/module"
)

// Palette. Adaptive colours keep the dashboard readable on light terminals.
var (
	primaryColor    = lipgloss.AdaptiveColor{Light: "25", Dark: "75"}
	successColor    = lipgloss.AdaptiveColor{Light: "28", Dark: "42"}
	warningColor    = lipgloss.AdaptiveColor{Light: "130", Dark: "214"}
	errorColor      = lipgloss.AdaptiveColor{Light: "124", Dark: "203"}
	mutedColor      = lipgloss.AdaptiveColor{Light: "244", Dark: "245"}
	textColor       = lipgloss.AdaptiveColor{Light: "236", Dark: "252"}
	panelBackground = lipgloss.AdaptiveColor{Light: "255", Dark: "235"}
)

func bold(c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(c)
}

func boxed(border lipgloss.Border, c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().BorderStyle(border).BorderForeground(c)
}

func banner(fg lipgloss.TerminalColor, bg lipgloss.Color, border lipgloss.Border) lipgloss.Style {
	return boxed(border, fg).Foreground(fg).Background(bg).Padding(0, 1).MarginBottom(1)
}

var (
	titleStyle = bold(primaryColor).Padding(0, 1)

	headerStyle = boxed(lipgloss.NormalBorder(), mutedColor).
			BorderBottom(true).BorderTop(false).BorderLeft(false).BorderRight(false).
			MarginBottom(1)

	footerStyle = boxed(lipgloss.NormalBorder(), mutedColor).
			BorderTop(true).BorderBottom(false).BorderLeft(false).BorderRight(false).
			Foreground(mutedColor).
			MarginTop(1)

	itemStyle         = lipgloss.NewStyle().Padding(0, 2)
	selectedItemStyle = boxed(lipgloss.ThickBorder(), primaryColor).
				BorderLeft(true).BorderTop(false).BorderBottom(false).BorderRight(false).
				Padding(0, 1).
				Foreground(textColor)

	statusActiveStyle   = bold(successColor)
	statusInactiveStyle = lipgloss.NewStyle().Foreground(mutedColor)
	coreBadgeStyle      = bold(warningColor)

	errorBannerStyle = banner(errorColor, lipgloss.Color("52"), lipgloss.ThickBorder()).Bold(true)
	infoBannerStyle  = banner(primaryColor, lipgloss.Color("236"), lipgloss.NormalBorder())

	helpTitleStyle = bold(primaryColor).MarginBottom(1)
	helpKeyStyle   = bold(primaryColor).Width(12)
	helpDescStyle  = lipgloss.NewStyle().Foreground(textColor)
	helpBoxStyle   = boxed(lipgloss.RoundedBorder(), primaryColor).
			Background(panelBackground).
			Padding(1, 3)

	confirmBoxStyle = boxed(lipgloss.DoubleBorder(), warningColor).
			Background(panelBackground).
			Padding(1, 3).
			Align(lipgloss.Center)
	confirmTitleStyle     = bold(warningColor).MarginBottom(1)
	confirmButtonYesStyle = boxed(lipgloss.RoundedBorder(), successColor).Foreground(successColor).Bold(true).Padding(0, 2).Margin(0, 1)
	confirmButtonNoStyle  = boxed(lipgloss.RoundedBorder(), errorColor).Foreground(errorColor).Bold(true).Padding(0, 2).Margin(0, 1)

	detailLabelStyle   = bold(mutedColor).Width(12)
	detailValueStyle   = lipgloss.NewStyle().Foreground(textColor)
	detailSectionStyle = boxed(lipgloss.RoundedBorder(), mutedColor).Padding(0, 2).MarginTop(1)

	emptyStateStyle = lipgloss.NewStyle().Foreground(mutedColor).Italic(true).Padding(2, 4)

	spinnerStyle  = lipgloss.NewStyle().Foreground(primaryColor)
	progressStyle = bold(primaryColor)
)

// GetStatusStyle returns the style for a module status.
func GetStatusStyle(status module.Status) lipgloss.Style {
	if status == module.StatusActive {
		return statusActiveStyle
	}
	return statusInactiveStyle
}

// StatusIcon returns the marker drawn next to a module. Fallback icons are
// plain ASCII for terminals without unicode support.
func StatusIcon(status module.Status, unicode bool) string {
	switch {
	case status == module.StatusActive && unicode:
		return "●"
	case status == module.StatusActive:
		return "[on]"
	case unicode:
		return "○"
	default:
		return "[--]"
	}
}

// ApplyMaxWidth fits the row, header and footer styles to the terminal width.
func ApplyMaxWidth(width int) {
	itemStyle = itemStyle.MaxWidth(width - 4)
	selectedItemStyle = selectedItemStyle.MaxWidth(width - 4)
	headerStyle = headerStyle.Width(width - 2)
	footerStyle = footerStyle.Width(width - 2)
}
