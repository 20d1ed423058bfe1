// Package components holds small view pieces shared by the TUI screens.
package components

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Gauge renders how many of the known modules are active.
type Gauge struct {
	bar   progress.Model
	total int
}

// NewGauge creates a gauge for total modules.
func NewGauge(total int) Gauge {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 20
	return Gauge{bar: bar, total: total}
}

// Total is the module count the gauge was built for.
func (g Gauge) Total() int { return g.total }

// View renders the bar for active modules. Counts above total show as a
// full bar with the real numbers.
func (g Gauge) View(active int) string {
	ratio := 0.0
	if g.total > 0 {
		ratio = math.Min(1.0, float64(active)/float64(g.total))
	}
	label := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d/%d active", active, g.total))
	return lipgloss.JoinHorizontal(lipgloss.Left, g.bar.ViewAs(ratio), " ", label)
}
