package components

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewGauge(t *testing.T) {
	t.Parallel()

	t.Run("keeps the total", func(t *testing.T) {
		t.Parallel()
		g := NewGauge(3)
		require.Equal(t, 3, g.Total())
	})

	t.Run("accepts an empty host", func(t *testing.T) {
		t.Parallel()
		g := NewGauge(0)
		require.Equal(t, 0, g.Total())
	})
}

func TestGaugeView(t *testing.T) {
	t.Parallel()

	t.Run("renders with zero total", func(t *testing.T) {
		t.Parallel()
		require.Contains(t, NewGauge(0).View(0), "0/0 active")
	})

	t.Run("renders partial activation", func(t *testing.T) {
		t.Parallel()
		require.Contains(t, NewGauge(3).View(1), "1/3 active")
	})

	t.Run("shows real counts above total", func(t *testing.T) {
		t.Parallel()
		require.Contains(t, NewGauge(2).View(5), "5/2 active")
	})

	t.Run("bar takes up space", func(t *testing.T) {
		t.Parallel()
		view := NewGauge(4).View(2)
		label := "2/4 active"
		require.Contains(t, view, label)
		require.Greater(t, len(strings.TrimSpace(view)), len(label))
	})
}
