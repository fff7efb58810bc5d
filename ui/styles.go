package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/disktriage/model"
)

var (
	// Colors
	colorRed     = lipgloss.Color("#FF5555")
	colorYellow  = lipgloss.Color("#F1FA8C")
	colorGreen   = lipgloss.Color("#50FA7B")
	colorCyan    = lipgloss.Color("#8BE9FD")
	colorMagenta = lipgloss.Color("#FF79C6")
	colorOrange  = lipgloss.Color("#FFB86C")
	colorWhite   = lipgloss.Color("#F8F8F2")
	colorGray    = lipgloss.Color("#6272A4")
	colorPanel   = lipgloss.Color("#44475A")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle    = lipgloss.NewStyle().Foreground(colorGray)
	valueStyle    = lipgloss.NewStyle().Foreground(colorWhite)
	warnStyle     = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	critStyle     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(colorGreen)
	headerStyle   = lipgloss.NewStyle().Foreground(colorMagenta).Bold(true)
	selectedStyle = lipgloss.NewStyle().Background(colorPanel).Foreground(colorWhite)
	helpStyle     = lipgloss.NewStyle().Foreground(colorGray)
	dimStyle      = lipgloss.NewStyle().Foreground(colorGray)
	orangeStyle   = lipgloss.NewStyle().Foreground(colorOrange)
)

// recordStyle picks a severity color for a record.
func recordStyle(r *model.DiskErrorRecord) lipgloss.Style {
	switch {
	case r.Health.Failing() || r.CountKind(model.KindSector) > 0:
		return critStyle
	case len(r.ErrorEvents) > 0:
		return warnStyle
	default:
		return okStyle
	}
}

func eventStyle(k model.EventKind) lipgloss.Style {
	switch k {
	case model.KindSector:
		return critStyle
	case model.KindBlock:
		return warnStyle
	default:
		return orangeStyle
	}
}
