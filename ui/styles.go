package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorCyan  = lipgloss.Color("#8BE9FD")
	colorWhite = lipgloss.Color("#F8F8F2")
	colorGray  = lipgloss.Color("#6272A4")
	colorGreen = lipgloss.Color("#50FA7B")
	colorYellow = lipgloss.Color("#F1FA8C")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle = lipgloss.NewStyle().Foreground(colorGray)
	valueStyle = lipgloss.NewStyle().Foreground(colorWhite)
	warnStyle  = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(colorGreen)
	helpStyle  = lipgloss.NewStyle().Foreground(colorGray)
	dimStyle   = lipgloss.NewStyle().Foreground(colorGray)
)
