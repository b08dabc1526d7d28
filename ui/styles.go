package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"})
	phaseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	markDoneStyle    = okStyle
	markFailStyle    = errorStyle
	markPlayStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	markPendingStyle = subtleStyle
)
