package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Color palette
	primaryColor = lipgloss.Color("#7D56F4")
	accentColor  = lipgloss.Color("#00D7FF")
	warningColor = lipgloss.Color("#FFA500")
	errorColor   = lipgloss.Color("#FF4B4B")
	mutedColor   = lipgloss.Color("#666666")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Background(lipgloss.Color("#1A1A1A")).
			Padding(0, 1)

	projectScopeStyle = lipgloss.NewStyle().
				Foreground(accentColor).
				Italic(true)

	rowStyle = lipgloss.NewStyle()

	epicRowStyle = lipgloss.NewStyle().
			Bold(true)

	selectedRowStyle = lipgloss.NewStyle().
				Background(primaryColor).
				Foreground(lipgloss.Color("#FFFFFF")).
				Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)
