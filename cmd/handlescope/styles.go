package main

import "github.com/charmbracelet/lipgloss"

var (
	// Color palette
	primaryColor = lipgloss.Color("#7D56F4")
	accentColor  = lipgloss.Color("#00D7FF")
	successColor = lipgloss.Color("#04B575")
	warningColor = lipgloss.Color("#FFA500")
	errorColor   = lipgloss.Color("#FF4B4B")
	mutedColor   = lipgloss.Color("#666666")
	borderColor  = lipgloss.Color("#383838")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Background(lipgloss.Color("#1A1A1A")).
			Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	paneTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	promotedStyle = lipgloss.NewStyle().
			Foreground(successColor)

	severedStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	autoOnStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)
)
