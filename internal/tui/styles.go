package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	BorderColor   = lipgloss.Color("#5A5A5A")
	AccentColor   = lipgloss.Color("#00D7FF")
	SelectedColor = lipgloss.Color("#FF6B6B")
	TextColor     = lipgloss.Color("#FFFFFF")
	SubtleColor   = lipgloss.Color("#888888")
	ErrorColor    = lipgloss.Color("#FF5555")
	SuccessColor  = lipgloss.Color("#50FA7B")
	WarningColor  = lipgloss.Color("#FFB86C")
)

var (
	SelectedItemStyle = lipgloss.NewStyle().
				Background(SelectedColor).
				Foreground(lipgloss.Color("#FFFFFF")).
				Bold(true)

	ItemStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	SubtleItemStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(AccentColor).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	DataTypeStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	TableCellStyle = lipgloss.NewStyle().
			Padding(0, 1)
)
