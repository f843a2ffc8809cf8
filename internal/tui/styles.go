package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/gateworks/periphmon/internal/urls"
	"github.com/gateworks/periphmon/internal/version"
)

// AppName is shown in the header
const AppName = "PERIPHMON"

// AppVersion returns the application version from the centralized version package
func AppVersion() string {
	return version.Version
}

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 60 // Minimum supported terminal width
	DefaultWidth     = 80 // Used until the first WindowSizeMsg
	DefaultHeight    = 24
	chromeHeight     = 9 // Outer border, header, footer, status and input lines
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF5555") // Red

	TextColor   = lipgloss.Color("#FFFFFF") // White
	SubtleColor = lipgloss.Color("#626262") // Gray
	BorderColor = lipgloss.Color("#7D56F4") // Purple (same as primary)
)

// Common styles
var (
	// Category header rows
	CategoryStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	// Paused categories are rendered dimmed
	CategoryPausedStyle = lipgloss.NewStyle().
				Foreground(SubtleColor).
				Bold(true)

	// Device name column
	NameStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Width(16)

	// Device value column
	ValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// Active outputs, enabled PWM channels, LEDs that are on
	ActiveValueStyle = lipgloss.NewStyle().
				Foreground(SecondaryColor).
				Bold(true)

	// Value not read yet or unreadable
	UnknownValueStyle = lipgloss.NewStyle().
				Foreground(SubtleColor).
				Italic(true)

	// Cursor marker and selected row
	SelectedStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	// Hints such as "output-only" or "read-only"
	HintStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	// Status line notices
	NoticeStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	// Status line errors
	NoticeErrorStyle = lipgloss.NewStyle().
				Foreground(ErrorColor).
				Bold(true)

	// Row that failed to render
	RowErrorStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// Period entry prompt
	PromptStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)
)

// BuildHeaderContent creates header content with app name and GitHub URL
func BuildHeaderContent() string {
	left := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(AppName + " v" + AppVersion())

	right := lipgloss.NewStyle().
		Foreground(SubtleColor).
		Render(urls.Repository)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

// RenderApplicationContainer wraps the monitor content with the application
// header, a footer holding help text, and an outer border filling the
// terminal.
func RenderApplicationContainer(content string, footerText string, terminalWidth int, terminalHeight int) string {
	if terminalWidth < MinTerminalWidth {
		terminalWidth = MinTerminalWidth
	}

	headerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(terminalWidth-4).
		Padding(0, 1)

	footerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Width(terminalWidth-4).
		Padding(0, 1)

	contentStyle := lipgloss.NewStyle().
		Width(terminalWidth-4).
		Padding(0, 1)

	inner := lipgloss.JoinVertical(
		lipgloss.Left,
		headerStyle.Render(BuildHeaderContent()),
		contentStyle.Render(content),
		footerStyle.Render(lipgloss.NewStyle().Foreground(SubtleColor).Render(footerText)),
	)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(terminalWidth - 2).
		Height(terminalHeight - 2).
		AlignVertical(lipgloss.Top).
		Render(inner)

	return lipgloss.Place(terminalWidth, terminalHeight, lipgloss.Left, lipgloss.Top, bordered)
}
