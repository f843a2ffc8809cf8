package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm displays a warning box and asks a yes/no question on in. Only an
// explicit "y" or "yes" answer confirms.
func Confirm(out io.Writer, in io.Reader, title string, warnings []string, question string) bool {
	width := GetTerminalWidth()

	lines := []string{
		"",
		lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true).
			Render(fmt.Sprintf("   %s  WARNING  ─  %s", WarningMarker, title)),
		"",
	}
	for _, warning := range warnings {
		lines = append(lines, lipgloss.NewStyle().Foreground(TextColor).Render("   • "+warning))
	}
	lines = append(lines, "")

	fmt.Fprintln(out, WarningBoxStyle(width).Render(strings.Join(lines, "\n")))
	fmt.Fprint(out, lipgloss.NewStyle().Foreground(WarningColor).Bold(true).Render(question+" [y/N]: "))

	input, err := bufio.NewReader(in).ReadString('\n')
	fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	}

	fmt.Fprintln(out, lipgloss.NewStyle().Foreground(MutedColor).Render("  Operation cancelled."))
	return false
}

// ConfirmOverwrite asks before replacing an existing configuration file
func ConfirmOverwrite(out io.Writer, in io.Reader, path string) bool {
	return Confirm(out, in,
		"CONFIG FILE EXISTS",
		[]string{
			path,
			"Your current settings will be replaced by the defaults",
		},
		"Overwrite?",
	)
}
