// Package ui provides styled terminal output for the one-shot periphmon
// commands (list, scan, config, version).
//
// Unlike the interactive monitor in package tui, these components render
// once and exit. They are built on Lipgloss and size themselves to the
// terminal through golang.org/x/term.
//
//   - Header: Command banner showing the operation and its parameters
//   - Result: Success/failure/warning boxes with details
//   - Printer: Writes the above, device listings and monitor lists to a writer
//   - Confirm: Yes/no prompt guarding destructive operations
//
// Example:
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Devices", "periphmon list",
//	    ui.Param{Key: "Source", Value: "/system/bin/getprop"},
//	)
//	p.PrintCatalog(cat)
//
// Logging is silent unless PERIPHMON_LOG_LEVEL is set, so the styled output
// is displayed cleanly.
package ui
