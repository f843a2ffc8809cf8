// Periphmon monitors and edits the peripherals of an embedded Linux board.
//
// It discovers LEDs, GPIO lines, hardware monitor sensors and PWM channels
// from the board's property list, shows them in an interactive terminal
// monitor, polls GPIO levels and sensor readings in the background, and lets
// the user switch LEDs, drive GPIO outputs and tune PWM channels.
//
// Usage:
//
//	periphmon [command] [flags]
//
// Running without arguments launches the interactive monitor.
// See 'periphmon --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gateworks/periphmon/internal/logging"
	"github.com/gateworks/periphmon/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	simulate   bool
	sourceFile string
	sysfsRoot  string
	logLevel   string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "periphmon",
	Short: "Board peripheral monitor",
	Long: `An interactive monitor for the LEDs, GPIO lines, hardware monitor
sensors and PWM channels of an embedded Linux board.

Devices are discovered from the board's property list (getprop). GPIO levels
and sensor readings are polled in the background while they are on screen.

If no command is specified, the interactive monitor is launched.`,
	Version: version.Version,
	Example: `  # Monitor the board
  periphmon

  # Try it out on the built-in demo board
  periphmon --simulate

  # Discover devices from a saved property dump
  periphmon list --source-file props.txt`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMonitor,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/periphmon/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Use the built-in demo board instead of real hardware")
	rootCmd.PersistentFlags().StringVar(&sourceFile, "source-file", "", "Read property lines from a file instead of running getprop")
	rootCmd.PersistentFlags().StringVar(&sysfsRoot, "sysfs-root", "", "Root of the sysfs tree (default: /sys)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when empty")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "periphmon %s\n", version.Full())
	},
}
