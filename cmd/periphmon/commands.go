package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gateworks/periphmon/internal/catalog"
	"github.com/gateworks/periphmon/internal/config"
	"github.com/gateworks/periphmon/internal/discovery"
	"github.com/gateworks/periphmon/internal/logging"
	"github.com/gateworks/periphmon/internal/server"
	"github.com/gateworks/periphmon/internal/tui"
	"github.com/gateworks/periphmon/internal/ui"
	"github.com/gateworks/periphmon/internal/urls"
	"github.com/gateworks/periphmon/internal/version"
)

// Command flags
var (
	scanTimeout int
	serveAddr   string
	noAdvertise bool
	forceInit   bool
)

func init() {
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(configCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&noAdvertise, "no-advertise", false, "Do not announce the feed over mDNS")
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan timeout in seconds")
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file without asking")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
}

// printDiscoveryWarning reports categories that could not be discovered
func printDiscoveryWarning(p *ui.Printer, warning *catalog.DiscoveryError) {
	if warning == nil {
		return
	}
	details := make([]ui.Param, 0, len(warning.Categories))
	for _, c := range warning.Categories {
		details = append(details, ui.Param{Key: c.String(), Value: "not discovered"})
	}
	p.PrintWarning("Device discovery incomplete", details...)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Launch the interactive monitor",
	Long: `Launch the interactive device monitor.

Keys:
  ↑/↓ or j/k    move            ←/→ or h/l    collapse/expand a category
  enter/space   toggle (LED on/off, GPIO level, PWM enable)
  d             GPIO direction  t             next LED trigger
  +/-           PWM duty cycle  p             PWM period (µs)
  q             quit

Collapsing a category pauses its background polling.`,
	Example: `  periphmon monitor
  periphmon monitor --simulate
  periphmon monitor --log-level debug --log-file /tmp/periphmon.log`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(cfg, true); err != nil {
		return err
	}

	b := openBoard(cfg)
	cat, warning, err := b.discover(cmd.Context())
	if err != nil {
		return err
	}
	printDiscoveryWarning(ui.NewPrinter(cmd.ErrOrStderr()), warning)

	return tui.Run(cmd.Context(), cat, b.newEngine(cfg, cat))
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List devices and their current values",
	Long: `Discover the devices of the board, read each one once and print them
grouped by category.`,
	Example: `  periphmon list
  periphmon list --source-file props.txt --sysfs-root /tmp/sys`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(cfg, false); err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	b := openBoard(cfg)

	source := fmt.Sprint(b.source)
	if b.sim != nil {
		source = "demo board"
	}
	p.PrintHeader("Board Devices", "periphmon list", ui.Param{Key: "Source", Value: source})

	cat, warning, err := b.discover(cmd.Context())
	if err != nil {
		p.PrintError("Device discovery failed", err, []string{
			"Check that the property command runs: " + discovery.DefaultPropertyCommand,
			"Or read a saved dump: --source-file props.txt",
			"Or try the demo board: --simulate",
			"Line formats: " + urls.PropertyFormat,
		})
		return err
	}
	printDiscoveryWarning(p, warning)
	p.PrintCatalog(cat)

	unread := 0
	for _, rec := range cat.Records() {
		if rec.Value == nil {
			unread++
		}
	}
	if unread > 0 {
		p.PrintWarning(fmt.Sprintf("%d device(s) could not be read", unread),
			ui.Param{Key: "Help", Value: urls.Troubleshooting})
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a read-only live feed of the devices",
	Long: `Poll the devices and stream their values to WebSocket clients.

Endpoints:
  GET /ws           live feed (snapshot, then one update per poll)
  GET /api/devices  current snapshot as JSON
  GET /healthz      status

The feed never writes to devices. Unless disabled, it is announced over mDNS
so that 'periphmon scan' can find it.`,
	Example: `  periphmon serve
  periphmon serve --addr :9000 --no-advertise`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Serve.Addr = serveAddr
	}
	if noAdvertise {
		cfg.Serve.Advertise = false
	}
	if err := initLogging(cfg, false); err != nil {
		return err
	}

	b := openBoard(cfg)
	cat, warning, err := b.discover(cmd.Context())
	if err != nil {
		return err
	}
	p := ui.NewPrinter(cmd.OutOrStdout())
	printDiscoveryWarning(p, warning)

	ln, err := net.Listen("tcp", cfg.Serve.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Serve.Addr, err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	p.PrintSuccess("Serving device feed",
		ui.Param{Key: "Address", Value: ln.Addr().String()},
		ui.Param{Key: "Devices", Value: strconv.Itoa(cat.Len())},
	)

	if cfg.Serve.Advertise {
		instance := cfg.Serve.Instance
		if instance == "" {
			instance, _ = os.Hostname()
		}
		zc, err := discovery.Advertise(instance, port, map[string]string{
			"version": version.Version,
			"devices": strconv.Itoa(cat.Len()),
		})
		if err != nil {
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			defer zc.Shutdown()
			logging.Info("Feed advertised", zap.String("instance", instance), zap.Int("port", port))
		}
	}

	srv := server.New(&server.Config{Addr: cfg.Serve.Addr}, cat, b.newEngine(cfg, cat))
	return srv.Serve(cmd.Context(), ln)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find device feeds on the network",
	Long: `Browse mDNS for boards running 'periphmon serve' and print their feed URLs.`,
	Example: `  periphmon scan
  periphmon scan --timeout 10`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(cfg, false); err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("Scanning for Monitors", "periphmon scan",
		ui.Param{Key: "Service", Value: discovery.ServiceType},
		ui.Param{Key: "Timeout", Value: fmt.Sprintf("%ds", scanTimeout)},
	)

	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second
	monitors, err := scanner.ScanForMonitorsWithContext(cmd.Context())
	if err != nil {
		p.PrintError("Scan failed", err, []string{
			"Check that multicast is allowed on this network",
			"Try increasing --timeout",
		})
		return err
	}
	p.PrintMonitors(monitors)
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.CreateDefaultConfig(configPath, forceInit)
		if errors.Is(err, config.ErrConfigExists) {
			if !ui.ConfirmOverwrite(cmd.OutOrStdout(), cmd.InOrStdin(), path) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			path, err = config.CreateDefaultConfig(configPath, true)
		}
		if err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Configuration written", ui.Param{Key: "Path", Value: path})
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.GetConfigPath(); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  `Print the configuration after applying defaults and command-line flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}
