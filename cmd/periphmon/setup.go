package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gateworks/periphmon/internal/catalog"
	"github.com/gateworks/periphmon/internal/config"
	"github.com/gateworks/periphmon/internal/device"
	"github.com/gateworks/periphmon/internal/discovery"
	"github.com/gateworks/periphmon/internal/engine"
	"github.com/gateworks/periphmon/internal/logging"
)

// loadConfig reads the config file and applies the flags that were set on
// the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("simulate") {
		cfg.Devices.Simulate = simulate
	}
	if sourceFile != "" {
		cfg.Discovery.File = sourceFile
	}
	if sysfsRoot != "" {
		cfg.Devices.SysfsRoot = sysfsRoot
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFile != "" {
		cfg.Logging.File = logFile
	}
	return cfg, nil
}

// initLogging sets up the global logger. With interactive set, logs never
// go to the terminal: a level without a file logs next to the config file.
func initLogging(cfg *config.Config, interactive bool) error {
	file := cfg.Logging.File
	if interactive && cfg.Logging.Level != "" && file == "" {
		dir, err := config.GetConfigDir()
		if err != nil {
			return err
		}
		file = filepath.Join(dir, "periphmon.log")
	}
	return logging.Initialize(cfg.Logging.Level, file)
}

// board is the device side of a session: where the device list comes from
// and how the devices are read and written.
type board struct {
	source    discovery.Source
	accessors device.Accessors
	sim       *device.Sim // set in simulation mode
}

func openBoard(cfg *config.Config) *board {
	if cfg.Devices.Simulate {
		sim := device.NewDemoSim()
		return &board{
			source:    discovery.StaticSource(sim.PropertyLines()),
			accessors: sim.Accessors(),
			sim:       sim,
		}
	}

	b := &board{accessors: device.NewSysfs(cfg.Devices.SysfsRoot)}
	switch {
	case cfg.Discovery.File != "":
		b.source = &discovery.FileSource{Path: cfg.Discovery.File}
	case cfg.Discovery.Command != "":
		b.source = discovery.NewCommandSource(cfg.Discovery.Command, cfg.Discovery.Args...)
	default:
		b.source = discovery.NewCommandSource(discovery.DefaultPropertyCommand, cfg.Discovery.Args...)
	}
	return b
}

// discover builds the catalog and reads every device once. A partial
// discovery failure is returned as a warning alongside the catalog.
func (b *board) discover(ctx context.Context) (*catalog.Catalog, *catalog.DiscoveryError, error) {
	start := time.Now()
	cat, err := catalog.Build(ctx, b.source)

	var warning *catalog.DiscoveryError
	if err != nil {
		if !errors.As(err, &warning) || warning.Complete() || cat == nil {
			return nil, nil, fmt.Errorf("device discovery failed: %w", err)
		}
		logging.Warn("Device discovery incomplete", zap.Error(err))
	}

	counts := make(map[string]int)
	for _, g := range cat.Groups() {
		counts[g.Category.String()] = g.Len()
	}
	logging.LogDiscovery(fmt.Sprint(b.source), counts, time.Since(start))

	if cat.Len() == 0 {
		return nil, nil, fmt.Errorf("no devices found in %v", b.source)
	}

	ed := engine.NewEditor(b.accessors, logging.Named("editor"))
	if err := ed.RefreshAll(cat); err != nil {
		logging.Warn("Some devices could not be read", zap.Error(err))
	}
	return cat, warning, nil
}

// newEngine creates the engine for a catalog with the configured polling
func (b *board) newEngine(cfg *config.Config, cat *catalog.Catalog) *engine.Engine {
	opts := append(cfg.EngineOptions(), engine.WithLogger(logging.Named("engine")))
	return engine.New(cat, b.accessors, opts...)
}
