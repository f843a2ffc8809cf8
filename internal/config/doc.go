// Package config provides user configuration management for periphmon.
//
// This package manages a YAML configuration file holding the discovery
// source, device backend, poll intervals, logging and network feed settings.
// Every field has a default, so the file is optional.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/periphmon/config.yaml or $HOME/.config/periphmon/config.yaml
//   - macOS: $HOME/.config/periphmon/config.yaml
//   - Windows: %LOCALAPPDATA%\periphmon\config.yaml
//
// # Example
//
//	version: 1
//	discovery:
//	  command: /system/bin/getprop
//	devices:
//	  sysfs_root: /sys
//	  simulate: false
//	polling:
//	  gpio_interval_ms: 500
//	  hwmon_interval_ms: 1000
//	  dispatch_buffer: 64
//	logging:
//	  level: info
//	  file: /data/local/tmp/periphmon.log
//	serve:
//	  addr: :8080
//	  advertise: true
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	eng := engine.New(cat, acc, cfg.EngineOptions()...)
//
// Save writes atomically through a temporary file and rename.
package config
