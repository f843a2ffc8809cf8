package config

import (
	"fmt"
	"time"

	"github.com/gateworks/periphmon/internal/device"
	"github.com/gateworks/periphmon/internal/engine"
)

// CurrentVersion is the config file format version
const CurrentVersion = 1

// Config represents the entire configuration file.
type Config struct {
	Version   int              `yaml:"version"`
	Discovery *DiscoveryConfig `yaml:"discovery,omitempty"`
	Devices   *DevicesConfig   `yaml:"devices,omitempty"`
	Polling   *PollingConfig   `yaml:"polling,omitempty"`
	Logging   *LoggingConfig   `yaml:"logging,omitempty"`
	Serve     *ServeConfig     `yaml:"serve,omitempty"`
}

// DiscoveryConfig selects where the device list comes from. File, when set,
// takes precedence over Command.
type DiscoveryConfig struct {
	Command string   `yaml:"command,omitempty"` // Property dump command (default /system/bin/getprop)
	Args    []string `yaml:"args,omitempty"`    // Extra arguments for Command
	File    string   `yaml:"file,omitempty"`    // Read property lines from a file instead
}

// DevicesConfig selects the device accessors.
type DevicesConfig struct {
	SysfsRoot string `yaml:"sysfs_root,omitempty"` // Root of the sysfs tree (default /sys)
	Simulate  bool   `yaml:"simulate"`             // Use the in-memory demo board
}

// PollingConfig tunes the background pollers. Intervals are in milliseconds;
// 0 disables polling of the category.
type PollingConfig struct {
	GPIOIntervalMS  int `yaml:"gpio_interval_ms"`
	HWMONIntervalMS int `yaml:"hwmon_interval_ms"`
	DispatchBuffer  int `yaml:"dispatch_buffer"` // Batches queued before pollers block
}

// LoggingConfig holds logging preferences.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error; empty is silent
	File  string `yaml:"file,omitempty"`  // Log file; the monitor needs one since it owns the terminal
}

// ServeConfig configures the read-only network feed.
type ServeConfig struct {
	Addr      string `yaml:"addr"`               // Listen address
	Advertise bool   `yaml:"advertise"`          // Announce the feed over mDNS
	Instance  string `yaml:"instance,omitempty"` // mDNS instance name (default: hostname)
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Version:   CurrentVersion,
		Discovery: &DiscoveryConfig{},
		Devices: &DevicesConfig{
			SysfsRoot: device.DefaultSysfsRoot,
		},
		Polling: &PollingConfig{
			GPIOIntervalMS:  int(device.GPIO.DefaultInterval() / time.Millisecond),
			HWMONIntervalMS: int(device.HWMON.DefaultInterval() / time.Millisecond),
			DispatchBuffer:  engine.DefaultDispatchBuffer,
		},
		Logging: &LoggingConfig{},
		Serve: &ServeConfig{
			Addr:      ":8080",
			Advertise: true,
		},
	}
}

// fillDefaults replaces missing sections with their defaults
func (c *Config) fillDefaults() {
	def := NewConfig()
	if c.Discovery == nil {
		c.Discovery = def.Discovery
	}
	if c.Devices == nil {
		c.Devices = def.Devices
	}
	if c.Devices.SysfsRoot == "" {
		c.Devices.SysfsRoot = def.Devices.SysfsRoot
	}
	if c.Polling == nil {
		c.Polling = def.Polling
	}
	if c.Logging == nil {
		c.Logging = def.Logging
	}
	if c.Serve == nil {
		c.Serve = def.Serve
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = def.Serve.Addr
	}
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	if c.Polling != nil {
		if c.Polling.GPIOIntervalMS < 0 {
			return fmt.Errorf("polling.gpio_interval_ms must not be negative: %d", c.Polling.GPIOIntervalMS)
		}
		if c.Polling.HWMONIntervalMS < 0 {
			return fmt.Errorf("polling.hwmon_interval_ms must not be negative: %d", c.Polling.HWMONIntervalMS)
		}
		if c.Polling.DispatchBuffer < 0 {
			return fmt.Errorf("polling.dispatch_buffer must not be negative: %d", c.Polling.DispatchBuffer)
		}
	}
	return nil
}

// Interval returns the poll interval of a category
func (c *Config) Interval(cat device.Category) time.Duration {
	if c.Polling == nil {
		return cat.DefaultInterval()
	}
	switch cat {
	case device.GPIO:
		return time.Duration(c.Polling.GPIOIntervalMS) * time.Millisecond
	case device.HWMON:
		return time.Duration(c.Polling.HWMONIntervalMS) * time.Millisecond
	default:
		return 0
	}
}

// EngineOptions converts the polling preferences into engine options
func (c *Config) EngineOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithInterval(device.GPIO, c.Interval(device.GPIO)),
		engine.WithInterval(device.HWMON, c.Interval(device.HWMON)),
	}
	if c.Polling != nil {
		opts = append(opts, engine.WithDispatchBuffer(c.Polling.DispatchBuffer))
	}
	return opts
}
