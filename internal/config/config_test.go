package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gateworks/periphmon/internal/device"
)

func TestGetConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
	if !strings.Contains(configPath, "periphmon") {
		t.Errorf("GetConfigPath() = %v, should contain 'periphmon'", configPath)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.Version != 1 {
		t.Errorf("NewConfig().Version = %v, want 1", cfg.Version)
	}
	if got := cfg.Interval(device.GPIO); got != 500*time.Millisecond {
		t.Errorf("GPIO interval = %v, want 500ms", got)
	}
	if got := cfg.Interval(device.HWMON); got != time.Second {
		t.Errorf("HWMON interval = %v, want 1s", got)
	}
	if got := cfg.Interval(device.LED); got != 0 {
		t.Errorf("LED interval = %v, want 0", got)
	}
	if cfg.Devices.SysfsRoot != "/sys" {
		t.Errorf("SysfsRoot = %q, want /sys", cfg.Devices.SysfsRoot)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Polling.GPIOIntervalMS != 500 {
		t.Errorf("GPIOIntervalMS = %d, want 500", cfg.Polling.GPIOIntervalMS)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := NewConfig()
	cfg.Discovery.File = "/tmp/props.txt"
	cfg.Polling.HWMONIntervalMS = 250
	cfg.Logging.Level = "debug"
	cfg.Serve.Advertise = false

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be gone after Save()")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Discovery.File != "/tmp/props.txt" {
		t.Errorf("Discovery.File = %q", loaded.Discovery.File)
	}
	if loaded.Interval(device.HWMON) != 250*time.Millisecond {
		t.Errorf("HWMON interval = %v, want 250ms", loaded.Interval(device.HWMON))
	}
	if loaded.Logging.Level != "debug" || loaded.Serve.Advertise {
		t.Errorf("loaded = %+v %+v", loaded.Logging, loaded.Serve)
	}
}

func TestLoad_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "version: 1\npolling:\n  gpio_interval_ms: 100\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Interval(device.GPIO) != 100*time.Millisecond {
		t.Errorf("GPIO interval = %v, want 100ms", cfg.Interval(device.GPIO))
	}
	if cfg.Interval(device.HWMON) != 0 {
		t.Errorf("HWMON interval = %v, want 0 (section present, field omitted)", cfg.Interval(device.HWMON))
	}
	if cfg.Devices == nil || cfg.Devices.SysfsRoot != "/sys" {
		t.Errorf("Devices = %+v, want defaults", cfg.Devices)
	}
	if cfg.Serve.Addr != ":8080" {
		t.Errorf("Serve.Addr = %q, want :8080", cfg.Serve.Addr)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad version", "version: 2\n", "unsupported config version"},
		{"negative interval", "version: 1\npolling:\n  hwmon_interval_ms: -1\n", "hwmon_interval_ms"},
		{"not yaml", "version: [\n", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0600); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if _, err := CreateDefaultConfig(path, false); err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if _, err := CreateDefaultConfig(path, false); !errors.Is(err, ErrConfigExists) {
		t.Errorf("second CreateDefaultConfig() error = %v, want ErrConfigExists", err)
	}
	if _, err := CreateDefaultConfig(path, true); err != nil {
		t.Errorf("CreateDefaultConfig(force) error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# periphmon configuration file") {
		t.Errorf("config file should start with the header comment")
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := NewConfig()
	if n := len(cfg.EngineOptions()); n != 3 {
		t.Errorf("len(EngineOptions()) = %d, want 3", n)
	}
}
