package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gateworks/periphmon/internal/config"
	"github.com/gateworks/periphmon/internal/device"
)

// execute runs the root command with fresh flag values
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, simulate, sourceFile, sysfsRoot, logLevel, logFile = "", false, "", "", "", ""
	forceInit, serveAddr, noAdvertise = false, "", false
	for _, name := range []string{"simulate", "force"} {
		if f := rootCmd.PersistentFlags().Lookup(name); f != nil {
			f.Changed = false
		}
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListSimulated(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	out, err := execute(t, "list", "--simulate", "--config", cfgPath)
	if err != nil {
		t.Fatalf("list error = %v\n%s", err, out)
	}
	for _, want := range []string{"demo board", "LED (2)", "GPIO (4)", "HWMON (3)", "PWM (2)", "can_stby", "41250"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestListFromSourceFile(t *testing.T) {
	dir := t.TempDir()
	props := filepath.Join(dir, "props.txt")
	data := "[hw.led.user1]: [user1]\n[hw.hwmon.temp]: [temp]\n"
	if err := os.WriteFile(props, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	// an empty sysfs tree: devices are listed but cannot be read
	out, err := execute(t, "list",
		"--config", filepath.Join(dir, "config.yaml"),
		"--source-file", props,
		"--sysfs-root", filepath.Join(dir, "sys"),
	)
	if err != nil {
		t.Fatalf("list error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "user1") || !strings.Contains(out, "unavailable") {
		t.Errorf("unexpected output\n%s", out)
	}
	if strings.Contains(out, "GPIO") {
		t.Errorf("empty categories should not be listed\n%s", out)
	}
}

func TestListNoDevices(t *testing.T) {
	dir := t.TempDir()
	props := filepath.Join(dir, "props.txt")
	if err := os.WriteFile(props, []byte("[ro.serialno]: [GW5400]\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "list", "--config", filepath.Join(dir, "config.yaml"), "--source-file", props)
	if err == nil || !strings.Contains(err.Error(), "no devices found") {
		t.Errorf("error = %v, want no devices found", err)
	}
}

func TestConfigCommands(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "periphmon", "config.yaml")

	out, err := execute(t, "config", "path", "--config", cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != cfgPath {
		t.Errorf("config path = %q, want %q", strings.TrimSpace(out), cfgPath)
	}

	if out, err := execute(t, "config", "init", "--config", cfgPath); err != nil {
		t.Fatalf("config init error = %v\n%s", err, out)
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	// declining the overwrite prompt keeps the file
	out, err = execute(t, "config", "init", "--config", cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Cancelled") {
		t.Errorf("expected the overwrite to be cancelled\n%s", out)
	}

	out, err = execute(t, "config", "show", "--config", cfgPath, "--sysfs-root", "/tmp/sys")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "sysfs_root: /tmp/sys") {
		t.Errorf("flags should override the file\n%s", out)
	}
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.NewConfig()
	cfg.Devices.Simulate = true
	cfg.Logging.Level = "warn"
	if err := cfg.Save(cfgPath); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "config", "show", "--config", cfgPath, "--simulate=false", "--log-level", "debug")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "simulate: false") {
		t.Errorf("--simulate=false should override the file\n%s", out)
	}
	if !strings.Contains(out, "level: debug") {
		t.Errorf("--log-level should override the file\n%s", out)
	}
}

func TestOpenBoard(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Devices.Simulate = true
	if b := openBoard(cfg); b.sim == nil {
		t.Error("simulate should use the demo board")
	}

	cfg.Devices.Simulate = false
	cfg.Discovery.Command = "/usr/bin/getprop"
	b := openBoard(cfg)
	if b.sim != nil {
		t.Error("real board expected")
	}
	if !strings.Contains(fmtSource(b), "/usr/bin/getprop") {
		t.Errorf("source = %s, want the configured command", fmtSource(b))
	}

	cfg.Discovery.File = "props.txt"
	if got := fmtSource(openBoard(cfg)); !strings.Contains(got, "props.txt") {
		t.Errorf("source = %s, want the file to take precedence", got)
	}
}

func TestDiscoverReadsValues(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Devices.Simulate = true
	b := openBoard(cfg)

	cat, warning, err := b.discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if warning != nil {
		t.Errorf("warning = %v, want none", warning)
	}
	rec := cat.Find(device.PWM, "pwm2")
	if v, ok := rec.Value.(device.PWMValue); !ok || v.PeriodUS != 1000 {
		t.Errorf("pwm2 = %v, want the initial read", rec.Value)
	}

	eng := b.newEngine(cfg, cat)
	if eng.Interval(device.GPIO) != cfg.Interval(device.GPIO) {
		t.Errorf("GPIO interval = %v, want %v", eng.Interval(device.GPIO), cfg.Interval(device.GPIO))
	}
}

func fmtSource(b *board) string {
	if s, ok := b.source.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}
