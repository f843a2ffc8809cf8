package device

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// DefaultSysfsRoot is the mount point of sysfs on Linux
const DefaultSysfsRoot = "/sys"

const (
	ledClass   = "class/leds"
	gpioClass  = "class/gpio"
	hwmonClass = "class/hwmon"
	pwmClass   = "class/pwm"
)

// NewSysfs returns accessors backed by the Linux sysfs class interfaces
// under root (normally "/sys").
func NewSysfs(root string) Accessors {
	if root == "" {
		root = DefaultSysfsRoot
	}
	return Accessors{
		LED:   &sysfsLED{dir: filepath.Join(root, ledClass)},
		GPIO:  &sysfsGPIO{dir: filepath.Join(root, gpioClass)},
		HWMON: &sysfsHWMON{dir: filepath.Join(root, hwmonClass)},
		PWM:   &sysfsPWM{dir: filepath.Join(root, pwmClass)},
	}
}

// sysfsLED implements LEDAccessor using /sys/class/leds/<name>
type sysfsLED struct {
	dir string
}

func (s *sysfsLED) path(name, attr string) (string, error) {
	ledPath := filepath.Join(s.dir, name)
	if _, err := os.Stat(ledPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: LED %q not found at %s", ErrNotFound, name, ledPath)
	}
	return filepath.Join(ledPath, attr), nil
}

func (s *sysfsLED) Value(name string) (bool, error) {
	p, err := s.path(name, "brightness")
	if err != nil {
		return false, err
	}
	v, err := readInt(p)
	if err != nil {
		return false, err
	}
	return v > 0, nil
}

func (s *sysfsLED) SetValue(name string, on bool) error {
	p, err := s.path(name, "brightness")
	if err != nil {
		return err
	}
	brightness := 0
	if on {
		// Full brightness; fall back to 1 when max_brightness is unreadable
		brightness = 1
		if maxPath, err := s.path(name, "max_brightness"); err == nil {
			if v, err := readInt(maxPath); err == nil && v > 0 {
				brightness = v
			}
		}
	}
	return writeString(p, strconv.Itoa(brightness))
}

func (s *sysfsLED) Trigger(name string) (string, error) {
	current, _, err := s.readTriggers(name)
	return current, err
}

func (s *sysfsLED) SetTrigger(name, trigger string) error {
	p, err := s.path(name, "trigger")
	if err != nil {
		return err
	}
	return writeString(p, trigger)
}

func (s *sysfsLED) Triggers(name string) ([]string, error) {
	_, all, err := s.readTriggers(name)
	return all, err
}

// readTriggers parses the trigger attribute, which lists every available
// trigger with the active one in brackets: "none [timer] heartbeat".
func (s *sysfsLED) readTriggers(name string) (string, []string, error) {
	p, err := s.path(name, "trigger")
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read LED trigger: %w", err)
	}
	return ParseTriggers(string(data))
}

// ParseTriggers splits an LED trigger attribute into the active trigger and
// the list of all triggers.
func ParseTriggers(raw string) (string, []string, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty trigger list")
	}
	current := ""
	all := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.HasPrefix(f, "[") && strings.HasSuffix(f, "]") {
			f = strings.TrimSuffix(strings.TrimPrefix(f, "["), "]")
			current = f
		}
		all = append(all, f)
	}
	if current == "" {
		current = all[0]
	}
	return current, all, nil
}

// sysfsGPIO implements GPIOAccessor using /sys/class/gpio/<name>. Board
// support packages export named links (e.g. "dio0", "can_stby").
type sysfsGPIO struct {
	dir string
}

func (s *sysfsGPIO) path(name, attr string) (string, error) {
	gpioPath := filepath.Join(s.dir, name)
	if _, err := os.Stat(gpioPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: GPIO %q not found at %s", ErrNotFound, name, gpioPath)
	}
	return filepath.Join(gpioPath, attr), nil
}

func (s *sysfsGPIO) Value(name string) (int, error) {
	p, err := s.path(name, "value")
	if err != nil {
		return 0, err
	}
	return readInt(p)
}

func (s *sysfsGPIO) SetValue(name string, level int) error {
	p, err := s.path(name, "value")
	if err != nil {
		return err
	}
	if level != 0 {
		level = 1
	}
	return writeString(p, strconv.Itoa(level))
}

func (s *sysfsGPIO) Direction(name string) (Direction, error) {
	p, err := s.path(name, "direction")
	if err != nil {
		return In, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return In, fmt.Errorf("failed to read GPIO direction: %w", err)
	}
	return ParseDirection(string(data))
}

func (s *sysfsGPIO) SetDirection(name string, dir Direction) error {
	p, err := s.path(name, "direction")
	if err != nil {
		return err
	}
	return writeString(p, strings.ToLower(dir.String()))
}

// sysfsHWMON implements HWMONAccessor by searching every
// /sys/class/hwmon/hwmonN directory for an attribute named <name> or
// <name>_input. Resolved paths are cached since the hwmon layout is fixed
// after boot.
type sysfsHWMON struct {
	dir   string
	mu    sync.Mutex
	paths map[string]string
}

func (s *sysfsHWMON) resolve(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.paths[name]; ok {
		return p, nil
	}

	chips, err := filepath.Glob(filepath.Join(s.dir, "*"))
	if err != nil {
		return "", err
	}
	sort.Strings(chips)

	for _, chip := range chips {
		for _, attr := range []string{name, name + "_input"} {
			p := filepath.Join(chip, attr)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				if s.paths == nil {
					s.paths = make(map[string]string)
				}
				s.paths[name] = p
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("%w: hwmon attribute %q not found under %s", ErrNotFound, name, s.dir)
}

func (s *sysfsHWMON) Value(name string) (int, error) {
	p, err := s.resolve(name)
	if err != nil {
		return 0, err
	}
	return readInt(p)
}

// sysfsPWM implements PWMAccessor using /sys/class/pwm/<name>. The kernel
// interface is in nanoseconds; values are converted to microseconds.
type sysfsPWM struct {
	dir string
}

func (s *sysfsPWM) path(name, attr string) (string, error) {
	pwmPath := filepath.Join(s.dir, name)
	if _, err := os.Stat(pwmPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: PWM %q not found at %s", ErrNotFound, name, pwmPath)
	}
	return filepath.Join(pwmPath, attr), nil
}

func (s *sysfsPWM) Enabled(name string) (bool, error) {
	p, err := s.path(name, "enable")
	if err != nil {
		return false, err
	}
	v, err := readInt(p)
	return v != 0, err
}

func (s *sysfsPWM) SetEnabled(name string, enabled bool) error {
	p, err := s.path(name, "enable")
	if err != nil {
		return err
	}
	v := "0"
	if enabled {
		v = "1"
	}
	return writeString(p, v)
}

func (s *sysfsPWM) Period(name string) (int, error) {
	return s.readMicros(name, "period")
}

func (s *sysfsPWM) SetPeriod(name string, periodUS int) error {
	return s.writeMicros(name, "period", periodUS)
}

func (s *sysfsPWM) DutyCycle(name string) (int, error) {
	return s.readMicros(name, "duty_cycle")
}

func (s *sysfsPWM) SetDutyCycle(name string, dutyUS int) error {
	return s.writeMicros(name, "duty_cycle", dutyUS)
}

func (s *sysfsPWM) readMicros(name, attr string) (int, error) {
	p, err := s.path(name, attr)
	if err != nil {
		return 0, err
	}
	ns, err := readInt64(p)
	if err != nil {
		return 0, err
	}
	return int(ns / 1000), nil
}

func (s *sysfsPWM) writeMicros(name, attr string, us int) error {
	p, err := s.path(name, attr)
	if err != nil {
		return err
	}
	return writeString(p, strconv.FormatInt(int64(us)*1000, 10))
}

func readInt(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return v, nil
}

// readInt64 reads a nanosecond attribute. Periods above about two seconds
// do not fit a 32-bit int.
func readInt64(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return v, nil
}

func writeString(path, value string) error {
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
