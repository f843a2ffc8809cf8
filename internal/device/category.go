package device

import (
	"fmt"
	"strings"
	"time"
)

// Category identifies one of the fixed peripheral classes exposed by the board.
type Category int

const (
	LED Category = iota
	GPIO
	HWMON
	PWM
)

// Categories lists every category in display order.
var Categories = []Category{LED, GPIO, HWMON, PWM}

// String returns the display name of the category (e.g. "GPIO")
func (c Category) String() string {
	switch c {
	case LED:
		return "LED"
	case GPIO:
		return "GPIO"
	case HWMON:
		return "HWMON"
	case PWM:
		return "PWM"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// Prefix returns the discovery-source key prefix for the category (e.g. "gpio.")
func (c Category) Prefix() string {
	return strings.ToLower(c.String()) + "."
}

// DefaultInterval returns the refresh interval of the category.
// Zero means the category is edit-driven and never polled: LED and PWM state
// only changes on explicit user action, while GPIO inputs and HWMON sensors
// follow external conditions.
func (c Category) DefaultInterval() time.Duration {
	switch c {
	case GPIO:
		return 500 * time.Millisecond
	case HWMON:
		return time.Second
	default:
		return 0
	}
}

// Polled reports whether the category gets a background poller.
func (c Category) Polled() bool {
	return c.DefaultInterval() > 0
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c >= LED && c <= PWM
}

// ParseCategory parses a category name, case-insensitively.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
