package device

import (
	"fmt"
	"strings"
)

// Direction is the configured direction of a GPIO line.
type Direction int

const (
	In Direction = iota
	Out
)

// String returns "IN" or "OUT"
func (d Direction) String() string {
	if d == Out {
		return "OUT"
	}
	return "IN"
}

// ParseDirection accepts the sysfs spellings ("in", "out", "high", "low")
// as well as the upper-case display names.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in":
		return In, nil
	case "out", "high", "low":
		return Out, nil
	default:
		return In, fmt.Errorf("unknown gpio direction %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Value is an immutable snapshot of one device's current state.
// The concrete type is selected by category: LEDValue, GPIOValue, HWMONValue
// or PWMValue.
type Value interface {
	Category() Category
	String() string
}

// LEDValue is the state of an LED
type LEDValue struct {
	On       bool     `json:"on"`
	Trigger  string   `json:"trigger"`
	Triggers []string `json:"triggers,omitempty"`
}

func (LEDValue) Category() Category { return LED }

func (v LEDValue) String() string {
	state := "off"
	if v.On {
		state = "on"
	}
	return fmt.Sprintf("%s (trigger: %s)", state, v.Trigger)
}

// GPIOValue is the direction and logic level of a GPIO line
type GPIOValue struct {
	Direction Direction `json:"direction"`
	Level     int       `json:"level"`
}

func (GPIOValue) Category() Category { return GPIO }

func (v GPIOValue) String() string {
	level := "LOW"
	if v.Level != 0 {
		level = "HIGH"
	}
	return fmt.Sprintf("%s %s", v.Direction, level)
}

// HWMONValue is a raw hardware-monitor reading (millidegrees, millivolts, ...)
type HWMONValue struct {
	Reading int `json:"reading"`
}

func (HWMONValue) Category() Category { return HWMON }

func (v HWMONValue) String() string {
	return fmt.Sprintf("%d", v.Reading)
}

// PWMValue is the state of a PWM channel. Period and duty cycle are in
// microseconds.
type PWMValue struct {
	Enabled  bool `json:"enabled"`
	PeriodUS int  `json:"period_us"`
	DutyUS   int  `json:"duty_us"`
}

func (PWMValue) Category() Category { return PWM }

// DutyPercent returns the duty cycle as an integer percentage of the period.
func (v PWMValue) DutyPercent() int {
	if v.PeriodUS <= 0 {
		return 0
	}
	return v.DutyUS * 100 / v.PeriodUS
}

func (v PWMValue) String() string {
	state := "disabled"
	if v.Enabled {
		state = "enabled"
	}
	return fmt.Sprintf("%s period=%dus duty=%dus (%d%%)", state, v.PeriodUS, v.DutyUS, v.DutyPercent())
}
