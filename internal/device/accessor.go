package device

import "fmt"

// LEDAccessor controls LEDs by name.
type LEDAccessor interface {
	Value(name string) (bool, error)
	SetValue(name string, on bool) error
	Trigger(name string) (string, error)
	SetTrigger(name, trigger string) error
	Triggers(name string) ([]string, error)
}

// GPIOAccessor controls GPIO lines by name.
type GPIOAccessor interface {
	Value(name string) (int, error)
	SetValue(name string, level int) error
	Direction(name string) (Direction, error)
	SetDirection(name string, dir Direction) error
}

// HWMONAccessor reads hardware-monitor sensors by name.
type HWMONAccessor interface {
	Value(name string) (int, error)
}

// PWMAccessor controls PWM channels by name. Period and duty cycle are in
// microseconds.
type PWMAccessor interface {
	Enabled(name string) (bool, error)
	SetEnabled(name string, enabled bool) error
	Period(name string) (int, error)
	SetPeriod(name string, periodUS int) error
	DutyCycle(name string) (int, error)
	SetDutyCycle(name string, dutyUS int) error
}

// Accessors bundles one accessor per category.
type Accessors struct {
	LED   LEDAccessor
	GPIO  GPIOAccessor
	HWMON HWMONAccessor
	PWM   PWMAccessor
}

// ValueReader reads a complete value snapshot for one device.
type ValueReader interface {
	Read(name string) (Value, error)
}

// ValueReaderFunc adapts a function to ValueReader
type ValueReaderFunc func(name string) (Value, error)

// Read calls f(name)
func (f ValueReaderFunc) Read(name string) (Value, error) {
	return f(name)
}

// Reader returns the snapshot reader for a category. It is resolved once by
// the caller rather than switched on every read. Errors returned by the
// reader are *AccessorReadError.
func (a Accessors) Reader(c Category) (ValueReader, error) {
	switch c {
	case LED:
		if a.LED == nil {
			break
		}
		return ValueReaderFunc(func(name string) (Value, error) {
			return readLED(a.LED, name)
		}), nil
	case GPIO:
		if a.GPIO == nil {
			break
		}
		return ValueReaderFunc(func(name string) (Value, error) {
			return readGPIO(a.GPIO, name)
		}), nil
	case HWMON:
		if a.HWMON == nil {
			break
		}
		return ValueReaderFunc(func(name string) (Value, error) {
			v, err := a.HWMON.Value(name)
			if err != nil {
				return nil, &AccessorReadError{Category: HWMON, Device: name, Err: err}
			}
			return HWMONValue{Reading: v}, nil
		}), nil
	case PWM:
		if a.PWM == nil {
			break
		}
		return ValueReaderFunc(func(name string) (Value, error) {
			return readPWM(a.PWM, name)
		}), nil
	default:
		return nil, fmt.Errorf("unknown category %v", c)
	}
	return nil, fmt.Errorf("%w: no accessor configured for %s", ErrUnsupported, c)
}

func readLED(acc LEDAccessor, name string) (Value, error) {
	on, err := acc.Value(name)
	if err != nil {
		return nil, &AccessorReadError{Category: LED, Device: name, Err: err}
	}
	trigger, err := acc.Trigger(name)
	if err != nil {
		return nil, &AccessorReadError{Category: LED, Device: name, Err: err}
	}
	triggers, err := acc.Triggers(name)
	if err != nil {
		return nil, &AccessorReadError{Category: LED, Device: name, Err: err}
	}
	return LEDValue{On: on, Trigger: trigger, Triggers: triggers}, nil
}

func readGPIO(acc GPIOAccessor, name string) (Value, error) {
	dir, err := acc.Direction(name)
	if err != nil {
		return nil, &AccessorReadError{Category: GPIO, Device: name, Err: err}
	}
	level, err := acc.Value(name)
	if err != nil {
		return nil, &AccessorReadError{Category: GPIO, Device: name, Err: err}
	}
	return GPIOValue{Direction: dir, Level: level}, nil
}

func readPWM(acc PWMAccessor, name string) (Value, error) {
	enabled, err := acc.Enabled(name)
	if err != nil {
		return nil, &AccessorReadError{Category: PWM, Device: name, Err: err}
	}
	period, err := acc.Period(name)
	if err != nil {
		return nil, &AccessorReadError{Category: PWM, Device: name, Err: err}
	}
	duty, err := acc.DutyCycle(name)
	if err != nil {
		return nil, &AccessorReadError{Category: PWM, Device: name, Err: err}
	}
	return PWMValue{Enabled: enabled, PeriodUS: period, DutyUS: duty}, nil
}
