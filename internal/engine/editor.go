package engine

import (
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/gateworks/periphmon/internal/catalog"
	"github.com/gateworks/periphmon/internal/device"
)

var (
	// ErrWrongCategory is returned when an edit targets a record of another category
	ErrWrongCategory = errors.New("wrong device category")
	// ErrOutputOnly is returned when switching an output-only line to input
	ErrOutputOnly = errors.New("line is output-only")
	// ErrNotOutput is returned when driving the level of a line configured as input
	ErrNotOutput = errors.New("line is not configured as output")
	// ErrInvalidPeriod is returned for a PWM period that is not a positive
	// number of at most MaxPeriodDigits digits
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrInvalidPercent is returned for a duty cycle outside 0..100
	ErrInvalidPercent = errors.New("duty cycle percentage out of range")
)

// MaxPeriodDigits bounds the length of a period entered by the user
const MaxPeriodDigits = 8

// Editor applies user edits to devices synchronously. It runs on the
// presentation context and refreshes the edited record from the accessor
// after every successful write, so the change shows without waiting for a
// poll (LED and PWM are never polled).
type Editor struct {
	acc    device.Accessors
	logger *zap.Logger
}

// NewEditor creates an editor over the given accessors
func NewEditor(acc device.Accessors, logger *zap.Logger) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Editor{acc: acc, logger: logger}
}

// Refresh reads the current value of one record and stores it
func (e *Editor) Refresh(rec *catalog.Record) error {
	reader, err := e.acc.Reader(rec.Category)
	if err != nil {
		return err
	}
	value, err := reader.Read(rec.Name)
	if err != nil {
		return err
	}
	rec.Value = value
	return nil
}

// RefreshAll reads every record of the catalog once. Records that cannot be
// read keep their previous value; the joined errors are returned.
func (e *Editor) RefreshAll(c *catalog.Catalog) error {
	var errs []error
	for _, rec := range c.Records() {
		if err := e.Refresh(rec); err != nil {
			e.logger.Warn("Initial read failed",
				zap.Stringer("category", rec.Category),
				zap.String("device", rec.Name),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetLED switches an LED on or off. Switching off also resets the trigger to
// the first available one (normally "none"), otherwise the trigger would turn
// the LED back on.
func (e *Editor) SetLED(rec *catalog.Record, on bool) error {
	if err := e.check(rec, device.LED); err != nil {
		return err
	}
	if err := e.acc.LED.SetValue(rec.Name, on); err != nil {
		return e.writeErr(rec, "set brightness", err)
	}
	if !on {
		triggers, err := e.acc.LED.Triggers(rec.Name)
		if err != nil {
			return e.writeErr(rec, "reset trigger", err)
		}
		if len(triggers) > 0 {
			if err := e.acc.LED.SetTrigger(rec.Name, triggers[0]); err != nil {
				return e.writeErr(rec, "reset trigger", err)
			}
		}
	}
	return e.echo(rec)
}

// SetLEDTrigger selects the kernel trigger of an LED
func (e *Editor) SetLEDTrigger(rec *catalog.Record, trigger string) error {
	if err := e.check(rec, device.LED); err != nil {
		return err
	}
	if err := e.acc.LED.SetTrigger(rec.Name, trigger); err != nil {
		return e.writeErr(rec, "set trigger", err)
	}
	return e.echo(rec)
}

// SetGPIOLevel drives an output line high (non-zero) or low
func (e *Editor) SetGPIOLevel(rec *catalog.Record, level int) error {
	if err := e.check(rec, device.GPIO); err != nil {
		return err
	}
	if v, ok := rec.Value.(device.GPIOValue); ok && v.Direction != device.Out {
		return e.writeErr(rec, "set level", ErrNotOutput)
	}
	if level != 0 {
		level = 1
	}
	if err := e.acc.GPIO.SetValue(rec.Name, level); err != nil {
		return e.writeErr(rec, "set level", err)
	}
	return e.echo(rec)
}

// SetGPIODirection configures a line as input or output
func (e *Editor) SetGPIODirection(rec *catalog.Record, dir device.Direction) error {
	if err := e.check(rec, device.GPIO); err != nil {
		return err
	}
	if dir == device.In && rec.OutputOnly() {
		return e.writeErr(rec, "set direction", ErrOutputOnly)
	}
	if err := e.acc.GPIO.SetDirection(rec.Name, dir); err != nil {
		return e.writeErr(rec, "set direction", err)
	}
	return e.echo(rec)
}

// SetPWMEnabled enables or disables a PWM channel
func (e *Editor) SetPWMEnabled(rec *catalog.Record, enabled bool) error {
	if err := e.check(rec, device.PWM); err != nil {
		return err
	}
	if err := e.acc.PWM.SetEnabled(rec.Name, enabled); err != nil {
		return e.writeErr(rec, "set enable", err)
	}
	return e.echo(rec)
}

// ParsePeriod validates a period typed by the user
func ParsePeriod(s string) (int, error) {
	if s == "" || len(s) > MaxPeriodDigits {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return v, nil
}

// SetPWMPeriod changes the period of a PWM channel while keeping the duty
// cycle at the same percentage. The duty cycle is cleared first so that the
// driver never sees a duty cycle longer than the period.
func (e *Editor) SetPWMPeriod(rec *catalog.Record, periodUS int) error {
	if err := e.check(rec, device.PWM); err != nil {
		return err
	}
	if periodUS <= 0 || len(strconv.Itoa(periodUS)) > MaxPeriodDigits {
		return e.writeErr(rec, "set period", fmt.Errorf("%w: %d", ErrInvalidPeriod, periodUS))
	}

	duty, err := e.acc.PWM.DutyCycle(rec.Name)
	if err != nil {
		return e.writeErr(rec, "set period", err)
	}
	old, err := e.acc.PWM.Period(rec.Name)
	if err != nil {
		return e.writeErr(rec, "set period", err)
	}
	ratio := 0
	if old > 0 {
		ratio = int(int64(duty) * 100 / int64(old))
	}

	if err := e.acc.PWM.SetDutyCycle(rec.Name, 0); err != nil {
		return e.writeErr(rec, "clear duty cycle", err)
	}
	if err := e.acc.PWM.SetPeriod(rec.Name, periodUS); err != nil {
		return e.writeErr(rec, "set period", err)
	}
	if err := e.acc.PWM.SetDutyCycle(rec.Name, dutyFor(periodUS, ratio)); err != nil {
		return e.writeErr(rec, "restore duty cycle", err)
	}

	e.logger.Debug("PWM period changed",
		zap.String("device", rec.Name),
		zap.Int("period_us", periodUS),
		zap.Int("ratio", ratio),
	)
	return e.echo(rec)
}

// SetPWMDutyPercent sets the duty cycle as a percentage of the current period
func (e *Editor) SetPWMDutyPercent(rec *catalog.Record, pct int) error {
	if err := e.check(rec, device.PWM); err != nil {
		return err
	}
	if pct < 0 || pct > 100 {
		return e.writeErr(rec, "set duty cycle", fmt.Errorf("%w: %d", ErrInvalidPercent, pct))
	}
	period, err := e.acc.PWM.Period(rec.Name)
	if err != nil {
		return e.writeErr(rec, "set duty cycle", err)
	}
	if err := e.acc.PWM.SetDutyCycle(rec.Name, dutyFor(period, pct)); err != nil {
		return e.writeErr(rec, "set duty cycle", err)
	}
	return e.echo(rec)
}

// dutyFor returns pct percent of period. Drivers reject a duty cycle equal
// to the period, so full scale is one microsecond short.
func dutyFor(period, pct int) int {
	if pct >= 100 {
		if period > 0 {
			return period - 1
		}
		return 0
	}
	return int(int64(period) * int64(pct) / 100)
}

func (e *Editor) check(rec *catalog.Record, want device.Category) error {
	if rec == nil {
		return fmt.Errorf("%w: no device selected", device.ErrNotFound)
	}
	if rec.Category != want {
		return fmt.Errorf("%w: %s is %s, not %s", ErrWrongCategory, rec.Name, rec.Category, want)
	}
	var missing bool
	switch want {
	case device.LED:
		missing = e.acc.LED == nil
	case device.GPIO:
		missing = e.acc.GPIO == nil
	case device.PWM:
		missing = e.acc.PWM == nil
	default:
		missing = true
	}
	if missing {
		return e.writeErr(rec, "edit", device.ErrUnsupported)
	}
	return nil
}

func (e *Editor) writeErr(rec *catalog.Record, op string, err error) error {
	werr := &device.AccessorWriteError{Category: rec.Category, Device: rec.Name, Op: op, Err: err}
	e.logger.Warn("Device write failed", zap.Error(werr))
	return werr
}

// echo refreshes the record after a write. A failed refresh is logged only;
// the write itself succeeded.
func (e *Editor) echo(rec *catalog.Record) error {
	if err := e.Refresh(rec); err != nil {
		e.logger.Warn("Refresh after write failed",
			zap.String("device", rec.Name),
			zap.Error(err),
		)
	}
	return nil
}
