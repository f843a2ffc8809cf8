package device

import (
	"fmt"
	"sort"
	"sync"
)

// Sim is an in-memory board used by the --simulate mode and by tests.
// It is safe for concurrent use. Every getter call is counted per device and
// failures can be injected per device.
type Sim struct {
	mu sync.Mutex

	leds   map[string]*simLED
	gpios  map[string]*simGPIO
	hwmons map[string]int
	pwms   map[string]*simPWM

	order     []simEntry
	reads     map[string]int
	readErrs  map[string]error
	writeErrs map[string]error
	journal   []string
}

type simEntry struct {
	category Category
	name     string
}

type simLED struct {
	on       bool
	trigger  string
	triggers []string
}

type simGPIO struct {
	dir   Direction
	level int
}

type simPWM struct {
	enabled bool
	period  int
	duty    int
}

// NewSim returns an empty simulated board
func NewSim() *Sim {
	return &Sim{
		leds:      make(map[string]*simLED),
		gpios:     make(map[string]*simGPIO),
		hwmons:    make(map[string]int),
		pwms:      make(map[string]*simPWM),
		reads:     make(map[string]int),
		readErrs:  make(map[string]error),
		writeErrs: make(map[string]error),
	}
}

// NewDemoSim returns a board resembling a Gateworks Ventana SBC.
func NewDemoSim() *Sim {
	s := NewSim()
	s.AddLED("user1", "none", "none", "timer", "heartbeat", "default-on")
	s.AddLED("user2", "heartbeat", "none", "timer", "heartbeat", "default-on")
	s.AddGPIO("dio0", In, 0)
	s.AddGPIO("dio1", Out, 1)
	s.AddGPIO("dio2", In, 1)
	s.AddGPIO("can_stby", Out, 0)
	s.AddHWMON("temp", 41250)
	s.AddHWMON("vdd_vin", 12040)
	s.AddHWMON("vdd_3p3", 3310)
	s.AddPWM("pwm2", true, 1000, 500)
	s.AddPWM("pwm3", false, 20000, 0)
	return s
}

// AddLED registers an LED with the active trigger and the available triggers
func (s *Sim) AddLED(name, trigger string, triggers ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(triggers) == 0 {
		triggers = []string{trigger}
	}
	s.leds[name] = &simLED{trigger: trigger, triggers: triggers}
	s.order = append(s.order, simEntry{LED, name})
}

// AddGPIO registers a GPIO line
func (s *Sim) AddGPIO(name string, dir Direction, level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gpios[name] = &simGPIO{dir: dir, level: level}
	s.order = append(s.order, simEntry{GPIO, name})
}

// AddHWMON registers a sensor
func (s *Sim) AddHWMON(name string, reading int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hwmons[name] = reading
	s.order = append(s.order, simEntry{HWMON, name})
}

// AddPWM registers a PWM channel
func (s *Sim) AddPWM(name string, enabled bool, periodUS, dutyUS int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pwms[name] = &simPWM{enabled: enabled, period: periodUS, duty: dutyUS}
	s.order = append(s.order, simEntry{PWM, name})
}

// SetSensor changes a sensor reading, as the physical world would
func (s *Sim) SetSensor(name string, reading int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hwmons[name] = reading
}

// SetInput drives the level of a GPIO line from outside
func (s *Sim) SetInput(name string, level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.gpios[name]; ok {
		g.level = level
	}
}

// FailReads makes every subsequent read of name fail with err; nil clears it
func (s *Sim) FailReads(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.readErrs, name)
		return
	}
	s.readErrs[name] = err
}

// FailWrites makes every subsequent write to name fail with err; nil clears it
func (s *Sim) FailWrites(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.writeErrs, name)
		return
	}
	s.writeErrs[name] = err
}

// Reads returns the number of getter calls made for a device
func (s *Sim) Reads(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[name]
}

// TotalReads returns the number of getter calls made for all devices
func (s *Sim) TotalReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.reads {
		total += n
	}
	return total
}

// Journal returns every successful write in order, formatted as
// "<op> <name> <value>".
func (s *Sim) Journal() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.journal))
	copy(out, s.journal)
	return out
}

// ResetJournal clears the write journal
func (s *Sim) ResetJournal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = nil
}

// PropertyLines renders the simulated devices as discovery-source lines in
// the Android property format, in registration order.
func (s *Sim) PropertyLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]string, 0, len(s.order))
	for _, e := range s.order {
		var prop string
		switch e.category {
		case LED:
			prop = s.leds[e.name].trigger
		case GPIO:
			prop = fmt.Sprintf("%d", s.gpios[e.name].level)
		case HWMON:
			prop = fmt.Sprintf("%d", s.hwmons[e.name])
		case PWM:
			prop = fmt.Sprintf("%d", s.pwms[e.name].period)
		}
		lines = append(lines, fmt.Sprintf("[hw.%s%s]: [%s]", e.category.Prefix(), e.name, prop))
	}
	return lines
}

// Names returns the registered device names of a category, sorted
func (s *Sim) Names(c Category) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, e := range s.order {
		if e.category == c {
			names = append(names, e.name)
		}
	}
	sort.Strings(names)
	return names
}

// Accessors returns accessors backed by the simulated board
func (s *Sim) Accessors() Accessors {
	return Accessors{
		LED:   simLEDAccessor{s},
		GPIO:  simGPIOAccessor{s},
		HWMON: simHWMONAccessor{s},
		PWM:   simPWMAccessor{s},
	}
}

// read must be called with s.mu held
func (s *Sim) read(name string) error {
	s.reads[name]++
	return s.readErrs[name]
}

// write must be called with s.mu held
func (s *Sim) write(op, name string, value interface{}) error {
	if err := s.writeErrs[name]; err != nil {
		return err
	}
	s.journal = append(s.journal, fmt.Sprintf("%s %s %v", op, name, value))
	return nil
}

func notFound(c Category, name string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, c, name)
}

type simLEDAccessor struct{ s *Sim }

func (a simLEDAccessor) led(name string) (*simLED, error) {
	l, ok := a.s.leds[name]
	if !ok {
		return nil, notFound(LED, name)
	}
	return l, nil
}

func (a simLEDAccessor) Value(name string) (bool, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	l, err := a.led(name)
	if err != nil {
		return false, err
	}
	if err := a.s.read(name); err != nil {
		return false, err
	}
	return l.on, nil
}

func (a simLEDAccessor) SetValue(name string, on bool) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	l, err := a.led(name)
	if err != nil {
		return err
	}
	if err := a.s.write("led.value", name, on); err != nil {
		return err
	}
	l.on = on
	return nil
}

func (a simLEDAccessor) Trigger(name string) (string, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	l, err := a.led(name)
	if err != nil {
		return "", err
	}
	if err := a.s.read(name); err != nil {
		return "", err
	}
	return l.trigger, nil
}

func (a simLEDAccessor) SetTrigger(name, trigger string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	l, err := a.led(name)
	if err != nil {
		return err
	}
	known := false
	for _, t := range l.triggers {
		if t == trigger {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: trigger %q", ErrUnsupported, trigger)
	}
	if err := a.s.write("led.trigger", name, trigger); err != nil {
		return err
	}
	l.trigger = trigger
	return nil
}

func (a simLEDAccessor) Triggers(name string) ([]string, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	l, err := a.led(name)
	if err != nil {
		return nil, err
	}
	if err := a.s.read(name); err != nil {
		return nil, err
	}
	out := make([]string, len(l.triggers))
	copy(out, l.triggers)
	return out, nil
}

type simGPIOAccessor struct{ s *Sim }

func (a simGPIOAccessor) gpio(name string) (*simGPIO, error) {
	g, ok := a.s.gpios[name]
	if !ok {
		return nil, notFound(GPIO, name)
	}
	return g, nil
}

func (a simGPIOAccessor) Value(name string) (int, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	g, err := a.gpio(name)
	if err != nil {
		return 0, err
	}
	if err := a.s.read(name); err != nil {
		return 0, err
	}
	return g.level, nil
}

func (a simGPIOAccessor) SetValue(name string, level int) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	g, err := a.gpio(name)
	if err != nil {
		return err
	}
	if g.dir != Out {
		return fmt.Errorf("%w: %s is an input", ErrUnsupported, name)
	}
	if level != 0 {
		level = 1
	}
	if err := a.s.write("gpio.value", name, level); err != nil {
		return err
	}
	g.level = level
	return nil
}

func (a simGPIOAccessor) Direction(name string) (Direction, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	g, err := a.gpio(name)
	if err != nil {
		return In, err
	}
	if err := a.s.read(name); err != nil {
		return In, err
	}
	return g.dir, nil
}

func (a simGPIOAccessor) SetDirection(name string, dir Direction) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	g, err := a.gpio(name)
	if err != nil {
		return err
	}
	if err := a.s.write("gpio.direction", name, dir); err != nil {
		return err
	}
	g.dir = dir
	return nil
}

type simHWMONAccessor struct{ s *Sim }

func (a simHWMONAccessor) Value(name string) (int, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	v, ok := a.s.hwmons[name]
	if !ok {
		return 0, notFound(HWMON, name)
	}
	if err := a.s.read(name); err != nil {
		return 0, err
	}
	return v, nil
}

type simPWMAccessor struct{ s *Sim }

func (a simPWMAccessor) pwm(name string) (*simPWM, error) {
	p, ok := a.s.pwms[name]
	if !ok {
		return nil, notFound(PWM, name)
	}
	return p, nil
}

func (a simPWMAccessor) Enabled(name string) (bool, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	p, err := a.pwm(name)
	if err != nil {
		return false, err
	}
	if err := a.s.read(name); err != nil {
		return false, err
	}
	return p.enabled, nil
}

func (a simPWMAccessor) SetEnabled(name string, enabled bool) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	p, err := a.pwm(name)
	if err != nil {
		return err
	}
	if err := a.s.write("pwm.enable", name, enabled); err != nil {
		return err
	}
	p.enabled = enabled
	return nil
}

func (a simPWMAccessor) Period(name string) (int, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	p, err := a.pwm(name)
	if err != nil {
		return 0, err
	}
	if err := a.s.read(name); err != nil {
		return 0, err
	}
	return p.period, nil
}

// SetPeriod rejects a period shorter than the current duty cycle, like the
// kernel PWM core does.
func (a simPWMAccessor) SetPeriod(name string, periodUS int) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	p, err := a.pwm(name)
	if err != nil {
		return err
	}
	if periodUS < p.duty {
		return fmt.Errorf("period %dus shorter than duty cycle %dus", periodUS, p.duty)
	}
	if err := a.s.write("pwm.period", name, periodUS); err != nil {
		return err
	}
	p.period = periodUS
	return nil
}

func (a simPWMAccessor) DutyCycle(name string) (int, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	p, err := a.pwm(name)
	if err != nil {
		return 0, err
	}
	if err := a.s.read(name); err != nil {
		return 0, err
	}
	return p.duty, nil
}

func (a simPWMAccessor) SetDutyCycle(name string, dutyUS int) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	p, err := a.pwm(name)
	if err != nil {
		return err
	}
	if dutyUS < 0 || dutyUS >= p.period && p.period > 0 {
		return fmt.Errorf("duty cycle %dus out of range for period %dus", dutyUS, p.period)
	}
	if err := a.s.write("pwm.duty", name, dutyUS); err != nil {
		return err
	}
	p.duty = dutyUS
	return nil
}
