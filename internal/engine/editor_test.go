package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gateworks/periphmon/internal/catalog"
	"github.com/gateworks/periphmon/internal/device"
)

func newEditor(t *testing.T) (*device.Sim, *catalog.Catalog, *Editor) {
	t.Helper()
	sim, cat := demoBoard(t)
	ed := NewEditor(sim.Accessors(), nil)
	if err := ed.RefreshAll(cat); err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}
	sim.ResetJournal()
	return sim, cat, ed
}

func TestEditor_SetPWMPeriodKeepsRatio(t *testing.T) {
	sim, cat, ed := newEditor(t)
	rec := cat.Find(device.PWM, "pwm2") // 1000us period, 500us duty

	if err := ed.SetPWMPeriod(rec, 2000); err != nil {
		t.Fatalf("SetPWMPeriod() error = %v", err)
	}

	want := []string{
		"pwm.duty pwm2 0",
		"pwm.period pwm2 2000",
		"pwm.duty pwm2 1000",
	}
	if got := sim.Journal(); !reflect.DeepEqual(got, want) {
		t.Errorf("writes = %v, want %v", got, want)
	}

	v := rec.Value.(device.PWMValue)
	if v.PeriodUS != 2000 || v.DutyUS != 1000 {
		t.Errorf("record value = %v, want period 2000 duty 1000", v)
	}
}

func TestEditor_SetPWMPeriodShorterThanDuty(t *testing.T) {
	sim, cat, ed := newEditor(t)
	rec := cat.Find(device.PWM, "pwm2")

	// without clearing the duty cycle first the driver would refuse 400 < 500
	if err := ed.SetPWMPeriod(rec, 400); err != nil {
		t.Fatalf("SetPWMPeriod() error = %v", err)
	}
	if got := sim.Journal()[2]; got != "pwm.duty pwm2 200" {
		t.Errorf("restored duty write = %q, want pwm.duty pwm2 200", got)
	}
}

func TestEditor_LongPWMPeriods(t *testing.T) {
	sim, cat, ed := newEditor(t)
	rec := cat.Find(device.PWM, "pwm2") // 50% duty

	if err := ed.SetPWMPeriod(rec, 50000000); err != nil {
		t.Fatalf("SetPWMPeriod(50000000) error = %v", err)
	}
	if v := rec.Value.(device.PWMValue); v.PeriodUS != 50000000 || v.DutyUS != 25000000 {
		t.Errorf("record value = %v, want period 50000000 duty 25000000", v)
	}

	// duty*100 and period*pct are past the range of a 32-bit int here
	sim.ResetJournal()
	if err := ed.SetPWMPeriod(rec, 99999999); err != nil {
		t.Fatalf("SetPWMPeriod(99999999) error = %v", err)
	}
	if got := sim.Journal()[2]; got != "pwm.duty pwm2 49999999" {
		t.Errorf("restored duty write = %q, want pwm.duty pwm2 49999999", got)
	}

	sim.ResetJournal()
	if err := ed.SetPWMDutyPercent(rec, 75); err != nil {
		t.Fatalf("SetPWMDutyPercent(75) error = %v", err)
	}
	if got := sim.Journal(); len(got) != 1 || got[0] != "pwm.duty pwm2 74999999" {
		t.Errorf("writes = %v, want [pwm.duty pwm2 74999999]", got)
	}
}

func TestEditor_SetPWMPeriodValidation(t *testing.T) {
	tests := []struct {
		name   string
		period int
	}{
		{"zero", 0},
		{"negative", -5},
		{"too many digits", 123456789},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, cat, ed := newEditor(t)
			err := ed.SetPWMPeriod(cat.Find(device.PWM, "pwm2"), tt.period)
			if !errors.Is(err, ErrInvalidPeriod) {
				t.Errorf("SetPWMPeriod(%d) error = %v, want ErrInvalidPeriod", tt.period, err)
			}
			var werr *device.AccessorWriteError
			if !errors.As(err, &werr) {
				t.Errorf("error should be *AccessorWriteError, got %T", err)
			}
			if len(sim.Journal()) != 0 {
				t.Errorf("writes = %v, want none", sim.Journal())
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1000", 1000, false},
		{"99999999", 99999999, false},
		{"", 0, true},
		{"123456789", 0, true},
		{"-1", 0, true},
		{"0", 0, true},
		{"12ms", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePeriod(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePeriod(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePeriod(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestEditor_SetPWMDutyPercent(t *testing.T) {
	tests := []struct {
		pct  int
		want string
	}{
		{0, "pwm.duty pwm2 0"},
		{25, "pwm.duty pwm2 250"},
		{100, "pwm.duty pwm2 999"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			sim, cat, ed := newEditor(t)
			if err := ed.SetPWMDutyPercent(cat.Find(device.PWM, "pwm2"), tt.pct); err != nil {
				t.Fatalf("SetPWMDutyPercent(%d) error = %v", tt.pct, err)
			}
			if got := sim.Journal(); len(got) != 1 || got[0] != tt.want {
				t.Errorf("writes = %v, want [%s]", got, tt.want)
			}
		})
	}

	_, cat, ed := newEditor(t)
	if err := ed.SetPWMDutyPercent(cat.Find(device.PWM, "pwm2"), 101); !errors.Is(err, ErrInvalidPercent) {
		t.Errorf("SetPWMDutyPercent(101) error = %v, want ErrInvalidPercent", err)
	}
}

func TestEditor_SetLEDOffResetsTrigger(t *testing.T) {
	sim, cat, ed := newEditor(t)
	rec := cat.Find(device.LED, "user2") // heartbeat trigger

	if err := ed.SetLED(rec, true); err != nil {
		t.Fatal(err)
	}
	if err := ed.SetLED(rec, false); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"led.value user2 true",
		"led.value user2 false",
		"led.trigger user2 none",
	}
	if got := sim.Journal(); !reflect.DeepEqual(got, want) {
		t.Errorf("writes = %v, want %v", got, want)
	}
	if v := rec.Value.(device.LEDValue); v.On || v.Trigger != "none" {
		t.Errorf("record value = %v, want off with trigger none", v)
	}
}

func TestEditor_SetLEDTrigger(t *testing.T) {
	_, cat, ed := newEditor(t)
	rec := cat.Find(device.LED, "user1")

	if err := ed.SetLEDTrigger(rec, "timer"); err != nil {
		t.Fatalf("SetLEDTrigger() error = %v", err)
	}
	if got := rec.Value.(device.LEDValue).Trigger; got != "timer" {
		t.Errorf("trigger = %q, want timer", got)
	}

	if err := ed.SetLEDTrigger(rec, "disco"); !errors.Is(err, device.ErrUnsupported) {
		t.Errorf("unknown trigger error = %v, want ErrUnsupported", err)
	}
}

func TestEditor_GPIO(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(*Editor, *catalog.Catalog) error
		wantErr error
		want    []string
	}{
		{
			name: "drive output high",
			edit: func(ed *Editor, c *catalog.Catalog) error {
				return ed.SetGPIOLevel(c.Find(device.GPIO, "can_stby"), 1)
			},
			want: []string{"gpio.value can_stby 1"},
		},
		{
			name: "drive input",
			edit: func(ed *Editor, c *catalog.Catalog) error {
				return ed.SetGPIOLevel(c.Find(device.GPIO, "dio0"), 1)
			},
			wantErr: ErrNotOutput,
		},
		{
			name: "switch input to output",
			edit: func(ed *Editor, c *catalog.Catalog) error {
				return ed.SetGPIODirection(c.Find(device.GPIO, "dio0"), device.Out)
			},
			want: []string{"gpio.direction dio0 OUT"},
		},
		{
			name: "output-only line refuses input",
			edit: func(ed *Editor, c *catalog.Catalog) error {
				return ed.SetGPIODirection(c.Find(device.GPIO, "can_stby"), device.In)
			},
			wantErr: ErrOutputOnly,
		},
		{
			name: "wrong category",
			edit: func(ed *Editor, c *catalog.Catalog) error {
				return ed.SetGPIOLevel(c.Find(device.HWMON, "temp"), 1)
			},
			wantErr: ErrWrongCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, cat, ed := newEditor(t)
			err := tt.edit(ed, cat)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if len(sim.Journal()) != 0 {
					t.Errorf("writes = %v, want none", sim.Journal())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := sim.Journal(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("writes = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEditor_WriteFailure(t *testing.T) {
	sim, cat, ed := newEditor(t)
	rec := cat.Find(device.PWM, "pwm3")
	before := rec.Value
	sim.FailWrites("pwm3", errors.New("EBUSY"))

	err := ed.SetPWMEnabled(rec, true)

	var werr *device.AccessorWriteError
	if !errors.As(err, &werr) {
		t.Fatalf("error = %v, want *AccessorWriteError", err)
	}
	if werr.Device != "pwm3" || werr.Category != device.PWM {
		t.Errorf("AccessorWriteError = %+v", werr)
	}
	if rec.Value != before {
		t.Errorf("record value changed on failed write: %v", rec.Value)
	}
}

func TestEditor_NilRecord(t *testing.T) {
	_, _, ed := newEditor(t)
	if err := ed.SetLED(nil, true); !errors.Is(err, device.ErrNotFound) {
		t.Errorf("SetLED(nil) error = %v, want ErrNotFound", err)
	}
}
