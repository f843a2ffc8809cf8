package catalog

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/gateworks/periphmon/internal/device"
	"github.com/gateworks/periphmon/internal/discovery"
)

func names(g *Group) []string {
	var out []string
	for _, r := range g.Records {
		out = append(out, r.Name)
	}
	return out
}

func TestFromLines_ExampleScenario(t *testing.T) {
	c := FromLines([]string{
		"led.led1.trigger=[none]",
		"gpio.gpio1.direction=[out]",
		"gpio.gpio1.value=[1]",
	})

	want := []device.Category{device.LED, device.GPIO}
	if got := c.Categories(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Categories() = %v, want %v", got, want)
	}

	led := c.Group(device.LED)
	if led == nil || !reflect.DeepEqual(names(led), []string{"led1"}) {
		t.Errorf("LED group = %v, want [led1]", led)
	}

	gpio := c.Group(device.GPIO)
	if gpio == nil || !reflect.DeepEqual(names(gpio), []string{"gpio1"}) {
		t.Fatalf("GPIO group = %v, want [gpio1]", gpio)
	}
	rec := gpio.Records[0]
	if rec.Attrs["direction"] != "out" || rec.Attrs["value"] != "1" {
		t.Errorf("gpio1 attrs = %v", rec.Attrs)
	}
	if rec.RawLine != "gpio.gpio1.direction=[out]" || rec.Prop != "out" {
		t.Errorf("gpio1 raw=%q prop=%q", rec.RawLine, rec.Prop)
	}

	if c.Has(device.HWMON) || c.Has(device.PWM) {
		t.Error("HWMON and PWM should be absent")
	}
	if c.Group(device.PWM) != nil {
		t.Error("Group(PWM) should be nil")
	}
}

func TestFromLines_GetpropFormat(t *testing.T) {
	c := FromLines([]string{
		"[dalvik.vm.heapsize]: [256m]",
		"[hw.led.user1]: [none]",
		"[hw.hwmon.temp]: [41250]",
		"[hw.gpio.dio0]: [0]",
		"[hw.hwmon.vdd_vin]: [12040]",
		"[hw.gpio.can_stby]: [0]",
		"[hw.pwm.pwm2]: [1000]",
	})

	tests := []struct {
		category device.Category
		want     []string
	}{
		{device.LED, []string{"user1"}},
		{device.GPIO, []string{"dio0", "can_stby"}},
		{device.HWMON, []string{"temp", "vdd_vin"}},
		{device.PWM, []string{"pwm2"}},
	}
	for _, tt := range tests {
		t.Run(tt.category.String(), func(t *testing.T) {
			g := c.Group(tt.category)
			if g == nil {
				t.Fatalf("Group(%v) = nil", tt.category)
			}
			if got := names(g); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("names = %v, want %v", got, tt.want)
			}
			for i, r := range g.Records {
				if r.Position != i {
					t.Errorf("%s position = %d, want %d", r.Name, r.Position, i)
				}
			}
		})
	}

	if got := c.Find(device.HWMON, "temp").Prop; got != "41250" {
		t.Errorf("temp prop = %q, want 41250", got)
	}
	if !c.Find(device.GPIO, "can_stby").OutputOnly() {
		t.Error("can_stby should be output-only")
	}
	if c.Len() != 6 {
		t.Errorf("Len() = %d, want 6", c.Len())
	}
}

func TestFromLines_EmptyCategoriesDropped(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []device.Category
	}{
		{"no lines", nil, []device.Category{}},
		{"unrelated lines", []string{"[ro.build.id]: [KOT49H]", "garbage"}, []device.Category{}},
		{"only hwmon", []string{"hwmon.temp=[1]"}, []device.Category{device.HWMON}},
		{"prefix must be a segment", []string{"[hw.disabled.x]: [1]", "[hw.xpwm.y]: [2]"}, []device.Category{}},
		{"missing name", []string{"[hw.gpio.]: [1]"}, []device.Category{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := FromLines(tt.lines)
			got := c.Categories()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Categories() = %v, want %v", got, tt.want)
			}
			if len(c.Groups()) != len(tt.want) {
				t.Errorf("len(Groups()) = %d, want %d", len(c.Groups()), len(tt.want))
			}
		})
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line      string
		wantKey   string
		wantValue string
		wantOK    bool
	}{
		{"[hw.gpio.dio0]: [1]", "hw.gpio.dio0", "1", true},
		{"led.led1.trigger=[none]", "led.led1.trigger", "none", true},
		{"pwm.pwm2.period=1000", "pwm.pwm2.period", "1000", true},
		{"[broken", "", "", false},
		{"   ", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			key, value, ok := parseLine(tt.line)
			if ok != tt.wantOK || key != tt.wantKey || value != tt.wantValue {
				t.Errorf("parseLine(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.line, key, value, ok, tt.wantKey, tt.wantValue, tt.wantOK)
			}
		})
	}
}

func TestFromLines_Deterministic(t *testing.T) {
	lines := discovery.StaticSource{"[hw.gpio.b]: [0]", "[hw.gpio.a]: [1]", "[hw.led.x]: [none]"}
	a := FromLines(lines)
	b := FromLines(lines)
	if !reflect.DeepEqual(names(a.Group(device.GPIO)), names(b.Group(device.GPIO))) {
		t.Error("catalog build should be deterministic")
	}
	if got := names(a.Group(device.GPIO)); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("GPIO order = %v, want source order [b a]", got)
	}
}

// flakySource fails for the reads listed in fail (0-based call index)
type flakySource struct {
	lines []string
	fail  map[int]bool
	calls int
}

func (s *flakySource) Lines(ctx context.Context) ([]string, error) {
	call := s.calls
	s.calls++
	if s.fail[call] {
		return nil, errors.New("cannot spawn getprop")
	}
	return s.lines, nil
}

func TestBuild(t *testing.T) {
	lines := []string{"[hw.led.user1]: [none]", "[hw.gpio.dio0]: [0]", "[hw.hwmon.temp]: [1]"}

	c, err := Build(context.Background(), discovery.StaticSource(lines))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestBuild_PartialDiscoveryFailure(t *testing.T) {
	src := &flakySource{
		lines: []string{"[hw.led.user1]: [none]", "[hw.gpio.dio0]: [0]"},
		fail:  map[int]bool{1: true}, // GPIO read
	}

	c, err := Build(context.Background(), src)

	var discErr *DiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("Build() error = %v, want *DiscoveryError", err)
	}
	if !reflect.DeepEqual(discErr.Categories, []device.Category{device.GPIO}) {
		t.Errorf("failed categories = %v, want [GPIO]", discErr.Categories)
	}
	if discErr.Complete() {
		t.Error("Complete() = true, want false")
	}
	if c == nil {
		t.Fatal("catalog should contain the categories that were read")
	}
	if !c.Has(device.LED) || c.Has(device.GPIO) {
		t.Errorf("Categories() = %v, want [LED]", c.Categories())
	}
}

func TestBuild_TotalDiscoveryFailure(t *testing.T) {
	src := &flakySource{fail: map[int]bool{0: true, 1: true, 2: true, 3: true}}

	c, err := Build(context.Background(), src)
	if c != nil {
		t.Errorf("Build() catalog = %v, want nil", c)
	}
	var discErr *DiscoveryError
	if !errors.As(err, &discErr) || !discErr.Complete() {
		t.Fatalf("Build() error = %v, want complete *DiscoveryError", err)
	}
}

func TestRecordVisibility(t *testing.T) {
	c := FromLines([]string{"[hw.gpio.dio0]: [0]", "[hw.gpio.dio1]: [1]"})
	g := c.Group(device.GPIO)

	if g.VisibleCount() != 0 {
		t.Errorf("records should start hidden")
	}
	g.Records[1].SetVisible(true)
	if !g.Records[1].Visible() || g.VisibleCount() != 1 {
		t.Errorf("VisibleCount() = %d, want 1", g.VisibleCount())
	}

	if c.Record(device.GPIO, 1) != g.Records[1] {
		t.Error("Record(GPIO, 1) should return the same pointer")
	}
	if c.Record(device.GPIO, 2) != nil || c.Record(device.LED, 0) != nil {
		t.Error("out-of-range lookups should return nil")
	}
	if got := g.Records[0].Key(); got != "GPIO/dio0" {
		t.Errorf("Key() = %q", got)
	}
}
