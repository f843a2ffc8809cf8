package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/gateworks/periphmon/internal/catalog"
	"github.com/gateworks/periphmon/internal/device"
)

const testInterval = 10 * time.Millisecond

// demoBoard returns the demo simulator and a catalog built from it
func demoBoard(t *testing.T) (*device.Sim, *catalog.Catalog) {
	t.Helper()
	sim := device.NewDemoSim()
	cat := catalog.FromLines(sim.PropertyLines())
	if cat.Len() == 0 {
		t.Fatal("demo catalog is empty")
	}
	return sim, cat
}

func showAll(g *catalog.Group) {
	for _, r := range g.Records {
		r.SetVisible(true)
	}
}

func nextBatch(t *testing.T, d *Dispatcher, timeout time.Duration) Batch {
	t.Helper()
	select {
	case b := <-d.Batches():
		return b
	case <-time.After(timeout):
		t.Fatalf("no batch within %v", timeout)
		return Batch{}
	}
}

func expectNoBatch(t *testing.T, d *Dispatcher, wait time.Duration) {
	t.Helper()
	select {
	case b := <-d.Batches():
		t.Fatalf("unexpected batch %s seq=%d", b.Category, b.Seq)
	case <-time.After(wait):
	}
}

func TestPauseRegistry(t *testing.T) {
	r := NewPauseRegistry()

	if r.IsPaused(device.GPIO) {
		t.Fatal("new registry should not pause anything")
	}

	r.Pause(device.GPIO)
	r.Pause(device.GPIO)
	if !r.IsPaused(device.GPIO) {
		t.Error("GPIO should be paused")
	}
	if r.IsPaused(device.HWMON) {
		t.Error("HWMON should not be paused")
	}

	r.Pause(device.HWMON)
	if got, want := r.Paused(), []device.Category{device.GPIO, device.HWMON}; !reflect.DeepEqual(got, want) {
		t.Errorf("Paused() = %v, want %v", got, want)
	}

	r.Resume(device.GPIO)
	if r.IsPaused(device.GPIO) {
		t.Error("GPIO should be resumed after a single Resume")
	}
	r.Resume(device.GPIO)
	r.Resume(device.LED)
	if got, want := r.Paused(), []device.Category{device.HWMON}; !reflect.DeepEqual(got, want) {
		t.Errorf("Paused() = %v, want %v", got, want)
	}
}

func TestApply(t *testing.T) {
	_, cat := demoBoard(t)

	tests := []struct {
		name          string
		update        Update
		wantApplied   int
		wantDiscarded int
	}{
		{
			name:        "matching record",
			update:      Update{Category: device.GPIO, Position: 1, Name: "dio1", Value: device.GPIOValue{Direction: device.Out, Level: 0}},
			wantApplied: 1,
		},
		{
			name:          "name mismatch",
			update:        Update{Category: device.GPIO, Position: 1, Name: "dio7", Value: device.GPIOValue{}},
			wantDiscarded: 1,
		},
		{
			name:          "position out of range",
			update:        Update{Category: device.GPIO, Position: 42, Name: "dio1", Value: device.GPIOValue{}},
			wantDiscarded: 1,
		},
		{
			name:          "category absent",
			update:        Update{Category: device.Category(9), Position: 0, Name: "dio0", Value: device.GPIOValue{}},
			wantDiscarded: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Apply(cat, Batch{Category: tt.update.Category, Updates: []Update{tt.update}})
			if res.Applied != tt.wantApplied || res.Discarded != tt.wantDiscarded {
				t.Errorf("Apply() = %+v, want applied=%d discarded=%d", res, tt.wantApplied, tt.wantDiscarded)
			}
		})
	}

	rec := cat.Find(device.GPIO, "dio1")
	if v, ok := rec.Value.(device.GPIOValue); !ok || v.Level != 0 || v.Direction != device.Out {
		t.Errorf("dio1 value = %v, want OUT LOW", rec.Value)
	}
}

func TestApply_InvisibleRecordUpdated(t *testing.T) {
	_, cat := demoBoard(t)
	rec := cat.Find(device.HWMON, "temp")
	rec.SetVisible(false)

	Apply(cat, Batch{Category: device.HWMON, Updates: []Update{
		{Category: device.HWMON, Position: rec.Position, Name: "temp", Value: device.HWMONValue{Reading: 50000}},
	}})

	if got := rec.Value.(device.HWMONValue).Reading; got != 50000 {
		t.Errorf("temp reading = %d, want 50000", got)
	}
}

func TestDispatcher_DeliverBlocksUntilCancelled(t *testing.T) {
	d := NewDispatcher(1)
	if err := d.Deliver(context.Background(), Batch{Seq: 1}); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if d.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", d.Pending())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Deliver(ctx, Batch{Seq: 2}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Deliver() on full queue error = %v, want deadline exceeded", err)
	}
}

func TestPoller_ReadsVisibleRecordsOnly(t *testing.T) {
	sim, cat := demoBoard(t)
	group := cat.Group(device.GPIO)
	group.Records[0].SetVisible(true)
	group.Records[2].SetVisible(true)

	reader, err := sim.Accessors().Reader(device.GPIO)
	if err != nil {
		t.Fatal(err)
	}
	d := NewDispatcher(8)
	p := NewPoller(group, reader, testInterval, NewPauseRegistry(), d, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	b := nextBatch(t, d, time.Second)
	if b.Category != device.GPIO || b.Seq != 1 {
		t.Errorf("batch = %s seq=%d, want GPIO seq=1", b.Category, b.Seq)
	}
	var got []string
	for _, u := range b.Updates {
		got = append(got, u.Name)
	}
	if want := []string{"dio0", "dio2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("updated = %v, want %v", got, want)
	}

	if sim.Reads("dio1") != 0 || sim.Reads("can_stby") != 0 {
		t.Errorf("invisible records were read: dio1=%d can_stby=%d", sim.Reads("dio1"), sim.Reads("can_stby"))
	}
}

func TestPoller_PausedCategoryIsNotRead(t *testing.T) {
	sim, cat := demoBoard(t)
	group := cat.Group(device.GPIO)
	showAll(group)

	reader, _ := sim.Accessors().Reader(device.GPIO)
	pauses := NewPauseRegistry()
	pauses.Pause(device.GPIO)
	d := NewDispatcher(8)
	p := NewPoller(group, reader, testInterval, pauses, d, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	expectNoBatch(t, d, 10*testInterval)
	if n := sim.TotalReads(); n != 0 {
		t.Errorf("reads while paused = %d, want 0", n)
	}

	// the next tick after Resume polls again
	sim.SetInput("dio0", 1)
	pauses.Resume(device.GPIO)
	b := nextBatch(t, d, 5*testInterval)
	if b.Updates[0].Name != "dio0" || b.Updates[0].Value.(device.GPIOValue).Level != 1 {
		t.Errorf("first update = %+v, want dio0 level 1", b.Updates[0])
	}
}

func TestPoller_ReadFailureKeepsOtherDevices(t *testing.T) {
	sim, cat := demoBoard(t)
	group := cat.Group(device.HWMON)
	showAll(group)
	sim.FailReads("vdd_vin", errors.New("EIO"))

	reader, _ := sim.Accessors().Reader(device.HWMON)
	d := NewDispatcher(8)
	p := NewPoller(group, reader, testInterval, NewPauseRegistry(), d, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	b := nextBatch(t, d, time.Second)
	var got []string
	for _, u := range b.Updates {
		got = append(got, u.Name)
	}
	if want := []string{"temp", "vdd_3p3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("updated = %v, want %v", got, want)
	}

	prev := device.HWMONValue{Reading: 1}
	cat.Find(device.HWMON, "vdd_vin").Value = prev
	Apply(cat, b)
	if v := cat.Find(device.HWMON, "vdd_vin").Value; v != prev {
		t.Errorf("failed device value = %v, want previous %v", v, prev)
	}
}

func TestPoller_EmptyBatchNotDelivered(t *testing.T) {
	sim, cat := demoBoard(t)
	group := cat.Group(device.HWMON)

	reader, _ := sim.Accessors().Reader(device.HWMON)
	d := NewDispatcher(8)
	p := NewPoller(group, reader, testInterval, NewPauseRegistry(), d, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	expectNoBatch(t, d, 10*testInterval)
}

func TestPoller_SequenceIsMonotonic(t *testing.T) {
	sim, cat := demoBoard(t)
	group := cat.Group(device.HWMON)
	showAll(group)

	reader, _ := sim.Accessors().Reader(device.HWMON)
	d := NewDispatcher(8)
	p := NewPoller(group, reader, testInterval, NewPauseRegistry(), d, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	var last uint64
	for i := 0; i < 5; i++ {
		b := nextBatch(t, d, time.Second)
		if b.Seq != last+1 {
			t.Fatalf("seq = %d after %d", b.Seq, last)
		}
		last = b.Seq
	}
}

func TestPoller_WaitsFullIntervalAfterSlowTick(t *testing.T) {
	_, cat := demoBoard(t)
	group := cat.Group(device.HWMON)
	group.Records[0].SetVisible(true)

	type span struct{ start, end time.Time }
	reads := make(chan span, 2)
	calls := 0
	reader := device.ValueReaderFunc(func(name string) (device.Value, error) {
		s := span{start: time.Now()}
		calls++
		if calls == 1 {
			time.Sleep(5 * testInterval)
		}
		s.end = time.Now()
		select {
		case reads <- s:
		default:
		}
		return device.HWMONValue{Reading: calls}, nil
	})
	d := NewDispatcher(8)
	p := NewPoller(group, reader, testInterval, NewPauseRegistry(), d, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	var got []span
	for len(got) < 2 {
		select {
		case s := <-reads:
			got = append(got, s)
		case <-time.After(time.Second):
			t.Fatalf("got %d reads, want 2", len(got))
		}
	}
	if gap := got[1].start.Sub(got[0].end); gap < testInterval {
		t.Errorf("next read %v after the slow one finished, want at least %v", gap, testInterval)
	}
}

func TestPoller_StopsOnCancel(t *testing.T) {
	sim, cat := demoBoard(t)
	reader, _ := sim.Accessors().Reader(device.GPIO)
	p := NewPoller(cat.Group(device.GPIO), reader, testInterval, NewPauseRegistry(), NewDispatcher(1), nil)

	if p.State() != Idle {
		t.Errorf("State() = %v, want idle", p.State())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(3 * testInterval)
	if p.State() != Running {
		t.Errorf("State() = %v, want running", p.State())
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if p.State() != Stopped {
		t.Errorf("State() = %v, want stopped", p.State())
	}
	if err := p.Run(context.Background()); !errors.Is(err, ErrPollerStarted) {
		t.Errorf("second Run() error = %v, want ErrPollerStarted", err)
	}
}

func TestEngine_StartsPollersForPolledCategories(t *testing.T) {
	sim, cat := demoBoard(t)
	eng := New(cat, sim.Accessors(),
		WithInterval(device.GPIO, testInterval),
		WithInterval(device.HWMON, testInterval),
	)

	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	defer eng.Stop()

	var got []device.Category
	for _, p := range eng.Pollers() {
		got = append(got, p.Category())
	}
	if want := []device.Category{device.GPIO, device.HWMON}; !reflect.DeepEqual(got, want) {
		t.Errorf("polled categories = %v, want %v", got, want)
	}

	showAll(cat.Group(device.HWMON))
	sim.SetSensor("temp", 55000)
	deadline := time.After(time.Second)
	for {
		select {
		case b := <-eng.Dispatcher().Batches():
			Apply(cat, b)
			if v, ok := cat.Find(device.HWMON, "temp").Value.(device.HWMONValue); ok && v.Reading == 55000 {
				return
			}
		case <-deadline:
			t.Fatal("temp reading never reached the catalog")
		}
	}
}

func TestEngine_StopIsIdempotent(t *testing.T) {
	sim, cat := demoBoard(t)
	eng := New(cat, sim.Accessors(), WithInterval(device.GPIO, testInterval))

	eng.Stop() // before Start
	if err := eng.Start(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Start() after Stop error = %v, want ErrStopped", err)
	}

	eng2 := New(cat, sim.Accessors(), WithInterval(device.GPIO, testInterval))
	if err := eng2.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	eng2.Stop()
	eng2.Stop()
	for _, p := range eng2.Pollers() {
		if p.State() != Stopped {
			t.Errorf("%s poller state = %v, want stopped", p.Category(), p.State())
		}
	}
}

func TestEngine_IntervalOverride(t *testing.T) {
	sim, cat := demoBoard(t)
	eng := New(cat, sim.Accessors(), WithInterval(device.HWMON, 0))

	if got := eng.Interval(device.GPIO); got != 500*time.Millisecond {
		t.Errorf("GPIO interval = %v, want 500ms", got)
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer eng.Stop()
	if n := len(eng.Pollers()); n != 1 {
		t.Errorf("pollers = %d, want 1 (HWMON disabled)", n)
	}
}
