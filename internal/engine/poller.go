package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gateworks/periphmon/internal/catalog"
	"github.com/gateworks/periphmon/internal/device"
)

// PollerState is the lifecycle state of a Poller
type PollerState int32

const (
	Idle PollerState = iota
	Running
	Stopping
	Stopped
)

// String returns the state name
func (s PollerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("PollerState(%d)", int32(s))
	}
}

// ErrPollerStarted is returned by Run when the poller was already run once
var ErrPollerStarted = errors.New("poller already started")

// Poller periodically re-reads the visible records of one category and hands
// the results to the dispatcher. It never writes record fields.
type Poller struct {
	group    *catalog.Group
	reader   device.ValueReader
	interval time.Duration
	pauses   *PauseRegistry
	dispatch *Dispatcher
	logger   *zap.Logger

	state atomic.Int32
	seq   uint64 // owned by the Run goroutine
}

// NewPoller creates a poller for the records of group.
func NewPoller(group *catalog.Group, reader device.ValueReader, interval time.Duration,
	pauses *PauseRegistry, dispatch *Dispatcher, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		group:    group,
		reader:   reader,
		interval: interval,
		pauses:   pauses,
		dispatch: dispatch,
		logger:   logger.With(zap.Stringer("category", group.Category)),
	}
}

// Category returns the polled category
func (p *Poller) Category() device.Category {
	return p.group.Category
}

// State returns the current lifecycle state
func (p *Poller) State() PollerState {
	return PollerState(p.state.Load())
}

// Run polls until ctx is cancelled. The first tick happens one interval after
// Run is called and every later tick one full interval after the previous one
// finished, so a slow read never causes a burst of catch-up ticks. Cancellation is observed between ticks, so an in-flight
// tick always completes. Run may be called only once.
func (p *Poller) Run(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return ErrPollerStarted
	}
	if p.interval <= 0 {
		p.state.Store(int32(Stopped))
		return fmt.Errorf("invalid poll interval %v for %s", p.interval, p.group.Category)
	}

	p.logger.Debug("Poller started", zap.Duration("interval", p.interval))

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.stop()
			return nil
		case <-timer.C:
			if ctx.Err() != nil {
				p.stop()
				return nil
			}
			p.tick(ctx)
			timer.Reset(p.interval)
		}
	}
}

func (p *Poller) stop() {
	p.state.Store(int32(Stopping))
	p.logger.Debug("Poller stopped", zap.Uint64("last_seq", p.seq))
	p.state.Store(int32(Stopped))
}

// tick performs one poll cycle
func (p *Poller) tick(ctx context.Context) {
	if p.pauses.IsPaused(p.group.Category) {
		return
	}

	var updates []Update
	for _, rec := range p.group.Records {
		if !rec.Visible() {
			continue
		}
		value, err := p.reader.Read(rec.Name)
		if err != nil {
			var readErr *device.AccessorReadError
			if !errors.As(err, &readErr) {
				err = &device.AccessorReadError{Category: p.group.Category, Device: rec.Name, Err: err}
			}
			p.logger.Warn("Device read failed",
				zap.String("device", rec.Name),
				zap.Error(err),
			)
			continue
		}
		updates = append(updates, Update{
			Category: p.group.Category,
			Position: rec.Position,
			Name:     rec.Name,
			Value:    value,
		})
	}

	if len(updates) == 0 {
		return
	}

	batch := Batch{
		Category: p.group.Category,
		Seq:      p.seq + 1,
		Updates:  updates,
		Produced: time.Now(),
	}
	if err := p.dispatch.Deliver(ctx, batch); err != nil {
		p.logger.Debug("Batch dropped on shutdown", zap.Uint64("seq", batch.Seq))
		return
	}
	p.seq = batch.Seq
}
