package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gateworks/periphmon/internal/catalog"
	"github.com/gateworks/periphmon/internal/device"
)

// ErrStopped is returned by Start after Stop was called
var ErrStopped = errors.New("engine stopped")

// Engine owns the pollers of a catalog together with the pause registry and
// dispatcher they share.
type Engine struct {
	catalog   *catalog.Catalog
	accessors device.Accessors
	logger    *zap.Logger
	intervals map[device.Category]time.Duration
	buffer    int

	pauses   *PauseRegistry
	dispatch *Dispatcher
	editor   *Editor

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	pollers []*Poller
	wg      sync.WaitGroup
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger; the default is a no-op logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithInterval overrides the poll interval of a category. Zero disables
// polling of the category.
func WithInterval(cat device.Category, d time.Duration) Option {
	return func(e *Engine) {
		e.intervals[cat] = d
	}
}

// WithDispatchBuffer sets the dispatcher queue size
func WithDispatchBuffer(n int) Option {
	return func(e *Engine) {
		e.buffer = n
	}
}

// New creates an engine for the catalog. Nothing runs until Start.
func New(c *catalog.Catalog, acc device.Accessors, opts ...Option) *Engine {
	e := &Engine{
		catalog:   c,
		accessors: acc,
		logger:    zap.NewNop(),
		intervals: make(map[device.Category]time.Duration),
		pauses:    NewPauseRegistry(),
	}
	for _, cat := range device.Categories {
		e.intervals[cat] = cat.DefaultInterval()
	}
	for _, opt := range opts {
		opt(e)
	}
	e.dispatch = NewDispatcher(e.buffer)
	e.editor = NewEditor(acc, e.logger)
	return e
}

// Catalog returns the catalog the engine polls
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Pauses returns the shared pause registry
func (e *Engine) Pauses() *PauseRegistry { return e.pauses }

// Dispatcher returns the dispatcher the presentation context drains
func (e *Engine) Dispatcher() *Dispatcher { return e.dispatch }

// Editor returns the edit wrappers bound to the engine's accessors
func (e *Engine) Editor() *Editor { return e.editor }

// Interval returns the configured poll interval of a category
func (e *Engine) Interval(cat device.Category) time.Duration {
	return e.intervals[cat]
}

// Start launches one poller per polled category present in the catalog.
// Calling Start again is a no-op. A category without an accessor is
// logged and skipped.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return ErrStopped
	}
	if e.started {
		return nil
	}
	e.started = true

	ctx, e.cancel = context.WithCancel(ctx)

	for _, group := range e.catalog.Groups() {
		interval := e.intervals[group.Category]
		if interval <= 0 {
			continue
		}
		reader, err := e.accessors.Reader(group.Category)
		if err != nil {
			e.logger.Warn("Category not polled",
				zap.Stringer("category", group.Category),
				zap.Error(err),
			)
			continue
		}

		p := NewPoller(group, reader, interval, e.pauses, e.dispatch, e.logger)
		e.pollers = append(e.pollers, p)

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := p.Run(ctx); err != nil {
				e.logger.Error("Poller failed", zap.Stringer("category", p.Category()), zap.Error(err))
			}
		}()
	}

	e.logger.Info("Engine started",
		zap.Int("pollers", len(e.pollers)),
		zap.Int("devices", e.catalog.Len()),
	)
	return nil
}

// Stop cancels every poller and waits for in-flight ticks to finish.
// It is safe to call more than once and before Start.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
	e.logger.Info("Engine stopped")
}

// Pollers returns the running pollers
func (e *Engine) Pollers() []*Poller {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Poller, len(e.pollers))
	copy(out, e.pollers)
	return out
}
