package engine

import (
	"context"
	"time"

	"github.com/gateworks/periphmon/internal/catalog"
	"github.com/gateworks/periphmon/internal/device"
)

// DefaultDispatchBuffer is the number of batches that can be queued before
// pollers block in Deliver.
const DefaultDispatchBuffer = 64

// Update is a freshly read value for one record, identified by category,
// position and name.
type Update struct {
	Category device.Category
	Position int
	Name     string
	Value    device.Value
}

// Batch is the immutable result of one poller tick.
type Batch struct {
	Category device.Category
	Seq      uint64 // increases by one per delivered batch of the category
	Updates  []Update
	Produced time.Time
}

// Dispatcher carries batches from pollers to the presentation context.
// Batches from one poller arrive in the order they were produced.
type Dispatcher struct {
	ch chan Batch
}

// NewDispatcher creates a dispatcher queueing up to buffer batches.
// A non-positive buffer selects DefaultDispatchBuffer.
func NewDispatcher(buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultDispatchBuffer
	}
	return &Dispatcher{ch: make(chan Batch, buffer)}
}

// Deliver queues a batch. It blocks while the queue is full and returns the
// context error if ctx is done first.
func (d *Dispatcher) Deliver(ctx context.Context, b Batch) error {
	select {
	case d.ch <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Batches returns the receive side of the queue. Only the presentation
// context may drain it.
func (d *Dispatcher) Batches() <-chan Batch {
	return d.ch
}

// Pending returns the number of queued batches
func (d *Dispatcher) Pending() int {
	return len(d.ch)
}

// ApplyResult counts what happened to the updates of one batch.
type ApplyResult struct {
	Applied   int
	Discarded int // updates whose record no longer matches
}

// Apply writes the values of a batch into the catalog records. It must run on
// the presentation context.
//
// Every update is re-checked against the catalog: if there is no record at the
// position, or the record there has a different name, the update is dropped.
// Invisible records are updated all the same.
func Apply(c *catalog.Catalog, b Batch) ApplyResult {
	var res ApplyResult
	if c == nil {
		res.Discarded = len(b.Updates)
		return res
	}
	for _, u := range b.Updates {
		rec := c.Record(u.Category, u.Position)
		if rec == nil || rec.Name != u.Name || u.Value == nil {
			res.Discarded++
			continue
		}
		rec.Value = u.Value
		res.Applied++
	}
	return res
}
