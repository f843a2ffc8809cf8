package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gateworks/periphmon/internal/catalog"
	"github.com/gateworks/periphmon/internal/engine"
)

// clientSendBuffer is the number of messages queued per client before the
// client is considered too slow and dropped.
const clientSendBuffer = 64

// ErrHubStopped is returned when the hub is no longer running
var ErrHubStopped = errors.New("feed hub stopped")

// Hub is the presentation context of the feed. Its Run goroutine drains the
// dispatcher and is the only code that writes record values while serving;
// clients and snapshot requests are handed to it over channels.
type Hub struct {
	cat     *catalog.Catalog
	batches <-chan engine.Batch
	logger  *zap.Logger

	register   chan *client
	unregister chan *client
	snapshots  chan chan Message
	done       chan struct{}

	clients map[*client]struct{} // owned by Run

	count     atomic.Int64
	applied   atomic.Int64
	discarded atomic.Int64
}

// NewHub creates a hub applying batches from the given queue to cat
func NewHub(cat *catalog.Catalog, batches <-chan engine.Batch, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		cat:        cat,
		batches:    batches,
		logger:     logger,
		register:   make(chan *client),
		unregister: make(chan *client),
		snapshots:  make(chan chan Message),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
	}
}

// Run serves the hub until ctx is cancelled or the batch queue is closed.
// All clients are disconnected when it returns.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case b, ok := <-h.batches:
			if !ok {
				return
			}
			h.apply(b)

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Add(1)
			if data, err := json.Marshal(h.snapshot()); err == nil {
				h.send(c, data)
			}

		case c := <-h.unregister:
			h.remove(c)

		case reply := <-h.snapshots:
			reply <- h.snapshot()
		}
	}
}

// Done is closed once Run has returned
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Snapshot returns the current state of every device as seen by the hub
func (h *Hub) Snapshot(ctx context.Context) (Message, error) {
	reply := make(chan Message, 1)
	select {
	case h.snapshots <- reply:
	case <-h.done:
		return Message{}, ErrHubStopped
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
	select {
	case msg := <-reply:
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// ClientCount returns the number of connected feed clients
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Stats returns how many updates were applied and discarded as stale
func (h *Hub) Stats() (applied, discarded int64) {
	return h.applied.Load(), h.discarded.Load()
}

func (h *Hub) addClient(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) removeClient(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) apply(b engine.Batch) {
	res := engine.Apply(h.cat, b)
	h.applied.Add(int64(res.Applied))
	h.discarded.Add(int64(res.Discarded))
	if res.Discarded > 0 {
		h.logger.Debug("Stale updates discarded",
			zap.Stringer("category", b.Category),
			zap.Uint64("seq", b.Seq),
			zap.Int("discarded", res.Discarded),
		)
	}
	if res.Applied == 0 || len(h.clients) == 0 {
		return
	}

	msg := Message{
		Type:      MessageUpdate,
		Category:  b.Category.String(),
		Seq:       b.Seq,
		Timestamp: timestamp(b.Produced),
	}
	for _, u := range b.Updates {
		rec := h.cat.Record(u.Category, u.Position)
		if rec == nil || rec.Name != u.Name || u.Value == nil {
			continue
		}
		msg.Devices = append(msg.Devices, newDeviceState(rec))
	}
	h.broadcast(msg)
}

func (h *Hub) snapshot() Message {
	msg := Message{
		Type:      MessageSnapshot,
		Timestamp: timestamp(time.Now()),
		Devices:   make([]DeviceState, 0, h.cat.Len()),
	}
	for _, rec := range h.cat.Records() {
		msg.Devices = append(msg.Devices, newDeviceState(rec))
	}
	return msg
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal feed message", zap.Error(err))
		return
	}
	for c := range h.clients {
		h.send(c, data)
	}
}

// send queues data for a client without blocking the hub
func (h *Hub) send(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.logger.Warn("Feed client too slow, disconnecting", zap.String("remote_addr", c.remote))
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.count.Add(-1)
}

func (h *Hub) closeAll() {
	for c := range h.clients {
		h.remove(c)
	}
}
