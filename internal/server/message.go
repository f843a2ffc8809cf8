package server

import (
	"time"

	"github.com/gateworks/periphmon/internal/catalog"
	"github.com/gateworks/periphmon/internal/device"
)

// Message types sent to feed clients
const (
	MessageSnapshot = "snapshot"
	MessageUpdate   = "update"
)

// Message is one JSON document of the feed. A snapshot lists every device;
// an update lists the devices changed by one poller batch.
type Message struct {
	Type      string        `json:"type"`
	Category  string        `json:"category,omitempty"`
	Seq       uint64        `json:"seq,omitempty"`
	Timestamp string        `json:"timestamp"`
	Devices   []DeviceState `json:"devices"`
}

// DeviceState is the wire form of a record
type DeviceState struct {
	Category   string       `json:"category"`
	Position   int          `json:"position"`
	Name       string       `json:"name"`
	OutputOnly bool         `json:"output_only,omitempty"`
	Display    string       `json:"display,omitempty"`
	Value      device.Value `json:"value"`
}

func newDeviceState(rec *catalog.Record) DeviceState {
	st := DeviceState{
		Category:   rec.Category.String(),
		Position:   rec.Position,
		Name:       rec.Name,
		OutputOnly: rec.OutputOnly(),
		Value:      rec.Value,
	}
	if rec.Value != nil {
		st.Display = rec.Value.String()
	}
	return st
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}
