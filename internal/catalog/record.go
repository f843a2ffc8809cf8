package catalog

import (
	"strings"
	"sync/atomic"

	"github.com/gateworks/periphmon/internal/device"
)

// Record is the view state of one device. Records are created once when the
// catalog is built and live until the process exits.
//
// Ownership of the mutable fields is split by execution context:
//   - Value is written only by the presentation context (the Bubble Tea
//     update loop or the feed hub), either when applying a dispatched batch
//     or when echoing a user edit. Pollers never touch it.
//   - visible is written only by the presentation context and read by pollers
//     from their own goroutines, hence the atomic.
type Record struct {
	Category device.Category
	Name     string
	RawLine  string            // discovery line the record was created from
	Prop     string            // value parsed from RawLine
	Attrs    map[string]string // attribute lines sharing this name ("direction" -> "out")
	Position int               // index within the category, stable for the record's lifetime

	Value device.Value

	visible atomic.Bool
}

// Visible reports whether the record is currently shown
func (r *Record) Visible() bool {
	return r.visible.Load()
}

// SetVisible marks the record as shown or hidden. Presentation context only.
func (r *Record) SetVisible(v bool) {
	r.visible.Store(v)
}

// OutputOnly reports whether the line cannot be switched to input. CAN
// transceiver standby lines are wired as outputs on Gateworks boards.
func (r *Record) OutputOnly() bool {
	return r.Category == device.GPIO && strings.Contains(r.Name, "can_stby")
}

// Key returns a stable identifier such as "GPIO/dio0"
func (r *Record) Key() string {
	return r.Category.String() + "/" + r.Name
}

// Group is the ordered list of records of one category
type Group struct {
	Category device.Category
	Records  []*Record
}

// Len returns the number of records in the group
func (g *Group) Len() int {
	return len(g.Records)
}

// VisibleCount returns how many records are currently visible
func (g *Group) VisibleCount() int {
	n := 0
	for _, r := range g.Records {
		if r.Visible() {
			n++
		}
	}
	return n
}
