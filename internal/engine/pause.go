package engine

import (
	"sync"

	"github.com/gateworks/periphmon/internal/device"
)

// PauseRegistry is the set of categories whose pollers must skip their ticks.
// It is written by the presentation context when a category is collapsed or
// expanded and read by every poller at the top of each tick.
type PauseRegistry struct {
	mu     sync.RWMutex
	paused map[device.Category]struct{}
}

// NewPauseRegistry returns an empty registry; nothing is paused.
func NewPauseRegistry() *PauseRegistry {
	return &PauseRegistry{paused: make(map[device.Category]struct{})}
}

// Pause stops polling of a category. Pausing twice is a no-op.
func (r *PauseRegistry) Pause(cat device.Category) {
	r.mu.Lock()
	r.paused[cat] = struct{}{}
	r.mu.Unlock()
}

// Resume restarts polling of a category. Resuming a category that is not
// paused is a no-op.
func (r *PauseRegistry) Resume(cat device.Category) {
	r.mu.Lock()
	delete(r.paused, cat)
	r.mu.Unlock()
}

// IsPaused reports whether cat is paused
func (r *PauseRegistry) IsPaused(cat device.Category) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.paused[cat]
	return ok
}

// Paused returns the paused categories in display order
func (r *PauseRegistry) Paused() []device.Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []device.Category
	for _, c := range device.Categories {
		if _, ok := r.paused[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
