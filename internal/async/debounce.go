// Package async holds the scheduling primitives shared by the board and the
// form validators: debounced timers, cancellable calls and per-owner arenas.
package async

import (
	"sync"
	"time"
)

// Debouncer schedules at most one pending func per key. Scheduling again
// for the same key cancels the previously scheduled func if it has not
// fired yet. Keys fire independently of each other.
type Debouncer struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func NewDebouncer() *Debouncer {
	return &Debouncer{timers: make(map[string]*time.Timer)}
}

// Call schedules fn to run after delay, superseding any pending fn for key.
func (d *Debouncer) Call(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if prev, ok := d.timers[key]; ok {
		prev.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		d.mu.Lock()
		current, ok := d.timers[key]
		if !ok || current != t || d.stopped {
			// Superseded or stopped between firing and acquiring the lock.
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
	d.timers[key] = t
}

// Cancel drops the pending func for key, if any.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

// Stop cancels every pending func and rejects further scheduling.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
