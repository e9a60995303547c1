package async

import "sync"

// Arena collects the cancel funcs of a component's outstanding work so that
// teardown can cancel everything in one pass. Tracking into a closed arena
// cancels immediately.
type Arena struct {
	mu      sync.Mutex
	cancels []func()
	closed  bool
}

func NewArena() *Arena {
	return &Arena{}
}

// Track registers cancel to be invoked on CancelAll.
func (a *Arena) Track(cancel func()) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		cancel()
		return
	}
	a.cancels = append(a.cancels, cancel)
	a.mu.Unlock()
}

// CancelAll cancels every tracked func and closes the arena.
func (a *Arena) CancelAll() {
	a.mu.Lock()
	cancels := a.cancels
	a.cancels = nil
	a.closed = true
	a.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
