package async

import (
	"context"
	"sync"
)

// Call is one cancellable outbound operation. Cancelling before completion
// guarantees the completion callback never runs; cancellation is "ignore
// the result", not "abort the operation" — the underlying work may still
// finish server-side.
type Call struct {
	mu        sync.Mutex
	cancel    context.CancelFunc
	delivered bool
	cancelled bool
}

// Run starts fn on its own goroutine with a context derived from ctx and
// invokes complete with fn's error unless the call was cancelled first.
// complete runs outside the Call's internal lock.
func Run(ctx context.Context, fn func(ctx context.Context) error, complete func(err error)) *Call {
	callCtx, cancel := context.WithCancel(ctx)
	c := &Call{cancel: cancel}

	go func() {
		err := fn(callCtx)
		cancel()

		c.mu.Lock()
		if c.cancelled {
			c.mu.Unlock()
			return
		}
		c.delivered = true
		c.mu.Unlock()

		if complete != nil {
			complete(err)
		}
	}()

	return c
}

// Cancel makes any not-yet-delivered completion inert and cancels the
// call's context. Cancelling after delivery is a no-op.
func (c *Call) Cancel() {
	c.mu.Lock()
	if c.delivered || c.cancelled {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	c.mu.Unlock()
	c.cancel()
}
