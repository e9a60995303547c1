// Package board owns the canonical, continuously reconciled order list.
// Three inputs mutate it: the one-shot snapshot fetch, server push events
// and local optimistic status edits. Nothing else does.
package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/platefront/platefront/internal/async"
	"github.com/platefront/platefront/internal/logging"
	"github.com/platefront/platefront/internal/model"
	"github.com/platefront/platefront/internal/push"
)

// SnapshotFetcher is the slice of the API client the board needs.
type SnapshotFetcher interface {
	Orders(ctx context.Context) ([]model.Order, error)
}

// Board reconciles the order collection. All state lives behind one mutex;
// request completions, push events and local edits each take it before
// touching anything, which stands in for the original single-threaded
// event loop.
type Board struct {
	mu           sync.Mutex
	fetcher      SnapshotFetcher
	pub          push.Publisher
	sub          push.Subscriber
	logger       *slog.Logger
	orders       []model.Order
	loaded       bool
	loadFailed   bool
	subscription push.Subscription
	arena        *async.Arena
	closed       bool
	onChange     func()
}

// New builds a board over the given fetcher and push channel.
func New(fetcher SnapshotFetcher, pub push.Publisher, sub push.Subscriber, logger *slog.Logger) *Board {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Board{
		fetcher: fetcher,
		pub:     pub,
		sub:     sub,
		logger:  logger,
		arena:   async.NewArena(),
	}
}

// OnChange registers a notification hook invoked after every visible
// mutation. It runs outside the board mutex, so it may read the board back
// through Snapshot. Must be set before Start.
func (b *Board) OnChange(fn func()) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Load issues the one cancellable snapshot fetch and replaces the
// collection on success. A transport failure is terminal for this board
// instance: LoadFailed turns sticky and no retry is attempted. A cancelled
// fetch is silent and changes nothing.
func (b *Board) Load(ctx context.Context) {
	loadCtx, cancel := context.WithCancel(ctx)
	b.arena.Track(cancel)
	defer cancel()

	orders, err := b.fetcher.Orders(loadCtx)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			b.mu.Unlock()
			return
		}
		b.logger.Error("order snapshot fetch failed", "error", err)
		b.loadFailed = true
		fn := b.onChange
		b.mu.Unlock()
		notify(fn)
		return
	}

	b.orders = orders
	b.loaded = true
	fn := b.onChange
	b.mu.Unlock()
	notify(fn)
}

// Start opens the push subscription. The three event handlers stay wired
// until Close.
func (b *Board) Start(ctx context.Context) error {
	if b.sub == nil {
		return fmt.Errorf("order board subscriber not configured")
	}
	sub, err := b.sub.Subscribe(ctx, model.TopicOrdersFromServer, b.handleEvent)
	if err != nil {
		return fmt.Errorf("cannot subscribe to order events: %w", err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = sub.Unsubscribe()
		return nil
	}
	b.subscription = sub
	b.mu.Unlock()
	return nil
}

func (b *Board) handleEvent(ctx context.Context, msg []byte) error {
	var env model.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		b.logger.Info("invalid order event", "error", err)
		return nil
	}

	switch env.EventType {
	case model.EventOrderCreatedFromServer:
		var o model.Order
		if err := env.Decode(&o); err != nil {
			b.logger.Info("invalid created order payload", "error", err)
			return nil
		}
		b.apply(func(orders []model.Order) []model.Order {
			return applyCreated(orders, o)
		})
	case model.EventOrderUpdatedFromServer:
		var o model.Order
		if err := env.Decode(&o); err != nil {
			b.logger.Info("invalid updated order payload", "error", err)
			return nil
		}
		b.apply(func(orders []model.Order) []model.Order {
			return applyUpdated(orders, o)
		})
	case model.EventOrdersDeletedFromServer:
		var deleted model.DeletedOrders
		if err := env.Decode(&deleted); err != nil {
			b.logger.Info("invalid deleted orders payload", "error", err)
			return nil
		}
		b.apply(func(orders []model.Order) []model.Order {
			return applyDeleted(orders, deleted.IDs)
		})
	default:
		b.logger.Debug("ignoring order event", "event_type", env.EventType)
	}
	return nil
}

func (b *Board) apply(transition func([]model.Order) []model.Order) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.orders = transition(b.orders)
	fn := b.onChange
	b.mu.Unlock()
	notify(fn)
}

// SetStatusOptimistic applies the new status locally right away and emits
// the status-change event with the caller's credential. Fire and forget:
// the authoritative confirmation arrives later as an update event and is
// idempotent with the local value.
func (b *Board) SetStatusOptimistic(ctx context.Context, o model.Order, status model.OrderStatus, cred model.Credential) {
	if !status.Valid() {
		b.logger.Info("ignoring invalid status edit", "order_id", o.ID.String(), "status", int(status))
		return
	}

	updated := o
	updated.Status = status
	b.apply(func(orders []model.Order) []model.Order {
		return applyUpdated(orders, updated)
	})

	msg, err := model.NewEnvelope(model.EventOrderUpdatedFromBrowser, model.StatusFromBrowser{
		Order: updated,
		Token: cred.Token,
	})
	if err != nil {
		b.logger.Error("cannot encode status edit", "error", err)
		return
	}
	if err := b.pub.Publish(ctx, model.TopicOrdersFromBrowser, msg); err != nil {
		b.logger.Error("cannot publish status edit", "order_id", o.ID.String(), "error", err)
	}
}

// Snapshot returns a copy of the current collection in board order.
func (b *Board) Snapshot() []model.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Order, len(b.orders))
	copy(out, b.orders)
	return out
}

// Loaded reports whether the initial snapshot has been applied.
func (b *Board) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

// LoadFailed reports the sticky terminal-failure flag.
func (b *Board) LoadFailed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadFailed
}

// Close unwires the push handlers and cancels outstanding work. No handler
// fires after Close returns.
func (b *Board) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	sub := b.subscription
	b.subscription = nil
	b.mu.Unlock()

	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			b.logger.Info("order board unsubscribe failed", "error", err)
		}
	}
	b.arena.CancelAll()
}

// notify runs the hook captured under the mutex. Invoking it unlocked lets
// the hook read the board without deadlocking.
func notify(fn func()) {
	if fn != nil {
		fn()
	}
}
