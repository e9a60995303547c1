// Package basket owns the shopping basket and its derived totals. Totals
// are recomputed from products and entries on demand, never stored, so the
// displayed amount can never drift from the contents.
package basket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/platefront/platefront/internal/logging"
	"github.com/platefront/platefront/internal/model"
	"github.com/platefront/platefront/internal/push"
)

// Line is one computed basket row.
type Line struct {
	Product   model.Product
	Quantity  int
	LineTotal float64
}

// Summary is the derived view of the basket.
type Summary struct {
	Lines      []Line
	GrandTotal float64
}

// Totals computes line totals and the grand total for entries against the
// product reference set. Entries whose product is unknown are skipped.
func Totals(products []model.Product, entries []model.BasketEntry) Summary {
	byID := make(map[uuid.UUID]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var sum Summary
	for _, e := range entries {
		p, ok := byID[e.ProductID]
		if !ok {
			continue
		}
		line := Line{Product: p, Quantity: e.Quantity, LineTotal: p.Price * float64(e.Quantity)}
		sum.Lines = append(sum.Lines, line)
		sum.GrandTotal += line.LineTotal
	}
	return sum
}

// Basket holds the entry collection and the submission path.
type Basket struct {
	mu           sync.Mutex
	pub          push.Publisher
	sub          push.Subscriber
	logger       *slog.Logger
	entries      []model.BasketEntry
	subscription push.Subscription
	placed       func(model.Order)
	closed       bool
}

// New builds an empty basket over the push channel.
func New(pub push.Publisher, sub push.Subscriber, logger *slog.Logger) *Basket {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Basket{pub: pub, sub: sub, logger: logger}
}

// Add registers one click on a product: +1 on an existing entry, or a new
// entry with quantity 1.
func (b *Basket) Add(productID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.entries {
		if b.entries[i].ProductID == productID {
			b.entries[i].Quantity++
			return
		}
	}
	b.entries = append(b.entries, model.BasketEntry{ProductID: productID, Quantity: 1})
}

// Increment adds one to an existing entry; unknown products are ignored.
func (b *Basket) Increment(productID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.entries {
		if b.entries[i].ProductID == productID {
			b.entries[i].Quantity++
			return
		}
	}
}

// Decrement subtracts one; an entry at quantity 1 is removed entirely.
// Quantities below 1 are never stored.
func (b *Basket) Decrement(productID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.entries {
		if b.entries[i].ProductID != productID {
			continue
		}
		if b.entries[i].Quantity > 1 {
			b.entries[i].Quantity--
			return
		}
		b.entries = append(b.entries[:i], b.entries[i+1:]...)
		return
	}
}

// Entries returns a copy of the current basket contents.
func (b *Basket) Entries() []model.BasketEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.BasketEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Empty reports whether the basket has no entries.
func (b *Basket) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries) == 0
}

// Summarize computes the derived totals for the current contents.
func (b *Basket) Summarize(products []model.Product) Summary {
	return Totals(products, b.Entries())
}

// Submit emits one order-creation event carrying the basket and the
// caller's token. An empty basket is a silent no-op, not an error.
func (b *Basket) Submit(ctx context.Context, cred model.Credential) error {
	entries := b.Entries()
	if len(entries) == 0 {
		return nil
	}

	msg, err := model.NewEnvelope(model.EventOrderCreatedFromBrowser, model.OrderFromBrowser{
		Basket: entries,
		Token:  cred.Token,
	})
	if err != nil {
		return err
	}
	return b.pub.Publish(ctx, model.TopicOrdersFromBrowser, msg)
}

// Start listens for the server echo of this user's order creation and fires
// fn once per matching order. ownerID scopes the echo to the current user.
// fn runs under the basket mutex, which is what lets Close guarantee the
// callback never fires afterwards; it must not call back into the basket.
func (b *Basket) Start(ctx context.Context, ownerID uuid.UUID, fn func(model.Order)) error {
	b.mu.Lock()
	b.placed = fn
	b.mu.Unlock()

	if b.sub == nil {
		return nil
	}
	sub, err := b.sub.Subscribe(ctx, model.TopicOrdersFromServer, func(ctx context.Context, msg []byte) error {
		return b.handleEvent(ownerID, msg)
	})
	if err != nil {
		return err
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

func (b *Basket) handleEvent(ownerID uuid.UUID, msg []byte) error {
	var env model.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return nil
	}
	if env.EventType != model.EventOrderCreatedFromServer {
		return nil
	}
	var o model.Order
	if err := env.Decode(&o); err != nil {
		return nil
	}
	if o.OwnerID != ownerID {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.entries = nil
	if b.placed != nil {
		b.placed(o)
	}
	return nil
}

// Close unwires the echo listener. The callback never fires afterwards.
func (b *Basket) Close() {
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
			b.logger.Info("basket unsubscribe failed", "error", err)
		}
	}
}
