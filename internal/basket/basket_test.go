package basket

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/platefront/platefront/internal/model"
	"github.com/platefront/platefront/internal/push"
)

var (
	espressoID = uuid.MustParse("550e8400-e29b-41d4-a716-446655440010")
	pastaID    = uuid.MustParse("550e8400-e29b-41d4-a716-446655440011")
)

func testProducts() []model.Product {
	return []model.Product{
		{ID: espressoID, Name: "Espresso", Price: 5.0, Category: "drinks"},
		{ID: pastaID, Name: "Carbonara", Price: 11.0, Category: "main"},
	}
}

func TestTotals(t *testing.T) {
	tests := []struct {
		name      string
		entries   []model.BasketEntry
		wantLines int
		wantTotal float64
	}{
		{
			name:      "singleLine",
			entries:   []model.BasketEntry{{ProductID: espressoID, Quantity: 3}},
			wantLines: 1,
			wantTotal: 15.0,
		},
		{
			name: "multipleLines",
			entries: []model.BasketEntry{
				{ProductID: espressoID, Quantity: 2},
				{ProductID: pastaID, Quantity: 1},
			},
			wantLines: 2,
			wantTotal: 21.0,
		},
		{
			name:      "unknownProductSkipped",
			entries:   []model.BasketEntry{{ProductID: uuid.New(), Quantity: 4}},
			wantLines: 0,
			wantTotal: 0,
		},
		{
			name:      "empty",
			entries:   nil,
			wantLines: 0,
			wantTotal: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := Totals(testProducts(), tt.entries)
			if len(sum.Lines) != tt.wantLines {
				t.Errorf("Totals() lines = %d, want %d", len(sum.Lines), tt.wantLines)
			}
			if sum.GrandTotal != tt.wantTotal {
				t.Errorf("Totals() grand total = %v, want %v", sum.GrandTotal, tt.wantTotal)
			}
		})
	}
}

func TestBasketQuantityTransitions(t *testing.T) {
	b := New(&fakePublisher{}, nil, nil)

	t.Run("firstClickInsertsQuantityOne", func(t *testing.T) {
		b.Add(espressoID)
		entries := b.Entries()
		if len(entries) != 1 || entries[0].Quantity != 1 {
			t.Fatalf("Entries() = %+v, want one entry with quantity 1", entries)
		}
	})

	t.Run("repeatClickIncrements", func(t *testing.T) {
		b.Add(espressoID)
		if got := b.Entries()[0].Quantity; got != 2 {
			t.Errorf("quantity = %d, want 2", got)
		}
	})

	t.Run("decrementAboveOneKeepsEntry", func(t *testing.T) {
		b.Decrement(espressoID)
		entries := b.Entries()
		if len(entries) != 1 || entries[0].Quantity != 1 {
			t.Fatalf("Entries() = %+v, want one entry with quantity 1", entries)
		}
	})

	t.Run("decrementAtOneRemovesEntry", func(t *testing.T) {
		b.Decrement(espressoID)
		if got := len(b.Entries()); got != 0 {
			t.Errorf("Entries() len = %d, want 0 (zero quantity is never stored)", got)
		}
	})

	t.Run("decrementUnknownIsNoOp", func(t *testing.T) {
		b.Decrement(pastaID)
		if got := len(b.Entries()); got != 0 {
			t.Errorf("Entries() len = %d, want 0", got)
		}
	})
}

func TestBasketQuantityInvariant(t *testing.T) {
	b := New(&fakePublisher{}, nil, nil)
	b.Add(espressoID)
	b.Add(pastaID)
	b.Increment(espressoID)
	b.Decrement(pastaID)
	b.Decrement(pastaID)

	for _, e := range b.Entries() {
		if e.Quantity < 1 {
			t.Errorf("entry %s has quantity %d, want >= 1", e.ProductID, e.Quantity)
		}
	}
}

func TestBasketSubmit(t *testing.T) {
	t.Run("emptyBasketIsNoOp", func(t *testing.T) {
		pub := &fakePublisher{}
		b := New(pub, nil, nil)

		if err := b.Submit(context.Background(), model.Credential{Token: "tok"}); err != nil {
			t.Fatalf("Submit() error: %v", err)
		}
		if len(pub.published) != 0 {
			t.Errorf("published %d events for empty basket, want 0", len(pub.published))
		}
	})

	t.Run("nonEmptyBasketPublishesOnce", func(t *testing.T) {
		pub := &fakePublisher{}
		b := New(pub, nil, nil)
		b.Add(espressoID)
		b.Add(espressoID)

		if err := b.Submit(context.Background(), model.Credential{Token: "tok"}); err != nil {
			t.Fatalf("Submit() error: %v", err)
		}
		if len(pub.published) != 1 {
			t.Fatalf("published %d events, want 1", len(pub.published))
		}

		var env model.Envelope
		if err := json.Unmarshal(pub.published[0], &env); err != nil {
			t.Fatalf("cannot decode envelope: %v", err)
		}
		if env.EventType != model.EventOrderCreatedFromBrowser {
			t.Errorf("event type = %q, want %q", env.EventType, model.EventOrderCreatedFromBrowser)
		}
		var payload model.OrderFromBrowser
		if err := env.Decode(&payload); err != nil {
			t.Fatalf("cannot decode payload: %v", err)
		}
		if payload.Token != "tok" {
			t.Errorf("token = %q, want %q", payload.Token, "tok")
		}
		if len(payload.Basket) != 1 || payload.Basket[0].Quantity != 2 {
			t.Errorf("basket payload = %+v, want one entry with quantity 2", payload.Basket)
		}
	})
}

func TestBasketEchoFiresPlacedCallback(t *testing.T) {
	ownerID := uuid.New()
	bus := newFakeBus()
	b := New(bus, bus, nil)
	b.Add(espressoID)

	var placed []model.Order
	if err := b.Start(context.Background(), ownerID, func(o model.Order) {
		placed = append(placed, o)
	}); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer b.Close()

	t.Run("otherUsersOrderIgnored", func(t *testing.T) {
		other := model.Order{ID: uuid.New(), OwnerID: uuid.New()}
		bus.deliver(model.TopicOrdersFromServer, mustEnvelope(model.EventOrderCreatedFromServer, other))
		if len(placed) != 0 {
			t.Errorf("callback fired %d times for another user's order, want 0", len(placed))
		}
	})

	t.Run("ownOrderFiresAndClearsBasket", func(t *testing.T) {
		own := model.Order{ID: uuid.New(), OwnerID: ownerID}
		bus.deliver(model.TopicOrdersFromServer, mustEnvelope(model.EventOrderCreatedFromServer, own))
		if len(placed) != 1 {
			t.Fatalf("callback fired %d times, want 1", len(placed))
		}
		if !b.Empty() {
			t.Error("basket not cleared after own order echo")
		}
	})

	t.Run("noCallbackAfterClose", func(t *testing.T) {
		b.Close()
		own := model.Order{ID: uuid.New(), OwnerID: ownerID}
		bus.deliver(model.TopicOrdersFromServer, mustEnvelope(model.EventOrderCreatedFromServer, own))
		if len(placed) != 1 {
			t.Errorf("callback fired after Close, total %d, want 1", len(placed))
		}
	})
}

func TestBasketCloseWaitsForPlacedCallback(t *testing.T) {
	ownerID := uuid.New()
	bus := newFakeBus()
	b := New(bus, bus, nil)
	b.Add(espressoID)

	entered := make(chan struct{})
	release := make(chan struct{})
	var fired atomic.Int32
	if err := b.Start(context.Background(), ownerID, func(o model.Order) {
		if fired.Add(1) == 1 {
			close(entered)
			<-release
		}
	}); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	own := model.Order{ID: uuid.New(), OwnerID: ownerID}
	go bus.deliver(model.TopicOrdersFromServer, mustEnvelope(model.EventOrderCreatedFromServer, own))
	<-entered

	closed := make(chan struct{})
	go func() {
		b.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while the placed callback was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close never returned")
	}

	bus.deliver(model.TopicOrdersFromServer, mustEnvelope(model.EventOrderCreatedFromServer, own))
	if got := fired.Load(); got != 1 {
		t.Errorf("callback fired %d times, want 1 (never after Close)", got)
	}
}

// fakePublisher records published messages.
type fakePublisher struct {
	mu        sync.Mutex
	published [][]byte
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, msg)
	return nil
}

// fakeBus adds subscription delivery on top of fakePublisher.
type fakeBus struct {
	fakePublisher
	mu   sync.Mutex
	subs []*fakeSub
}

type fakeSub struct {
	bus     *fakeBus
	topic   string
	handler push.HandlerFunc
	active  bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{}
}

func (b *fakeBus) Subscribe(ctx context.Context, topic string, handler push.HandlerFunc) (push.Subscription, error) {
	s := &fakeSub{bus: b, topic: topic, handler: handler, active: true}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s, nil
}

func (s *fakeSub) Unsubscribe() error {
	s.bus.mu.Lock()
	s.active = false
	s.bus.mu.Unlock()
	return nil
}

func (b *fakeBus) deliver(topic string, msg []byte) {
	b.mu.Lock()
	var handlers []push.HandlerFunc
	for _, s := range b.subs {
		if s.active && s.topic == topic {
			handlers = append(handlers, s.handler)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		_ = h(context.Background(), msg)
	}
}

func mustEnvelope(eventType string, payload any) []byte {
	msg, err := model.NewEnvelope(eventType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}
