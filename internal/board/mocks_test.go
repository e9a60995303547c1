package board

import (
	"context"
	"sync"

	"github.com/platefront/platefront/internal/model"
	"github.com/platefront/platefront/internal/push"
)

// fakeBus is an in-process push channel for tests. Deliveries run on the
// caller's goroutine, matching the arrival-order guarantee of the real one.
type fakeBus struct {
	mu        sync.Mutex
	subs      map[string][]*fakeSub
	published []fakeMessage
}

type fakeMessage struct {
	topic string
	msg   []byte
}

type fakeSub struct {
	bus     *fakeBus
	topic   string
	handler push.HandlerFunc
	active  bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: make(map[string][]*fakeSub)}
}

func (b *fakeBus) Publish(ctx context.Context, topic string, msg []byte) error {
	b.mu.Lock()
	b.published = append(b.published, fakeMessage{topic: topic, msg: msg})
	b.mu.Unlock()
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, topic string, handler push.HandlerFunc) (push.Subscription, error) {
	s := &fakeSub{bus: b, topic: topic, handler: handler, active: true}
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()
	return s, nil
}

func (s *fakeSub) Unsubscribe() error {
	s.bus.mu.Lock()
	s.active = false
	s.bus.mu.Unlock()
	return nil
}

// deliver pushes one server event to the active handlers on topic.
func (b *fakeBus) deliver(topic string, msg []byte) {
	b.mu.Lock()
	var handlers []push.HandlerFunc
	for _, s := range b.subs[topic] {
		if s.active {
			handlers = append(handlers, s.handler)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		_ = h(context.Background(), msg)
	}
}

func (b *fakeBus) publishedTo(topic string) []fakeMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []fakeMessage
	for _, m := range b.published {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// fakeFetcher serves a canned snapshot or a canned error.
type fakeFetcher struct {
	orders []model.Order
	err    error
	calls  int
}

func (f *fakeFetcher) Orders(ctx context.Context) ([]model.Order, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

func mustEnvelope(eventType string, payload any) []byte {
	msg, err := model.NewEnvelope(eventType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}
