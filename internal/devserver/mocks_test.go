package devserver

import (
	"context"
	"sync"

	"github.com/platefront/platefront/internal/model"
	"github.com/platefront/platefront/internal/push"
)

// fakeBus is an in-process push channel for tests.
type fakeBus struct {
	mu        sync.Mutex
	subs      map[string][]push.HandlerFunc
	published []fakeMessage
}

type fakeMessage struct {
	topic string
	msg   []byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: make(map[string][]push.HandlerFunc)}
}

func (b *fakeBus) Publish(ctx context.Context, topic string, msg []byte) error {
	b.mu.Lock()
	b.published = append(b.published, fakeMessage{topic: topic, msg: msg})
	b.mu.Unlock()
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, topic string, handler push.HandlerFunc) (push.Subscription, error) {
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], handler)
	b.mu.Unlock()
	return noopSubscription{}, nil
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() error { return nil }

func (b *fakeBus) deliver(topic string, msg []byte) {
	b.mu.Lock()
	handlers := append([]push.HandlerFunc(nil), b.subs[topic]...)
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

func mustEnvelope(eventType string, payload any) []byte {
	msg, err := model.NewEnvelope(eventType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}
