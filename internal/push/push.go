// Package push is the client's persistent bidirectional event channel,
// implemented over NATS.
package push

import "context"

// HandlerFunc consumes one raw message from a topic.
type HandlerFunc func(ctx context.Context, msg []byte) error

// Publisher sends client-originated events.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg []byte) error
}

// Subscriber delivers server-originated events in arrival order. The
// returned Subscription must be released on component teardown; after
// Unsubscribe returns, the handler is never invoked again.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler HandlerFunc) (Subscription, error)
}

// Subscription is one active topic binding.
type Subscription interface {
	Unsubscribe() error
}
