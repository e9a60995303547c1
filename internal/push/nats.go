package push

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Conn is a NATS-backed push channel. One Conn serves both directions.
type Conn struct {
	conn *nats.Conn
}

// Connect dials the NATS server at url.
func Connect(url string) (*Conn, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to NATS: %w", err)
	}
	return &Conn{conn: conn}, nil
}

// Publish sends msg on topic.
func (c *Conn) Publish(ctx context.Context, topic string, msg []byte) error {
	return c.conn.Publish(topic, msg)
}

// Subscribe binds handler to topic. Handler errors are swallowed; a push
// event that cannot be applied is dropped, never redelivered.
func (c *Conn) Subscribe(ctx context.Context, topic string, handler HandlerFunc) (Subscription, error) {
	sub, err := c.conn.Subscribe(topic, func(m *nats.Msg) {
		_ = handler(ctx, m.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("cannot subscribe to %s: %w", topic, err)
	}
	return &natsSubscription{sub: sub}, nil
}

// Close tears the connection down. Outstanding subscriptions die with it.
func (c *Conn) Close() error {
	c.conn.Close()
	return nil
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (s *natsSubscription) Unsubscribe() error {
	return s.sub.Unsubscribe()
}
