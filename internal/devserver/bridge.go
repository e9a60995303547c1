package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/platefront/platefront/internal/logging"
	"github.com/platefront/platefront/internal/model"
	"github.com/platefront/platefront/internal/push"
)

// Bridge consumes browser-originated push events, applies them to the
// store and broadcasts the authoritative server events back.
type Bridge struct {
	store        *Store
	pub          push.Publisher
	sub          push.Subscriber
	logger       *slog.Logger
	subscription push.Subscription
}

func NewBridge(store *Store, pub push.Publisher, sub push.Subscriber, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Bridge{store: store, pub: pub, sub: sub, logger: logger}
}

// Start binds the browser topic.
func (b *Bridge) Start(ctx context.Context) error {
	if b.sub == nil {
		return fmt.Errorf("bridge subscriber not configured")
	}
	sub, err := b.sub.Subscribe(ctx, model.TopicOrdersFromBrowser, b.handleEvent)
	if err != nil {
		return fmt.Errorf("cannot subscribe to browser events: %w", err)
	}
	b.subscription = sub
	return nil
}

// Close releases the topic binding.
func (b *Bridge) Close() {
	if b.subscription != nil {
		_ = b.subscription.Unsubscribe()
		b.subscription = nil
	}
}

func (b *Bridge) handleEvent(ctx context.Context, msg []byte) error {
	var env model.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		b.logger.Info("invalid browser event", "error", err)
		return nil
	}

	switch env.EventType {
	case model.EventOrderCreatedFromBrowser:
		return b.handleCreated(ctx, &env)
	case model.EventOrderUpdatedFromBrowser:
		return b.handleUpdated(ctx, &env)
	default:
		b.logger.Debug("ignoring browser event", "event_type", env.EventType)
	}
	return nil
}

func (b *Bridge) handleCreated(ctx context.Context, env *model.Envelope) error {
	var payload model.OrderFromBrowser
	if err := env.Decode(&payload); err != nil {
		b.logger.Info("invalid order creation payload", "error", err)
		return nil
	}
	if len(payload.Basket) == 0 {
		return nil
	}

	user, ok := b.store.UserByToken(payload.Token)
	if !ok {
		b.logger.Info("rejecting order creation with unknown token")
		return nil
	}

	order := b.store.AppendOrder(user)
	b.logger.Info("order created", "order_id", order.ID.String(), "username", user.Username)
	return b.broadcast(ctx, model.EventOrderCreatedFromServer, order)
}

func (b *Bridge) handleUpdated(ctx context.Context, env *model.Envelope) error {
	var payload model.StatusFromBrowser
	if err := env.Decode(&payload); err != nil {
		b.logger.Info("invalid status edit payload", "error", err)
		return nil
	}

	user, ok := b.store.UserByToken(payload.Token)
	if !ok || !user.IsAdmin {
		b.logger.Info("rejecting status edit without admin token")
		return nil
	}
	if !payload.Order.Status.Valid() {
		b.logger.Info("rejecting status edit with unknown status", "status", int(payload.Order.Status))
		return nil
	}
	if !b.store.UpdateOrder(payload.Order) {
		b.logger.Info("dropping status edit for unknown order", "order_id", payload.Order.ID.String())
		return nil
	}

	return b.broadcast(ctx, model.EventOrderUpdatedFromServer, payload.Order)
}

func (b *Bridge) broadcast(ctx context.Context, eventType string, payload any) error {
	msg, err := model.NewEnvelope(eventType, payload)
	if err != nil {
		b.logger.Error("cannot encode server event", "event_type", eventType, "error", err)
		return nil
	}
	if err := b.pub.Publish(ctx, model.TopicOrdersFromServer, msg); err != nil {
		b.logger.Error("cannot publish server event", "event_type", eventType, "error", err)
	}
	return nil
}
