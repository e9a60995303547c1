package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Push channel topics. The browser topic carries client-originated events,
// the server topic carries authoritative broadcasts.
const (
	TopicOrdersFromBrowser = "orders.browser"
	TopicOrdersFromServer  = "orders.server"
)

// Event types carried in the envelope discriminator.
const (
	EventOrderCreatedFromBrowser = "createdOrderFromBrowser"
	EventOrderUpdatedFromBrowser = "updatedOrderFromBrowser"
	EventOrderCreatedFromServer  = "createdOrderFromServer"
	EventOrderUpdatedFromServer  = "updatedOrderFromServer"
	EventOrdersDeletedFromServer = "deletedOrdersFromServer"
)

// Envelope wraps every push channel message with its event type.
type Envelope struct {
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into an envelope of the given event type.
func NewEnvelope(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal %s payload: %w", eventType, err)
	}
	return json.Marshal(Envelope{
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	})
}

// Decode unmarshals the envelope payload into out.
func (e *Envelope) Decode(out any) error {
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("cannot decode %s payload: %w", e.EventType, err)
	}
	return nil
}

// OrderFromBrowser is the order-creation event a client emits on submit.
type OrderFromBrowser struct {
	Basket []BasketEntry `json:"basket"`
	Token  string        `json:"token"`
}

// StatusFromBrowser carries an optimistic status edit with the caller's
// credential; the server echoes the authoritative order back later.
type StatusFromBrowser struct {
	Order Order  `json:"order"`
	Token string `json:"token"`
}

// DeletedOrders names the ids removed by the server, possibly as a batch.
type DeletedOrders struct {
	IDs []uuid.UUID `json:"order_ids"`
}
