package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the preparation stage of an order on the board.
type OrderStatus int

const (
	StatusAccepted OrderStatus = iota
	StatusCooking
	StatusPackaging
	StatusReady
)

// String returns the display label for the status.
func (s OrderStatus) String() string {
	switch s {
	case StatusAccepted:
		return "Accepted"
	case StatusCooking:
		return "Cooking"
	case StatusPackaging:
		return "Packaging"
	case StatusReady:
		return "Ready"
	}
	return "Unknown"
}

// Valid reports whether the status is one of the known stages.
func (s OrderStatus) Valid() bool {
	return s >= StatusAccepted && s <= StatusReady
}

// Next returns the following stage. Ready stays Ready.
func (s OrderStatus) Next() OrderStatus {
	if s >= StatusReady {
		return StatusReady
	}
	return s + 1
}

// Order is one row on the order board. Identity is ID; everything else may
// be replaced wholesale by a server event.
type Order struct {
	ID          uuid.UUID   `json:"id"`
	OwnerID     uuid.UUID   `json:"client_id"`
	DisplayName string      `json:"username"`
	CreatedAt   time.Time   `json:"created_at"`
	Status      OrderStatus `json:"status"`
}
