package model

import "github.com/google/uuid"

// Product is read-only reference data for the session; once fetched it is
// never mutated.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"type"`
	ImageRef    string    `json:"imgsrc"`
}

// ProductCategory is one entry of the server-supplied category set. The set
// may vary per session; clients must never hardcode it.
type ProductCategory struct {
	Key   string `json:"key"`
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

// BasketEntry is one product line in the basket, unique per ProductID.
// Quantity is always >= 1; an entry that would drop to zero is removed.
type BasketEntry struct {
	ProductID uuid.UUID `json:"id"`
	Quantity  int       `json:"quantity"`
}

// Credential is the session identity handed out by the server on login or
// registration.
type Credential struct {
	Token    string    `json:"token"`
	Username string    `json:"username"`
	UserID   uuid.UUID `json:"user_id"`
	IsAdmin  bool      `json:"is_admin"`
}
