package board

import (
	"github.com/google/uuid"
	"github.com/platefront/platefront/internal/model"
)

// Pure transition functions over an immutable order sequence. Every board
// mutation funnels through one of these; the Board only decides when to
// call them and under which lock.

// applyCreated appends o at the tail unless an order with the same id is
// already present. The board is presented in arrival order, so create never
// sorts and a redelivered create never duplicates a row.
func applyCreated(orders []model.Order, o model.Order) []model.Order {
	for _, existing := range orders {
		if existing.ID == o.ID {
			return orders
		}
	}
	next := make([]model.Order, len(orders), len(orders)+1)
	copy(next, orders)
	return append(next, o)
}

// applyUpdated replaces the entry matching o.ID in place, preserving its
// position. An update for an unknown id is dropped; inserting here would
// turn an update-before-create race into a phantom row.
func applyUpdated(orders []model.Order, o model.Order) []model.Order {
	for i, existing := range orders {
		if existing.ID == o.ID {
			next := make([]model.Order, len(orders))
			copy(next, orders)
			next[i] = o
			return next
		}
	}
	return orders
}

// applyDeleted removes every order whose id is in ids, in one pass,
// keeping the survivors' relative order.
func applyDeleted(orders []model.Order, ids []uuid.UUID) []model.Order {
	if len(ids) == 0 {
		return orders
	}
	drop := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	next := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if _, gone := drop[o.ID]; !gone {
			next = append(next, o)
		}
	}
	return next
}
