package application

import (
	"context"

	orderdom "github.com/ordersys/fulfillment/internal/order/domain"
)

// InventoryStore is the ledger side of fulfillment. ApplyOrder must be
// all-or-nothing: the idempotency claim, every line-item decrement, and the
// order status transition commit together or not at all.
type InventoryStore interface {
	// ApplyOrder returns domain.ErrAlreadyApplied when a fulfillment record
	// for the order exists, and domain.ErrInsufficientStock when any line
	// item cannot be covered (in which case nothing is decremented).
	ApplyOrder(ctx context.Context, orderID string, items []orderdom.OrderItem) error
	// MarkFailed records the oversell decision durably so redeliveries do
	// not retry it: fulfillment record plus status failed_permanently.
	MarkFailed(ctx context.Context, orderID string) error
}

// DuplicateCache is a fast-path check in front of the store's uniqueness
// constraint. It may miss or fail; it must never be the only barrier.
type DuplicateCache interface {
	Seen(ctx context.Context, orderID string) (bool, error)
	Mark(ctx context.Context, orderID string) error
}
