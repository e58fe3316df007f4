package domain

import "time"

type OrderStatus string

const (
	// StatusCreated means the ledger row exists but the fulfillment
	// message has not been confirmed on the queue yet.
	StatusCreated           OrderStatus = "created"
	StatusEnqueued          OrderStatus = "enqueued"
	StatusFulfilled         OrderStatus = "fulfilled"
	StatusFailedPermanently OrderStatus = "failed_permanently"
)

type Order struct {
	ID         string
	UserID     string
	Items      []OrderItem
	TotalCents int64
	Status     OrderStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func NewOrder(id, userID string, items []OrderItem, totalCents int64) Order {
	now := time.Now().UTC()
	return Order{
		ID:         id,
		UserID:     userID,
		Items:      items,
		TotalCents: totalCents,
		Status:     StatusCreated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
