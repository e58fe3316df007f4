package application

import (
	"context"
	"time"

	"github.com/ordersys/fulfillment/internal/order/domain"
)

type OrderRepository interface {
	Create(ctx context.Context, o domain.Order) error
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
	Get(ctx context.Context, id string) (domain.Order, error)
	// StaleCreated returns orders still in status created whose fulfillment
	// message may never have reached the queue.
	StaleCreated(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error)
}

type QueuePublisher interface {
	Publish(ctx context.Context, msg domain.FulfillmentMessage) error
}
