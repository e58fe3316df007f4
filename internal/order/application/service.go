package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ordersys/fulfillment/internal/order/domain"
)

type Service struct {
	log   *slog.Logger
	repo  OrderRepository
	queue QueuePublisher
}

func NewService(log *slog.Logger, repo OrderRepository, queue QueuePublisher) *Service {
	return &Service{log: log, repo: repo, queue: queue}
}

// SubmitOrder validates the request, writes the order row, and enqueues a
// fulfillment message. The ledger write is the source of truth: a failed
// publish is logged and left for the sweeper, the caller still gets the
// order id back.
func (s *Service) SubmitOrder(ctx context.Context, userID string, items []domain.OrderItem, totalCents int64) (string, error) {
	if err := validateItems(items); err != nil {
		return "", err
	}

	o := domain.NewOrder(uuid.NewString(), userID, items, totalCents)
	if err := s.repo.Create(ctx, o); err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}

	msg := domain.FulfillmentMessage{OrderID: o.ID, Items: o.Items}
	if err := s.queue.Publish(ctx, msg); err != nil {
		s.log.Error("order persisted but publish failed, leaving for sweep",
			"order_id", o.ID, "err", err)
		return o.ID, nil
	}

	if err := s.repo.UpdateStatus(ctx, o.ID, domain.StatusEnqueued); err != nil {
		// The sweep may republish this order; the worker dedupes it.
		s.log.Error("status update after publish failed", "order_id", o.ID, "err", err)
	}
	return o.ID, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.Get(ctx, id)
}

func validateItems(items []domain.OrderItem) error {
	if len(items) == 0 {
		return &domain.ValidationError{Field: "items", Reason: "must not be empty"}
	}
	for _, it := range items {
		if it.ProductID == "" {
			return &domain.ValidationError{Field: "productId", Reason: "must not be empty"}
		}
		if it.Quantity <= 0 {
			return &domain.ValidationError{Field: "quantity", Reason: "must be positive"}
		}
	}
	return nil
}
