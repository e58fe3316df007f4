package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	invdom "github.com/ordersys/fulfillment/internal/inventory/domain"
	orderdom "github.com/ordersys/fulfillment/internal/order/domain"
)

type Service struct {
	log   *slog.Logger
	store InventoryStore
	cache DuplicateCache
}

func NewService(log *slog.Logger, store InventoryStore, cache DuplicateCache) *Service {
	return &Service{log: log, store: store, cache: cache}
}

// Fulfill applies one delivery of a fulfillment message. A nil return means
// the delivery is settled and must be acked: stock applied, duplicate
// skipped, or oversell recorded as final. A non-nil return means the
// outcome is transient and the message must be redelivered.
func (s *Service) Fulfill(ctx context.Context, msg orderdom.FulfillmentMessage) error {
	seen, err := s.cache.Seen(ctx, msg.OrderID)
	if err != nil {
		// Cache down: fall through, the store's uniqueness constraint
		// still dedupes.
		s.log.Warn("duplicate cache check failed", "order_id", msg.OrderID, "err", err)
	}
	if seen {
		s.log.Info("duplicate delivery skipped", "order_id", msg.OrderID, "attempt", msg.Attempt)
		return nil
	}

	err = s.store.ApplyOrder(ctx, msg.OrderID, msg.Items)
	switch {
	case err == nil:
		s.markCache(ctx, msg.OrderID)
		s.log.Info("order fulfilled", "order_id", msg.OrderID, "items", len(msg.Items))
		return nil

	case errors.Is(err, invdom.ErrAlreadyApplied):
		s.markCache(ctx, msg.OrderID)
		s.log.Info("duplicate delivery skipped", "order_id", msg.OrderID, "attempt", msg.Attempt)
		return nil

	case errors.Is(err, invdom.ErrInsufficientStock):
		if err := s.store.MarkFailed(ctx, msg.OrderID); err != nil {
			return fmt.Errorf("record oversell for %s: %w", msg.OrderID, err)
		}
		s.markCache(ctx, msg.OrderID)
		s.log.Warn("order failed permanently: insufficient stock", "order_id", msg.OrderID)
		return nil

	default:
		return fmt.Errorf("apply order %s: %w", msg.OrderID, err)
	}
}

func (s *Service) markCache(ctx context.Context, orderID string) {
	if err := s.cache.Mark(ctx, orderID); err != nil {
		s.log.Warn("duplicate cache mark failed", "order_id", orderID, "err", err)
	}
}
