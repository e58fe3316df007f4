package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ordersys/fulfillment/internal/order/domain"
)

// Sweeper reconciles orders whose ledger write succeeded but whose publish
// never did. It periodically republishes anything stuck in status created
// past a grace period. Republishing an already-delivered order is harmless:
// the worker's idempotency record turns the duplicate into a no-op.
type Sweeper struct {
	log       *slog.Logger
	repo      OrderRepository
	queue     QueuePublisher
	interval  time.Duration
	grace     time.Duration
	batchSize int
}

func NewSweeper(log *slog.Logger, repo OrderRepository, queue QueuePublisher, interval, grace time.Duration) *Sweeper {
	return &Sweeper{
		log:       log,
		repo:      repo,
		queue:     queue,
		interval:  interval,
		grace:     grace,
		batchSize: 100,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopping")
			return nil
		case <-t.C:
			if err := s.sweep(ctx); err != nil {
				s.log.Error("sweep failed", "err", err)
			}
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) error {
	orders, err := s.repo.StaleCreated(ctx, s.grace, s.batchSize)
	if err != nil {
		return err
	}
	for _, o := range orders {
		msg := domain.FulfillmentMessage{OrderID: o.ID, Items: o.Items, Attempt: 1}
		if err := s.queue.Publish(ctx, msg); err != nil {
			s.log.Error("sweep publish failed", "order_id", o.ID, "err", err)
			continue
		}
		if err := s.repo.UpdateStatus(ctx, o.ID, domain.StatusEnqueued); err != nil {
			s.log.Error("sweep status update failed", "order_id", o.ID, "err", err)
			continue
		}
		s.log.Info("stale order requeued", "order_id", o.ID)
	}
	return nil
}
