package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	invdom "github.com/ordersys/fulfillment/internal/inventory/domain"
	orderdom "github.com/ordersys/fulfillment/internal/order/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// ApplyOrder claims the order's fulfillment record and decrements stock for
// every line item in one transaction. The conditional insert on
// fulfillments(order_id) is the concurrency barrier: of two workers holding
// the same redelivered message, only one insert succeeds, the other sees
// ErrAlreadyApplied and acks without mutating stock. Any line item short on
// stock rolls the whole transaction back, claim included.
func (r *Repository) ApplyOrder(ctx context.Context, orderID string, items []orderdom.OrderItem) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `INSERT INTO fulfillments (order_id) VALUES ($1) ON CONFLICT (order_id) DO NOTHING`, orderID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return invdom.ErrAlreadyApplied
	}

	for _, item := range items {
		if err := decreaseStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`,
		orderID, orderdom.StatusFulfilled)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// MarkFailed records an oversell decision as final: the fulfillment record
// exists so duplicates short-circuit, and the order is marked permanently
// failed. Stock is untouched.
func (r *Repository) MarkFailed(ctx context.Context, orderID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO fulfillments (order_id) VALUES ($1) ON CONFLICT (order_id) DO NOTHING`, orderID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`,
		orderID, orderdom.StatusFailedPermanently)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DecreaseStock applies a single conditional decrement outside any larger
// transaction. Zero rows affected means the guard failed, not that the
// store is down.
func (r *Repository) DecreaseStock(ctx context.Context, productID string, quantity int) error {
	ct, err := r.pool.Exec(ctx, `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
		productID, quantity)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return invdom.ErrInsufficientStock
	}
	return nil
}

func decreaseStock(ctx context.Context, tx pgx.Tx, productID string, quantity int) error {
	ct, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
		productID, quantity)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return invdom.ErrInsufficientStock
	}
	return nil
}
