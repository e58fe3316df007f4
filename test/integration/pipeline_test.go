package integration

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invapp "github.com/ordersys/fulfillment/internal/inventory/application"
	invdom "github.com/ordersys/fulfillment/internal/inventory/domain"
	invpg "github.com/ordersys/fulfillment/internal/inventory/infrastructure/postgres"
	invmq "github.com/ordersys/fulfillment/internal/inventory/infrastructure/rabbitmq"
	orderapp "github.com/ordersys/fulfillment/internal/order/application"
	orderdom "github.com/ordersys/fulfillment/internal/order/domain"
	orderpg "github.com/ordersys/fulfillment/internal/order/infrastructure/postgres"
	rmq "github.com/ordersys/fulfillment/pkg/rabbitmq"
)

type noopCache struct{}

func (noopCache) Seen(context.Context, string) (bool, error) { return false, nil }
func (noopCache) Mark(context.Context, string) error         { return nil }

func TestPipelineAgainstRealStores(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	env, err := Setup(ctx)
	if err != nil {
		t.Skipf("container environment unavailable: %v", err)
		return
	}
	defer env.Teardown(ctx)

	log := slog.New(slog.DiscardHandler)

	pool, err := pgxpool.New(ctx, env.PGURL)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, orderpg.EnsureSchema(ctx, pool))

	_, err = pool.Exec(ctx, `INSERT INTO products (id, name, price_cents, stock, user_id)
		VALUES ('p1', 'widget', 1000, 10, 'u1')`)
	require.NoError(t, err)

	conn, ch, err := rmq.SetupConn(env.AMQPURL, "order_queue")
	require.NoError(t, err)
	defer conn.Close()
	defer ch.Close()

	orderRepo := orderpg.NewRepository(log, pool)
	publisher := rmq.NewPublisher(ch, "order_queue")
	orderSvc := orderapp.NewService(log, orderRepo, publisher)

	invRepo := invpg.NewRepository(log, pool)
	invSvc := invapp.NewService(log, invRepo, noopCache{})
	consumer := invmq.NewConsumer(log, ch, "order_queue", invSvc, 2)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	go func() { _ = consumer.Run(workerCtx) }()

	orderID, err := orderSvc.SubmitOrder(ctx, "u1",
		[]orderdom.OrderItem{{ProductID: "p1", Quantity: 2}}, 2000)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		o, err := orderRepo.Get(ctx, orderID)
		return err == nil && o.Status == orderdom.StatusFulfilled
	}, 15*time.Second, 200*time.Millisecond, "order never reached fulfilled")

	var stock int
	require.NoError(t, pool.QueryRow(ctx, `SELECT stock FROM products WHERE id='p1'`).Scan(&stock))
	assert.Equal(t, 8, stock)

	// Oversell: decided at fulfillment, stock untouched, status final.
	overID, err := orderSvc.SubmitOrder(ctx, "u1",
		[]orderdom.OrderItem{{ProductID: "p1", Quantity: 999}}, 999000)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		o, err := orderRepo.Get(ctx, overID)
		return err == nil && o.Status == orderdom.StatusFailedPermanently
	}, 15*time.Second, 200*time.Millisecond, "oversell order never reached failed_permanently")

	require.NoError(t, pool.QueryRow(ctx, `SELECT stock FROM products WHERE id='p1'`).Scan(&stock))
	assert.Equal(t, 8, stock)

	// The conditional update distinguishes an unsatisfied guard from a
	// connectivity failure.
	err = invRepo.DecreaseStock(ctx, "p1", 999)
	require.ErrorIs(t, err, invdom.ErrInsufficientStock)
	require.NoError(t, invRepo.DecreaseStock(ctx, "p1", 3))
	require.NoError(t, pool.QueryRow(ctx, `SELECT stock FROM products WHERE id='p1'`).Scan(&stock))
	assert.Equal(t, 5, stock)
}
