package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ordersys/fulfillment/internal/inventory/application"
	orderdom "github.com/ordersys/fulfillment/internal/order/domain"
	"github.com/ordersys/fulfillment/pkg/tracing"
)

var errDeliveriesClosed = errors.New("delivery channel closed by broker")

// Consumer runs the fulfillment workers against the durable queue. Workers
// share one delivery stream; duplicates across workers are resolved by the
// store's idempotency barrier, not by worker count.
type Consumer struct {
	log     *slog.Logger
	ch      *amqp.Channel
	queue   string
	svc     *application.Service
	workers int
	tracer  trace.Tracer
}

func NewConsumer(log *slog.Logger, ch *amqp.Channel, queue string, svc *application.Service, workers int) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{
		log:     log,
		ch:      ch,
		queue:   queue,
		svc:     svc,
		workers: workers,
		tracer:  otel.Tracer("fulfillment-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ch.Qos(c.workers, 0, false); err != nil {
		return err
	}

	deliveries, err := c.ch.Consume(
		c.queue,
		"",    // consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.workers; i++ {
		g.Go(func() error {
			return c.worker(ctx, deliveries)
		})
	}
	return g.Wait()
}

func (c *Consumer) worker(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errDeliveriesClosed
			}
			// Shutdown stops pulling, but a delivery already in hand
			// must reach its ack or nack.
			c.handle(context.WithoutCancel(ctx), d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	msgCtx := tracing.ExtractAMQPHeaders(ctx, d.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeFulfillmentMessage")
	defer span.End()

	var msg orderdom.FulfillmentMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.log.Error("unmarshal failed, dropping message", "err", err)
		_ = d.Ack(false)
		return
	}
	if d.Redelivered {
		msg.Attempt++
	}

	if err := c.svc.Fulfill(msgCtx, msg); err != nil {
		c.log.Error("fulfillment failed, requeueing", "order_id", msg.OrderID, "err", err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}
