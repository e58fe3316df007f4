package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ordersys/fulfillment/internal/order/domain"
	"github.com/ordersys/fulfillment/pkg/tracing"
)

// Publisher puts fulfillment messages on the durable queue with the
// persistence flag set, so they survive a broker restart.
type Publisher struct {
	ch    *amqp.Channel
	queue string
}

func NewPublisher(ch *amqp.Channel, queue string) *Publisher {
	return &Publisher{ch: ch, queue: queue}
}

func (p *Publisher) Publish(ctx context.Context, msg domain.FulfillmentMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("could not marshal fulfillment message: %w", err)
	}

	return p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Headers:      tracing.InjectAMQPHeaders(ctx, amqp.Table{}),
		},
	)
}
