package rabbitmq

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SetupConn dials the broker, opens a channel, and declares the durable
// queue, returning a ready-to-use handle or an error. The channel is owned
// by main and handed to publisher and consumer explicitly; nothing holds a
// package-level reference to it.
func SetupConn(url, queueName string) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection
	var err error

	// Bounded retry for broker startup races.
	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, nil, fmt.Errorf("could not declare queue %q: %w", queueName, err)
	}

	return conn, ch, nil
}
