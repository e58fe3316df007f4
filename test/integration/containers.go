package integration

import (
	"context"

	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

type Env struct {
	PG      *postgres.PostgresContainer
	Rabbit  *rabbitmq.RabbitMQContainer
	PGURL   string
	AMQPURL string
}

func Setup(ctx context.Context) (*Env, error) {
	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("fulfillment"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, err
	}

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgC.Terminate(ctx)
		return nil, err
	}

	rabbitC, err := rabbitmq.Run(ctx, "rabbitmq:3.12.11-management-alpine")
	if err != nil {
		_ = pgC.Terminate(ctx)
		return nil, err
	}

	amqpURL, err := rabbitC.AmqpURL(ctx)
	if err != nil {
		_ = rabbitC.Terminate(ctx)
		_ = pgC.Terminate(ctx)
		return nil, err
	}

	return &Env{
		PG:      pgC,
		Rabbit:  rabbitC,
		PGURL:   pgURL,
		AMQPURL: amqpURL,
	}, nil
}

func (e *Env) Teardown(ctx context.Context) {
	_ = e.Rabbit.Terminate(ctx)
	_ = e.PG.Terminate(ctx)
}
