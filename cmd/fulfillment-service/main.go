package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ordersys/fulfillment/internal/config"
	invapp "github.com/ordersys/fulfillment/internal/inventory/application"
	invpg "github.com/ordersys/fulfillment/internal/inventory/infrastructure/postgres"
	invmq "github.com/ordersys/fulfillment/internal/inventory/infrastructure/rabbitmq"
	orderapp "github.com/ordersys/fulfillment/internal/order/application"
	orderhttp "github.com/ordersys/fulfillment/internal/order/infrastructure/http"
	orderpg "github.com/ordersys/fulfillment/internal/order/infrastructure/postgres"
	"github.com/ordersys/fulfillment/pkg/idempotency"
	"github.com/ordersys/fulfillment/pkg/logging"
	"github.com/ordersys/fulfillment/pkg/rabbitmq"
	"github.com/ordersys/fulfillment/pkg/shutdown"
	"github.com/ordersys/fulfillment/pkg/tracing"
)

func main() {
	log := logging.New()
	cfg := config.Load()

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	// Postgres setup
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := orderpg.EnsureSchema(ctx, pool); err != nil {
		log.Error("schema check failed", "err", err)
		os.Exit(1)
	}

	// Queue channel, owned here and handed to publisher and consumer.
	conn, ch, err := rabbitmq.SetupConn(cfg.AMQPURL, cfg.QueueName)
	if err != nil {
		log.Error("rabbitmq setup failed", "err", err)
		os.Exit(1)
	}
	defer conn.Close()
	defer ch.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	cache := idempotency.NewStore(rdb, cfg.IdempotencyTTL)

	// Publisher side
	publisher := rabbitmq.NewPublisher(ch, cfg.QueueName)
	orderRepo := orderpg.NewRepository(log, pool)
	orderSvc := orderapp.NewService(log, orderRepo, publisher)
	sweeper := orderapp.NewSweeper(log, orderRepo, publisher, cfg.SweepInterval, cfg.SweepGrace)

	// Worker side
	invRepo := invpg.NewRepository(log, pool)
	invSvc := invapp.NewService(log, invRepo, cache)
	consumer := invmq.NewConsumer(log, ch, cfg.QueueName, invSvc, cfg.Workers)

	go func() {
		if err := sweeper.Run(ctx); err != nil {
			log.Error("sweeper stopped with error", "err", err)
		}
	}()

	go func() {
		if err := consumer.Run(ctx); err != nil {
			log.Error("consumer stopped with error", "err", err)
			cancel()
		}
	}()

	handler := orderhttp.NewHandler(log, orderSvc)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("fulfillment-service shutdown complete")
}
