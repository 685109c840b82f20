package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/linemk/marketplace/internal/app"
	"github.com/linemk/marketplace/internal/clients/courier"
	"github.com/linemk/marketplace/internal/config"
	"github.com/linemk/marketplace/internal/lib/logger"
	lredis "github.com/linemk/marketplace/internal/lib/redis"
	"github.com/linemk/marketplace/internal/outbox"
	"github.com/linemk/marketplace/internal/service"
	"github.com/linemk/marketplace/internal/storage"
	"github.com/pkg/errors"
)

// воркер разбирает outbox: бронирует курьеров и публикует уведомления в Kafka
func main() {
	cfg := config.MustLoad()

	log := logger.SetupLogger(cfg.Env, logger.ServiceWorker)
	log.Info("starting outbox worker")

	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.Close()

	if len(cfg.Kafka.Brokers) == 0 {
		panic("kafka brokers are not configured")
	}
	publisher := outbox.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error("failed to close kafka writer", slog.Any("error", err))
		}
	}()

	db := application.DB
	outboxRepo := storage.NewOutboxRepository(db)
	fulfilmentService := service.NewFulfilmentService(log, db,
		storage.NewOrderRepository(db),
		storage.NewShipmentRepository(db),
		storage.NewVendorRepository(db),
		storage.NewAddressRepository(db),
		storage.NewProductRepository(db),
		outboxRepo,
		courier.New(cfg.Courier.BaseURL, cfg.Courier.Token, cfg.Courier.Timeout),
		lredis.NewLocker(application.Redis),
		service.FulfilmentConfig{
			LockTTL:     cfg.Redis.LockTTL,
			Concurrency: cfg.Outbox.BookingConcurrency,
		},
	)

	worker := outbox.NewWorker(log, db, outboxRepo, publisher, fulfilmentService, outbox.Config{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		BaseBackoff:  cfg.Outbox.BaseBackoff,
	})

	// по сигналу незакоммиченный батч откатывается и останется в очереди
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker.Run(ctx)
	log.Info("worker gracefully stopped")
}
