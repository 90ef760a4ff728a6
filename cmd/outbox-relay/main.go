package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/app"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/guard"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/infra"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("outbox relay failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.StoreDriver == infra.DriverMemory {
		return fmt.Errorf("outbox relay needs a persistent store; STORE_DRIVER is %q", cfg.StoreDriver)
	}
	if !cfg.KafkaEnabled {
		return fmt.Errorf("outbox relay needs KAFKA_ENABLED=true")
	}

	comps, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	producer := infra.NewKafkaProducer(cfg.Brokers(), cfg.KafkaEnabled, logger)
	defer producer.Close()

	relay := infra.NewOutboxRelay(comps.Outbox, producer,
		guard.NewCircuitBreaker(5, 30*time.Second),
		cfg.OutboxPollInterval, cfg.OutboxBatchSize, logger)

	return relay.Run(ctx)
}
