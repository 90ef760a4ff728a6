package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/app"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/guard"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/infra"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/ingest"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("event consumer failed", "error", err)
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
	if !cfg.KafkaEnabled {
		return fmt.Errorf("event consumer needs KAFKA_ENABLED=true")
	}

	comps, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	// Notifications from this process reach sockets only through Redis fan-out.
	if comps.Fanout != nil {
		go func() {
			if err := comps.Fanout.Run(ctx); err != nil {
				logger.Error("redis fanout stopped", "error", err)
			}
		}()
	} else {
		logger.Warn("REDIS_FANOUT_ENABLED is false; progress from kafka events will not reach websocket clients")
	}

	reader := infra.NewKafkaConsumer(cfg.Brokers(), cfg.KafkaActivityTopic, cfg.KafkaConsumerGroup, cfg.KafkaEnabled, logger)
	defer reader.Close()

	dedupe, err := guard.NewIdempotencyGuard(cfg.IdempotencyCapacity)
	if err != nil {
		return err
	}

	logger.Info("event consumer starting", "topic", cfg.KafkaActivityTopic, "group", cfg.KafkaConsumerGroup)
	if err := ingest.NewConsumer(reader, comps.Engine, dedupe, logger).Run(ctx); err != nil {
		return err
	}
	logger.Info("event consumer stopped")
	return nil
}
