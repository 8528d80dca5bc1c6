// Command change-relay republishes Postgres record change notifications to
// the Kafka changes topic, so engines running against other stores or in
// other processes see writes made to the shared database.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/attaboy/lifestats/internal/infra"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("change relay failed", "error", err)
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
	if !cfg.KafkaEnabled {
		return errors.New("change relay requires KAFKA_ENABLED=true")
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("change-relay connected to postgres")

	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()

	relay := infra.NewChangeRelay(producer, cfg.KafkaChangesTopic)
	listener := infra.NewChangeListener(pool, cfg.NotifyChannel, relay, logger)

	logger.Info("change-relay starting", "channel", cfg.NotifyChannel, "topic", cfg.KafkaChangesTopic)
	listener.Run(ctx)
	logger.Info("change-relay shutting down")
	return nil
}
