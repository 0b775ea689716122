// cmd/historian drains match action records from Redis into the database and marks matches
// abandoned once they go quiet.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/linot/internal/cache"
	"github.com/jason-s-yu/linot/internal/config"
	"github.com/jason-s-yu/linot/internal/database"
	"github.com/jason-s-yu/linot/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logger := cfg.NewLogger()

	if cfg.RedisAddr == "" {
		logger.Fatal("REDIS_ADDR is required for the historian")
	}
	if cfg.StoreDriver == "memory" {
		logger.Fatal("the historian needs a persistent STORE_DRIVER (postgres or sqlite)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := database.Open(ctx, cfg.StoreDriver, cfg.DSN())
	if err != nil {
		logger.Fatalf("failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer repo.Close()

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	svc := historian.New(cache.NewActionQueue(rdb, cfg.QueueName), repo, historian.Options{
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlush,
		Inactivity: cfg.HistorianInactivity,
	}, logger)

	logger.WithFields(logrus.Fields{
		"queue":      cfg.QueueName,
		"batch_size": cfg.HistorianBatchSize,
		"driver":     cfg.StoreDriver,
	}).Info("linot-historian starting")
	svc.Run(ctx)
}
