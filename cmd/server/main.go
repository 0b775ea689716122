// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/linot/internal/auth"
	"github.com/jason-s-yu/linot/internal/cache"
	"github.com/jason-s-yu/linot/internal/config"
	"github.com/jason-s-yu/linot/internal/database"
	"github.com/jason-s-yu/linot/internal/handlers"
	"github.com/jason-s-yu/linot/internal/match"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := database.Open(ctx, cfg.StoreDriver, cfg.DSN())
	if err != nil {
		logger.Fatalf("failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer repo.Close()

	authn, err := newAuthenticator(cfg)
	if err != nil {
		logger.Fatalf("failed to set up auth: %v", err)
	}

	opts := match.Options{
		Repo:        repo,
		Logger:      logger,
		TurnTimeout: cfg.TurnTimeout,
	}
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		opts.Publisher = cache.NewActionQueue(rdb, cfg.QueueName)
	} else {
		logger.Warn("REDIS_ADDR not set, action history is disabled")
	}

	store := match.NewStore(opts)
	defer store.Close()

	srv := &handlers.Server{Store: store, Repo: repo, Auth: authn, Logger: logger}
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("shutdown did not complete cleanly")
		}
	}()

	logger.WithFields(logrus.Fields{
		"addr":         httpServer.Addr,
		"driver":       cfg.StoreDriver,
		"turn_timeout": cfg.TurnTimeout,
	}).Info("linot server running")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
}

func newAuthenticator(cfg config.Config) (*auth.Authenticator, error) {
	if cfg.PrivateKeyPath != "" && cfg.PublicKeyPath != "" {
		return auth.NewAuthenticatorFromFiles(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.TokenExpiry)
	}
	return auth.NewAuthenticator(cfg.TokenExpiry)
}
