package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/foodgram-dev/foodgram/backend/config"
	"github.com/foodgram-dev/foodgram/backend/internal/database"
	"github.com/foodgram-dev/foodgram/backend/internal/server"
	"github.com/foodgram-dev/foodgram/backend/internal/service"
)

func main() {
	setupLogger(config.IsProduction())

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(db, cfg.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	var opts server.Options
	s3cfg, err := config.NewS3Config(context.Background(), cfg)
	if err != nil {
		slog.Warn("image storage unavailable, uploads will be rejected", "error", err)
	} else {
		opts.Images = service.NewImageStore(s3cfg)
	}

	if cfg.RedisURL != "" {
		client, err := database.NewRedisClient(cfg)
		if err != nil {
			slog.Warn("redis unavailable, rate limiting disabled", "error", err)
		} else {
			defer client.Close()
			opts.Redis = client
		}
	}

	srv := server.New(cfg, db, opts)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case sig := <-quit:
		slog.Info("received signal", "signal", sig.String())
	}

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// setupLogger installs the default logger: JSON in production, text elsewhere
func setupLogger(production bool) {
	var handler slog.Handler
	if production {
		gin.SetMode(gin.ReleaseMode)
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}
