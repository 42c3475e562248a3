package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/advanced-rising/vanillameta/pkg/app"
	"github.com/advanced-rising/vanillameta/pkg/config"
	"github.com/advanced-rising/vanillameta/pkg/handlers"
	"github.com/advanced-rising/vanillameta/pkg/logging"
	"github.com/advanced-rising/vanillameta/pkg/metrics"
	"github.com/advanced-rising/vanillameta/pkg/middleware"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Host),
		zap.String("cockroach_cluster", cfg.Datasource.CockroachCluster),
		zap.Bool("close_on_remove", cfg.Datasource.CloseOnRemove),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("Failed to close application database", zap.Error(err))
		}
	}()

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, application.Registry, logger).RegisterRoutes(mux)
	handlers.NewConnectionsHandler(application.Connections, logger).RegisterRoutes(mux)
	handlers.NewDatabasesHandler(application.Databases, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", metrics.Handler())

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting vanillameta", zap.String("addr", server.Addr), zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Graceful shutdown failed", zap.Error(err))
	}
}
