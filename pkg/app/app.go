// Package app wires the application database, the connection registry and
// the services on top of them. Both the HTTP server and the CLI build on it.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
	_ "github.com/advanced-rising/vanillameta/pkg/adapters/datasource/all" // register every engine
	"github.com/advanced-rising/vanillameta/pkg/config"
	"github.com/advanced-rising/vanillameta/pkg/crypto"
	"github.com/advanced-rising/vanillameta/pkg/database"
	"github.com/advanced-rising/vanillameta/pkg/repositories"
	"github.com/advanced-rising/vanillameta/pkg/retry"
	"github.com/advanced-rising/vanillameta/pkg/services"
)

// App holds the long-lived components. Close releases them.
type App struct {
	DB          *sql.DB
	Registry    *datasource.ConnectionRegistry
	Connections services.ConnectionService
	Databases   services.DatabaseService

	logger *zap.Logger
}

// New opens the application database, applies migrations and builds the
// registry and services.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	codec, err := crypto.NewConfigCodec(cfg.CredentialsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credentials codec: %w", err)
	}
	if !codec.Encrypted() {
		logger.Warn("CREDENTIALS_KEY not set; connection configs are stored unencrypted")
	}

	dbURL := cfg.Database.URL()
	db, err := database.Open(ctx, &database.Config{
		URL:            dbURL,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// The migration driver closes its connection, so give it its own.
	migrateDB, err := sql.Open("pgx", dbURL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open migration connection: %w", err)
	}
	err = database.RunMigrations(migrateDB, cfg.MigrationsPath, logger)
	_ = migrateDB.Close()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	repo := repositories.NewDatabaseRepository(db)

	resolver := datasource.NewResolver(cfg.Datasource.CockroachCluster)
	resolver.HostRewrite = cfg.Datasource.HostRewriter()

	factory := datasource.NewHandleFactory(
		retry.DefaultConfig().WithMaxRetries(cfg.Datasource.RetryAttempts),
		logger,
	)
	registry := datasource.NewConnectionRegistry(resolver, factory, repo, codec.Decode, logger)

	connections := services.NewConnectionService(
		resolver,
		factory,
		registry,
		datasource.NewNormalizer(),
		cfg.Datasource.CloseOnRemove,
		logger,
	)
	databases := services.NewDatabaseService(repo, codec, connections, logger)

	return &App{
		DB:          db,
		Registry:    registry,
		Connections: connections,
		Databases:   databases,
		logger:      logger,
	}, nil
}

// Close releases every durable handle and the application database.
func (a *App) Close() error {
	if err := a.Registry.Close(); err != nil {
		a.logger.Warn("Failed to close some connection handles", zap.Error(err))
	}
	return a.DB.Close()
}
