// Package database opens the application PostgreSQL database that holds
// persisted connection configs.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// Config holds database connection configuration.
type Config struct {
	URL             string
	MaxConnections  int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open creates a database/sql pool over pgx and verifies it with a ping.
func Open(ctx context.Context, cfg *Config) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := cfg.MaxConnections
	if maxConns == 0 {
		maxConns = 25
	}
	db.SetMaxOpenConns(maxConns)

	lifetime := cfg.MaxConnLifetime
	if lifetime == 0 {
		lifetime = time.Hour
	}
	db.SetConnMaxLifetime(lifetime)

	idle := cfg.MaxConnIdleTime
	if idle == 0 {
		idle = 30 * time.Minute
	}
	db.SetConnMaxIdleTime(idle)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
