package oracle

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/sijms/go-ora/v2" // registers the "oracle" database/sql driver

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
)

// Open creates an Oracle pool for config and verifies it with a ping.
func Open(ctx context.Context, id datasource.Identity, config map[string]any) (datasource.Handle, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("oracle", cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("open oracle connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}
	return datasource.NewSQLHandle(db, id), nil
}
