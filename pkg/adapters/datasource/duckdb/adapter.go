// Package duckdb registers the embedded DuckDB engine.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"

	_ "github.com/marcboeker/go-duckdb/v2" // duckdb driver

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
)

// Config contains DuckDB connection options. An empty path opens an
// in-memory database.
type Config struct {
	Path     string `mapstructure:"path"`
	ReadOnly bool   `mapstructure:"read_only"`
	Threads  int    `mapstructure:"threads"`
}

func init() {
	datasource.RegisterDriver(datasource.Registration{
		Name: "duckdb",
		Open: Open,
	})
}

// FromMap decodes a DuckDB config; "filename" is accepted for the path.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{}
	if err := datasource.DecodeConfig(config, cfg); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		cfg.Path = datasource.ConfigString(config, "filename")
	}
	return cfg, nil
}

// DSN renders the path plus DuckDB config options.
func (c *Config) DSN() string {
	path := c.Path
	if path == ":memory:" {
		path = ""
	}
	q := url.Values{}
	if c.ReadOnly {
		q.Set("access_mode", "READ_ONLY")
	}
	if c.Threads > 0 {
		q.Set("threads", strconv.Itoa(c.Threads))
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// Open opens the database and verifies it with a ping.
func Open(ctx context.Context, id datasource.Identity, config map[string]any) (datasource.Handle, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}
	return datasource.NewSQLHandle(db, id), nil
}
