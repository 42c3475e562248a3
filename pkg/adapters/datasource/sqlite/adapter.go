// Package sqlite registers the embedded SQLite engine (pure Go, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
	"github.com/advanced-rising/vanillameta/pkg/apperrors"
)

// Config contains SQLite connection options.
type Config struct {
	Path        string `mapstructure:"filename"`
	ReadOnly    bool   `mapstructure:"read_only"`
	BusyTimeout int    `mapstructure:"busy_timeout"` // milliseconds
}

func init() {
	datasource.RegisterDriver(datasource.Registration{
		Name: "sqlite3",
		Open: Open,
	})
}

// FromMap decodes a SQLite config. "path" and "database" are accepted as
// aliases for the filename; ":memory:" opens a private in-memory database.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{BusyTimeout: 5000}
	if err := datasource.DecodeConfig(config, cfg); err != nil {
		return nil, err
	}
	for _, key := range []string{"path", "database"} {
		if cfg.Path != "" {
			break
		}
		cfg.Path = datasource.ConfigString(config, key)
	}
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("%w: filename is required", apperrors.ErrInvalidConfig)
	}
	return cfg, nil
}

// DSN renders the modernc file URI with pragmas.
func (c *Config) DSN() string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout))
	if c.ReadOnly {
		q.Set("mode", "ro")
	}
	return "file:" + c.Path + "?" + q.Encode()
}

// Open opens the database file and verifies it with a ping.
func Open(ctx context.Context, id datasource.Identity, config map[string]any) (datasource.Handle, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; in-memory databases are per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}
	return datasource.NewSQLHandle(db, id), nil
}
