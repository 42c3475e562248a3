// Package snowflake registers the Snowflake warehouse adapter.
package snowflake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sf "github.com/snowflakedb/gosnowflake"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
	"github.com/advanced-rising/vanillameta/pkg/apperrors"
)

// Config contains Snowflake account options.
type Config struct {
	Account      string `mapstructure:"account"`
	User         string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Schema       string `mapstructure:"schema"`
	Warehouse    string `mapstructure:"warehouse"`
	Role         string `mapstructure:"role"`
	LoginTimeout int    `mapstructure:"login_timeout"` // seconds
}

func init() {
	datasource.RegisterAdapter(datasource.Registration{
		Name: "snowflake",
		Open: Open,
	})
	datasource.RegisterErrorMessage(errorMessage)
}

// FromMap decodes and validates a Snowflake config. "user" is accepted as an
// alias for "username".
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{}
	if err := datasource.DecodeConfig(config, cfg); err != nil {
		return nil, err
	}
	if cfg.User == "" {
		cfg.User = datasource.ConfigString(config, "user")
	}
	switch {
	case cfg.Account == "":
		return nil, fmt.Errorf("%w: account is required", apperrors.ErrInvalidConfig)
	case cfg.User == "":
		return nil, fmt.Errorf("%w: username is required", apperrors.ErrInvalidConfig)
	case cfg.Password == "":
		return nil, fmt.Errorf("%w: password is required", apperrors.ErrInvalidConfig)
	}
	return cfg, nil
}

// DSN renders the config through the driver's own DSN builder.
func (c *Config) DSN() (string, error) {
	sfCfg := &sf.Config{
		Account:   c.Account,
		User:      c.User,
		Password:  c.Password,
		Database:  c.Database,
		Schema:    c.Schema,
		Warehouse: c.Warehouse,
		Role:      c.Role,
	}
	if c.LoginTimeout > 0 {
		sfCfg.LoginTimeout = time.Duration(c.LoginTimeout) * time.Second
	}
	return sf.DSN(sfCfg)
}

// Open connects to the account and verifies the session with a ping.
// The handle returns flat records like every warehouse adapter.
func Open(ctx context.Context, id datasource.Identity, config map[string]any) (datasource.Handle, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidConfig, err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snowflake connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}
	return datasource.NewSQLHandle(db, id), nil
}

func errorMessage(err error) (string, bool) {
	var sfErr *sf.SnowflakeError
	if errors.As(err, &sfErr) {
		return sfErr.Message, true
	}
	return "", false
}
