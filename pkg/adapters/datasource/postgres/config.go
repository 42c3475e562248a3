package postgres

import (
	"fmt"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
	"github.com/advanced-rising/vanillameta/pkg/apperrors"
)

// Config contains PostgreSQL connection options. CockroachDB configs arrive
// with ConnectionString already synthesized by the resolver.
type Config struct {
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string // "disable", "require", "verify-ca", "verify-full"
	ConnectionString string // when set, overrides the discrete fields
	MaxConns         int32
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// DefaultSSLMode returns the default SSL mode.
func DefaultSSLMode() string {
	return "prefer"
}

// DefaultMaxConns is the pool size for a durable handle.
const DefaultMaxConns = 5

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Port:     DefaultPort(),
		SSLMode:  DefaultSSLMode(),
		MaxConns: DefaultMaxConns,
	}

	if connStr, ok := config[datasource.ConnectionStringKey].(string); ok && connStr != "" {
		cfg.ConnectionString = connStr
	}

	if host, ok := config["host"].(string); ok {
		cfg.Host = host
	} else if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("%w: host is required", apperrors.ErrInvalidConfig)
	}

	port, err := datasource.ConfigInt(config, "port", DefaultPort())
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	if user, ok := config["user"].(string); ok {
		cfg.User = user
	} else if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("%w: user is required", apperrors.ErrInvalidConfig)
	}

	if password, ok := config["password"].(string); ok {
		cfg.Password = password
	}

	if database, ok := config["database"].(string); ok {
		cfg.Database = database
	} else if name, ok := config["name"].(string); ok {
		// Support legacy "name" field
		cfg.Database = name
	}

	if sslMode, ok := config["ssl_mode"].(string); ok && sslMode != "" {
		cfg.SSLMode = sslMode
	} else if ssl, ok := config["ssl"].(bool); ok && ssl {
		cfg.SSLMode = "require"
	}

	maxConns, err := datasource.ConfigInt(config, "max_connections", DefaultMaxConns)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	return cfg, nil
}
