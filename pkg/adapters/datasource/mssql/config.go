package mssql

import (
	"fmt"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
	"github.com/advanced-rising/vanillameta/pkg/apperrors"
)

const (
	AuthSQL              = "sql"
	AuthServicePrincipal = "service_principal"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string
	Instance string

	// AuthMethod is AuthSQL or AuthServicePrincipal.
	AuthMethod string

	// SQL Authentication fields
	Username string
	Password string

	// Service Principal (Azure AD) fields
	TenantID     string
	ClientID     string
	ClientSecret string

	// Connection options
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromMap creates a Config from a generic config map and auto-detects the auth method.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Encrypt: true,
	}

	if host, ok := config["host"].(string); ok && host != "" {
		cfg.Host = host
	} else {
		return nil, fmt.Errorf("%w: host is required", apperrors.ErrInvalidConfig)
	}

	port, err := datasource.ConfigInt(config, "port", DefaultPort())
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	if database, ok := config["database"].(string); ok {
		cfg.Database = database
	} else if name, ok := config["name"].(string); ok {
		// Support legacy "name" field
		cfg.Database = name
	}

	cfg.Instance = datasource.ConfigString(config, "instance")

	if encrypt, ok := config["encrypt"].(bool); ok {
		cfg.Encrypt = encrypt
	} else if encryptStr, ok := config["encrypt"].(string); ok {
		// "true", "false", "strict"
		cfg.Encrypt = encryptStr == "true" || encryptStr == "strict"
	}

	if trust, ok := config["trust_server_certificate"].(bool); ok {
		cfg.TrustServerCertificate = trust
	}

	timeout, err := datasource.ConfigInt(config, "connection_timeout", DefaultConnectionTimeout())
	if err != nil {
		return nil, err
	}
	cfg.ConnectionTimeout = timeout

	// Priority: explicit auth_method > client_id > user/username
	if authMethod, ok := config["auth_method"].(string); ok && authMethod != "" {
		cfg.AuthMethod = authMethod
	} else if _, hasClientID := config["client_id"].(string); hasClientID {
		cfg.AuthMethod = AuthServicePrincipal
	} else {
		cfg.AuthMethod = AuthSQL
	}

	switch cfg.AuthMethod {
	case AuthSQL:
		if username, ok := config["username"].(string); ok && username != "" {
			cfg.Username = username
		} else {
			cfg.Username = datasource.ConfigString(config, "user")
		}
		cfg.Password = datasource.ConfigString(config, "password")

	case AuthServicePrincipal:
		cfg.TenantID = datasource.ConfigString(config, "tenant_id")
		cfg.ClientID = datasource.ConfigString(config, "client_id")
		cfg.ClientSecret = datasource.ConfigString(config, "client_secret")

	default:
		return nil, fmt.Errorf("%w: invalid auth method %q (must be sql or service_principal)", apperrors.ErrInvalidConfig, cfg.AuthMethod)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the config has all required fields for the selected auth method.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", apperrors.ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", apperrors.ErrInvalidConfig, c.Port)
	}

	switch c.AuthMethod {
	case AuthSQL:
		if c.Username == "" {
			return fmt.Errorf("%w: username is required for SQL authentication", apperrors.ErrInvalidConfig)
		}
	case AuthServicePrincipal:
		if c.TenantID == "" || c.ClientID == "" || c.ClientSecret == "" {
			return fmt.Errorf("%w: tenant_id, client_id and client_secret are required for service principal", apperrors.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: invalid auth method: %s", apperrors.ErrInvalidConfig, c.AuthMethod)
	}

	return nil
}
