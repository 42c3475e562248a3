package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultConfigPath is read by Load when present.
const DefaultConfigPath = "config.yaml"

// Config holds all configuration for the vanillameta server.
// Values come from config.yaml when present, with environment variables
// overriding YAML. Secrets (passwords, keys) only come from the environment.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3010"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Application database holding persisted connection configs (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Connection registry and handle construction settings
	Datasource DatasourceConfig `yaml:"datasource"`

	// MigrationsPath overrides the embedded schema with files on disk.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:""`

	// CredentialsKey seals connection configs at rest. Base64 32-byte key or
	// passphrase; generate with: openssl rand -base64 32. Empty stores plain JSON.
	CredentialsKey string `yaml:"-" env:"CREDENTIALS_KEY"` // Secret - not in YAML
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"vanillameta"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"vanillameta"`
	MaxConnections int    `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// DatasourceConfig holds connection registry settings.
type DatasourceConfig struct {
	// CockroachCluster is the routing id placed in the CockroachDB options parameter.
	CockroachCluster string `yaml:"cockroach_cluster" env:"DATASOURCE_COCKROACH_CLUSTER" env-default:"vanillameta-cockroach-3010"`
	// CloseOnRemove closes a durable handle when it is removed from the registry.
	CloseOnRemove bool `yaml:"close_on_remove" env:"DATASOURCE_CLOSE_ON_REMOVE" env-default:"true"`
	// RetryAttempts is how many times a transient handle construction failure is retried.
	RetryAttempts int `yaml:"retry_attempts" env:"DATASOURCE_RETRY_ATTEMPTS" env-default:"2"`
	// RewriteDockerHosts maps localhost to host.docker.internal inside containers.
	RewriteDockerHosts bool `yaml:"rewrite_docker_hosts" env:"DATASOURCE_REWRITE_DOCKER_HOSTS" env-default:"true"`
}

// Load reads DefaultConfigPath (if it exists) with environment overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFrom(DefaultConfigPath, version)
}

// LoadFrom reads the YAML file at path with environment overrides. A missing
// file is not an error: configuration then comes from the environment alone.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("port must be numeric, got %q", c.Port)
	}
	if c.Datasource.RetryAttempts < 0 {
		return fmt.Errorf("datasource.retry_attempts must not be negative")
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return c.BindAddr + ":" + c.Port
}

// URL returns the PostgreSQL URL for the application database. Credentials
// are escaped so any password survives parsing.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}
