package mysql

import (
	"fmt"
	"net"
	"strconv"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
	"github.com/advanced-rising/vanillameta/pkg/apperrors"
)

// DefaultPort is the MySQL/MariaDB listener port.
const DefaultPort = 3306

// Config contains MySQL connection options.
type Config struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Database       string `mapstructure:"database"`
	TLS            string `mapstructure:"tls"` // "true", "false", "skip-verify", "preferred"
	ConnectTimeout int    `mapstructure:"connect_timeout"`
	MaxConns       int    `mapstructure:"max_connections"`
}

// FromMap decodes and validates a MySQL config.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{Port: DefaultPort, ConnectTimeout: 10, MaxConns: 5}
	if err := datasource.DecodeConfig(config, cfg); err != nil {
		return nil, err
	}
	if cfg.Database == "" {
		cfg.Database = datasource.ConfigString(config, "name")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: host is required", apperrors.ErrInvalidConfig)
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("%w: user is required", apperrors.ErrInvalidConfig)
	}
	return cfg, nil
}

// DSN renders the config in go-sql-driver format. Temporal columns are parsed
// into time.Time so the native column types stay meaningful.
func (c *Config) DSN() string {
	dc := driver.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	dc.DBName = c.Database
	dc.ParseTime = true
	if c.TLS != "" {
		dc.TLSConfig = c.TLS
	}
	if c.ConnectTimeout > 0 {
		dc.Timeout = time.Duration(c.ConnectTimeout) * time.Second
	}
	return dc.FormatDSN()
}
