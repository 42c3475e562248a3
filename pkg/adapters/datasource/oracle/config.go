package oracle

import (
	"fmt"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
	"github.com/advanced-rising/vanillameta/pkg/apperrors"
)

// DefaultPort is the Oracle listener port.
const DefaultPort = 1521

// Config contains Oracle connection options. The database is addressed by
// service name; SID is accepted for older installs.
type Config struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	ServiceName string `mapstructure:"service_name"`
	SID         string `mapstructure:"sid"`
	SSL         bool   `mapstructure:"ssl"`
}

// FromMap decodes and validates an Oracle config.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{Port: DefaultPort}
	if err := datasource.DecodeConfig(config, cfg); err != nil {
		return nil, err
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = datasource.ConfigString(config, "database")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: host is required", apperrors.ErrInvalidConfig)
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("%w: user is required", apperrors.ErrInvalidConfig)
	}
	if cfg.ServiceName == "" && cfg.SID == "" {
		return nil, fmt.Errorf("%w: service_name or sid is required", apperrors.ErrInvalidConfig)
	}
	return cfg, nil
}

// URL renders the go-ora connection URL.
func (c *Config) URL() string {
	options := map[string]string{}
	if c.SID != "" && c.ServiceName == "" {
		options["SID"] = c.SID
	}
	if c.SSL {
		options["SSL"] = "true"
	}
	return go_ora.BuildUrl(c.Host, c.Port, c.ServiceName, c.User, c.Password, options)
}
