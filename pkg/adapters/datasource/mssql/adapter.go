package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"

	_ "github.com/microsoft/go-mssqldb"         // SQL Server driver
	"github.com/microsoft/go-mssqldb/azuread" // Azure AD support

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
)

// buildDSN returns the database/sql driver name and DSN for cfg.
// SQL authentication uses the sqlserver driver; service principals go through
// the azuresql driver with fedauth.
func buildDSN(cfg *Config) (string, string) {
	query := url.Values{}
	if cfg.Database != "" {
		query.Add("database", cfg.Database)
	}
	query.Add("encrypt", strconv.FormatBool(cfg.Encrypt))
	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if cfg.ConnectionTimeout > 0 {
		query.Add("connection timeout", strconv.Itoa(cfg.ConnectionTimeout))
	}

	u := url.URL{
		Scheme: "sqlserver",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
	if cfg.Instance != "" {
		u.Path = "/" + cfg.Instance
	}

	driverName := "sqlserver"
	switch cfg.AuthMethod {
	case AuthServicePrincipal:
		driverName = azuread.DriverName
		query.Add("fedauth", azuread.ActiveDirectoryServicePrincipal)
		query.Add("user id", cfg.ClientID+"@"+cfg.TenantID)
		query.Add("password", cfg.ClientSecret)
	default:
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}

	u.RawQuery = query.Encode()
	return driverName, u.String()
}

// Open creates a SQL Server pool for config and verifies it with a ping.
func Open(ctx context.Context, id datasource.Identity, config map[string]any) (datasource.Handle, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}

	driverName, dsn := buildDSN(cfg)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", cfg.AuthMethod, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	return datasource.NewSQLHandle(db, id), nil
}
