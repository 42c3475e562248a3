package datasource

import (
	"fmt"
	"net/url"

	"github.com/advanced-rising/vanillameta/pkg/apperrors"
	"github.com/advanced-rising/vanillameta/pkg/models"
)

// DefaultCockroachCluster is the routing tag used when none is configured.
const DefaultCockroachCluster = "vanillameta-cockroach-3010"

// DefaultCockroachPort is used when a CockroachDB config omits the port.
const DefaultCockroachPort = 26257

// ConnectionStringKey is the config key holding a synthesized connection URL.
const ConnectionStringKey = "connectionString"

type route struct {
	name        string
	adapter     bool
	displayName string
}

// engineRoutes is the driver resolution table. Warehouse kinds route to
// dedicated adapters; everything else to a standard driver. PostgreSQL and
// CockroachDB share the pg wire driver.
var engineRoutes = map[models.EngineKind]route{
	models.EngineMySQL:       {name: "mysql", displayName: "MySQL / MariaDB"},
	models.EnginePostgres:    {name: "pg", displayName: "PostgreSQL"},
	models.EngineCockroachDB: {name: "pg", displayName: "CockroachDB"},
	models.EngineOracle:      {name: "oracledb", displayName: "Oracle Database"},
	models.EngineMSSQL:       {name: "mssql", displayName: "Microsoft SQL Server"},
	models.EngineSQLite:      {name: "sqlite3", displayName: "SQLite"},
	models.EngineDuckDB:      {name: "duckdb", displayName: "DuckDB"},
	models.EngineSnowflake:   {name: "snowflake", adapter: true, displayName: "Snowflake"},
	models.EngineBigQuery:    {name: "bigquery", adapter: true, displayName: "Google BigQuery"},
}

// routeFor returns the route for kind. Unknown kinds use their literal string
// as the driver name so that construction, not resolution, reports the failure.
func routeFor(kind models.EngineKind) route {
	if r, ok := engineRoutes[kind]; ok {
		return r
	}
	return route{name: string(kind), displayName: string(kind)}
}

// Resolution is the outcome of resolving an engine kind and raw config.
type Resolution struct {
	Kind    models.EngineKind
	Client  string         // driver or adapter name
	Adapter bool           // true when Client names a warehouse adapter
	Config  map[string]any // effective config; never aliases the caller's map
}

// Identity returns the identity a handle opened from this resolution reports.
func (r Resolution) Identity() Identity {
	return Identity{Engine: r.Kind, Driver: r.Client, Adapter: r.Adapter}
}

// Resolver maps an engine kind and raw config to a driver choice and an
// effective config.
type Resolver struct {
	// CockroachCluster is the routing tag appended to synthesized CockroachDB URLs.
	CockroachCluster string

	// HostRewrite, when set, is applied to the "host" value (e.g. to reach the
	// Docker host from inside a container).
	HostRewrite func(host string) string
}

// NewResolver returns a resolver using the given cluster tag, or the default
// tag when empty.
func NewResolver(cockroachCluster string) *Resolver {
	if cockroachCluster == "" {
		cockroachCluster = DefaultCockroachCluster
	}
	return &Resolver{CockroachCluster: cockroachCluster}
}

// Resolve picks the driver for kind and builds the effective config.
// The caller's map is copied, never modified.
func (r *Resolver) Resolve(kind models.EngineKind, raw map[string]any) (Resolution, error) {
	rt := routeFor(kind)
	cfg := copyConfig(raw)

	if r.HostRewrite != nil {
		if host, ok := cfg["host"].(string); ok && host != "" {
			cfg["host"] = r.HostRewrite(host)
		}
	}

	if kind == models.EngineCockroachDB {
		connStr, err := r.cockroachURL(cfg)
		if err != nil {
			return Resolution{}, err
		}
		cfg[ConnectionStringKey] = connStr
	}

	return Resolution{
		Kind:    kind,
		Client:  rt.name,
		Adapter: rt.adapter,
		Config:  cfg,
	}, nil
}

// cockroachURL synthesizes a pg-wire URL with strict TLS verification and the
// cluster routing option.
func (r *Resolver) cockroachURL(cfg map[string]any) (string, error) {
	host := ConfigString(cfg, "host")
	if host == "" {
		return "", fmt.Errorf("%w: cockroachdb host is required", apperrors.ErrInvalidConfig)
	}
	port, err := ConfigInt(cfg, "port", DefaultCockroachPort)
	if err != nil {
		return "", err
	}
	cluster := r.CockroachCluster
	if cluster == "" {
		cluster = DefaultCockroachCluster
	}

	user := url.UserPassword(ConfigString(cfg, "user"), ConfigString(cfg, "password"))
	return fmt.Sprintf(
		"postgresql://%s@%s:%d/%s?sslmode=verify-full&options=%s",
		user.String(),
		host,
		port,
		url.PathEscape(ConfigString(cfg, "database")),
		url.QueryEscape("--cluster="+cluster),
	), nil
}

func copyConfig(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw)+1)
	for k, v := range raw {
		out[k] = v
	}
	return out
}
