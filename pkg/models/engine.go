package models

import "strings"

// EngineKind identifies a database technology. It drives both driver
// resolution and the shape of raw results the engine returns.
type EngineKind string

const (
	EngineMySQL       EngineKind = "mysql"
	EnginePostgres    EngineKind = "pg"
	EngineCockroachDB EngineKind = "cockroachdb"
	EngineSnowflake   EngineKind = "snowflake"
	EngineBigQuery    EngineKind = "bigquery"
	EngineOracle      EngineKind = "oracledb"
	EngineMSSQL       EngineKind = "mssql"
	EngineSQLite      EngineKind = "sqlite3"
	EngineDuckDB      EngineKind = "duckdb"
)

var engineAliases = map[string]EngineKind{
	"mysql":       EngineMySQL,
	"mysql2":      EngineMySQL,
	"mariadb":     EngineMySQL,
	"pg":          EnginePostgres,
	"postgres":    EnginePostgres,
	"postgresql":  EnginePostgres,
	"cockroachdb": EngineCockroachDB,
	"cockroach":   EngineCockroachDB,
	"snowflake":   EngineSnowflake,
	"bigquery":    EngineBigQuery,
	"oracledb":    EngineOracle,
	"oracle":      EngineOracle,
	"mssql":       EngineMSSQL,
	"sqlserver":   EngineMSSQL,
	"sqlite3":     EngineSQLite,
	"sqlite":      EngineSQLite,
	"duckdb":      EngineDuckDB,
}

// ParseEngineKind maps a stored engine name (including legacy aliases such as
// "mysql2" or "postgres") to its canonical kind. Names that are not known are
// returned unchanged so that resolution can still proceed and fail later when
// the handle is constructed.
func ParseEngineKind(raw string) EngineKind {
	if kind, ok := engineAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return kind
	}
	return EngineKind(raw)
}

// KnownEngineKinds returns the canonical kinds in a stable order.
func KnownEngineKinds() []EngineKind {
	return []EngineKind{
		EngineMySQL,
		EnginePostgres,
		EngineCockroachDB,
		EngineSnowflake,
		EngineBigQuery,
		EngineOracle,
		EngineMSSQL,
		EngineSQLite,
		EngineDuckDB,
	}
}

// IsKnown reports whether k is one of the canonical kinds.
func (k EngineKind) IsKnown() bool {
	for _, known := range KnownEngineKinds() {
		if k == known {
			return true
		}
	}
	return false
}

func (k EngineKind) String() string {
	return string(k)
}
