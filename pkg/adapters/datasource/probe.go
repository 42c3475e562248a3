package datasource

import "github.com/advanced-rising/vanillameta/pkg/models"

// DefaultProbeSQL is the connectivity probe for engines without an override.
const DefaultProbeSQL = "SELECT 1"

// probeOverrides lists engines that cannot select without a table.
var probeOverrides = map[models.EngineKind]string{
	models.EngineOracle: "SELECT 1 FROM DUAL",
}

// ProbeSQL returns the trivial statement used to test connectivity to kind.
func ProbeSQL(kind models.EngineKind) string {
	if sql, ok := probeOverrides[kind]; ok {
		return sql
	}
	return DefaultProbeSQL
}
