// Package all links every engine package into a binary. Import it for its
// side effects.
package all

import (
	_ "github.com/advanced-rising/vanillameta/pkg/adapters/datasource/bigquery"
	_ "github.com/advanced-rising/vanillameta/pkg/adapters/datasource/duckdb"
	_ "github.com/advanced-rising/vanillameta/pkg/adapters/datasource/mssql"
	_ "github.com/advanced-rising/vanillameta/pkg/adapters/datasource/mysql"
	_ "github.com/advanced-rising/vanillameta/pkg/adapters/datasource/oracle"
	_ "github.com/advanced-rising/vanillameta/pkg/adapters/datasource/postgres"
	_ "github.com/advanced-rising/vanillameta/pkg/adapters/datasource/snowflake"
	_ "github.com/advanced-rising/vanillameta/pkg/adapters/datasource/sqlite"
)
