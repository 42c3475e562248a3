package fieldtype

import (
	"strings"

	"github.com/advanced-rising/vanillameta/pkg/models"
)

// mysqlTypes maps the type names reported by the MySQL driver's column
// descriptors to column types.
var mysqlTypes = map[string]models.ColumnType{
	"TINYINT":    models.ColumnTypeInteger,
	"SMALLINT":   models.ColumnTypeInteger,
	"MEDIUMINT":  models.ColumnTypeInteger,
	"INT":        models.ColumnTypeInteger,
	"INTEGER":    models.ColumnTypeInteger,
	"BIGINT":     models.ColumnTypeInteger,
	"YEAR":       models.ColumnTypeInteger,
	"DECIMAL":    models.ColumnTypeFloat,
	"NEWDECIMAL": models.ColumnTypeFloat,
	"FLOAT":      models.ColumnTypeFloat,
	"DOUBLE":     models.ColumnTypeFloat,
	"BIT":        models.ColumnTypeBoolean,
	"BOOL":       models.ColumnTypeBoolean,
	"BOOLEAN":    models.ColumnTypeBoolean,
	"DATE":       models.ColumnTypeDatetime,
	"DATETIME":   models.ColumnTypeDatetime,
	"TIMESTAMP":  models.ColumnTypeDatetime,
	"TIME":       models.ColumnTypeDatetime,
	"NULL":       models.ColumnTypeUnknown,
}

// MySQLNativeType maps a MySQL native type name (as returned by
// sql.ColumnType.DatabaseTypeName) to a column type. The "UNSIGNED " prefix is
// ignored. Text, binary, JSON, enum, set and spatial types map to string.
func MySQLNativeType(typeName string) models.ColumnType {
	name := strings.ToUpper(strings.TrimSpace(typeName))
	name = strings.TrimPrefix(name, "UNSIGNED ")
	if t, ok := mysqlTypes[name]; ok {
		return t
	}
	return models.ColumnTypeString
}
