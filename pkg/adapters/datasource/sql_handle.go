package datasource

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLHandle is a Handle over a database/sql pool. Engine packages whose
// drivers speak database/sql embed or return it directly.
type SQLHandle struct {
	DB    *sql.DB
	id    Identity
	shape Shape
}

// NewSQLHandle wraps db. The raw result shape follows the normalization
// table for the identity's driver.
func NewSQLHandle(db *sql.DB, id Identity) *SQLHandle {
	return &SQLHandle{DB: db, id: id, shape: ShapeFor(id)}
}

// Identity reports the engine and driver the handle was opened with.
func (h *SQLHandle) Identity() Identity {
	return h.id
}

// Run executes sqlText and scans every row.
func (h *SQLHandle) Run(ctx context.Context, sqlText string) (RawResult, error) {
	if h.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	rows, err := h.DB.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return ScanRows(rows, h.shape)
}

// Close closes the underlying pool.
func (h *SQLHandle) Close() error {
	if h.DB == nil {
		return nil
	}
	return h.DB.Close()
}

// Ping verifies the pool can reach the server.
func (h *SQLHandle) Ping(ctx context.Context) error {
	return h.DB.PingContext(ctx)
}

// ScanRows reads every row from rows into the raw result variant for shape.
// Byte slices are converted to strings. Duplicate column names are made
// unique with UniqueColumnNames.
func ScanRows(rows *sql.Rows, shape Shape) (RawResult, error) {
	rawColumns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	columns := UniqueColumnNames(rawColumns)

	var native []NativeColumn
	if shape == ShapeTyped {
		types, err := rows.ColumnTypes()
		if err != nil {
			return nil, fmt.Errorf("read column types: %w", err)
		}
		native = make([]NativeColumn, 0, len(types))
		for i, ct := range types {
			native = append(native, NativeColumn{Name: columns[i], TypeName: ct.DatabaseTypeName()})
		}
	}

	var data []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch shape {
	case ShapeTyped:
		return TypedRows{Rows: data, Columns: native}, nil
	case ShapeNamed:
		return NamedRows{Rows: data, Fields: columns}, nil
	default:
		records := make([]Record, 0, len(data))
		for _, row := range data {
			records = append(records, Record{Keys: columns, Values: row})
		}
		return Records{Records: records}, nil
	}
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
