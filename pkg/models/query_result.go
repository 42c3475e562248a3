package models

// ResponseStatus is the outcome tag carried by every result returned to callers.
type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "success"
	StatusError   ResponseStatus = "error"
)

// ColumnType is the semantic type of a result column, either looked up from
// native driver metadata or inferred from sampled values.
type ColumnType string

const (
	ColumnTypeInteger  ColumnType = "integer"
	ColumnTypeFloat    ColumnType = "float"
	ColumnTypeString   ColumnType = "string"
	ColumnTypeBoolean  ColumnType = "boolean"
	ColumnTypeDatetime ColumnType = "datetime"
	ColumnTypeUnknown  ColumnType = "unknown"
)

// Field describes one column of a QueryResult.
type Field struct {
	ColumnName string     `json:"columnName"`
	ColumnType ColumnType `json:"columnType"`
}

// QueryResult is the canonical output of a query execution regardless of engine.
// Rows and Fields are never nil so they always encode as JSON arrays.
type QueryResult struct {
	Status  ResponseStatus   `json:"status"`
	Message string           `json:"message"`
	Rows    []map[string]any `json:"rows"`
	Fields  []Field          `json:"fields"`
}

// NewSuccessResult builds a success result, replacing nil slices with empty ones.
func NewSuccessResult(rows []map[string]any, fields []Field) QueryResult {
	if rows == nil {
		rows = []map[string]any{}
	}
	if fields == nil {
		fields = []Field{}
	}
	return QueryResult{
		Status:  StatusSuccess,
		Message: "success",
		Rows:    rows,
		Fields:  fields,
	}
}

// NewErrorResult builds an error result with empty rows and fields.
func NewErrorResult(message string) QueryResult {
	return QueryResult{
		Status:  StatusError,
		Message: message,
		Rows:    []map[string]any{},
		Fields:  []Field{},
	}
}

// TestResult is returned by a connectivity probe.
type TestResult struct {
	Status  ResponseStatus    `json:"status"`
	Message string            `json:"message,omitempty"`
	Data    map[string]string `json:"data,omitempty"`
}
