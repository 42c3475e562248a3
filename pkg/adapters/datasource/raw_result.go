package datasource

// RawResult is what a handle returns before normalization. It is one of
// TypedRows, NamedRows or Records.
type RawResult interface {
	isRawResult()
}

// NativeColumn is a column descriptor carrying the driver's native type name.
type NativeColumn struct {
	Name     string
	TypeName string
}

// TypedRows pairs data rows with native column descriptors.
// Produced by drivers that report exact column types.
type TypedRows struct {
	Rows    []map[string]any
	Columns []NativeColumn
}

// NamedRows carries rows and the ordered column names, without types.
type NamedRows struct {
	Rows   []map[string]any
	Fields []string
}

// Record is one row of a flat record result. Keys preserves the column order.
type Record struct {
	Keys   []string
	Values map[string]any
}

// Records is a flat sequence of records with no separate field list.
type Records struct {
	Records []Record
}

func (TypedRows) isRawResult() {}
func (NamedRows) isRawResult() {}
func (Records) isRawResult()   {}

// Shape names the raw result variant a driver produces.
type Shape string

const (
	ShapeTyped   Shape = "typed"
	ShapeNamed   Shape = "named"
	ShapeRecords Shape = "records"
)
