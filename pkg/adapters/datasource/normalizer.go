package datasource

import (
	"fmt"

	"github.com/advanced-rising/vanillameta/pkg/apperrors"
	"github.com/advanced-rising/vanillameta/pkg/fieldtype"
	"github.com/advanced-rising/vanillameta/pkg/models"
)

// GenericErrorMessage is reported when a failure carries no message at all.
const GenericErrorMessage = "query execution failed"

// driverShapes is the normalization table for standard drivers. Drivers not
// listed here produce flat records.
var driverShapes = map[string]Shape{
	"mysql": ShapeTyped,
	"pg":    ShapeNamed,
}

// ShapeFor returns the raw result shape expected from a handle. Warehouse
// adapters always produce flat records; standard drivers are looked up by name.
func ShapeFor(id Identity) Shape {
	if id.Adapter {
		return ShapeRecords
	}
	if s, ok := driverShapes[id.Driver]; ok {
		return s
	}
	return ShapeRecords
}

// Normalizer turns raw driver results into QueryResults.
type Normalizer struct {
	// Infer classifies a sample of column values.
	Infer func(sample []any) models.ColumnType
	// NativeType maps a native column type name to a column type.
	NativeType func(typeName string) models.ColumnType
}

// NewNormalizer returns a normalizer using the fieldtype package.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		Infer:      fieldtype.Infer,
		NativeType: fieldtype.MySQLNativeType,
	}
}

// Normalize shapes raw into the canonical result for a handle with identity id.
// A nil raw result, or one with zero rows, is a successful empty result.
// A raw result that does not match the shape expected for id is an error.
func (n *Normalizer) Normalize(id Identity, raw RawResult) (models.QueryResult, error) {
	if raw == nil {
		return models.NewSuccessResult(nil, nil), nil
	}

	shape := ShapeFor(id)
	switch shape {
	case ShapeTyped:
		typed, ok := raw.(TypedRows)
		if !ok {
			return models.QueryResult{}, mismatch(id, shape, raw)
		}
		return n.typed(typed), nil
	case ShapeNamed:
		named, ok := raw.(NamedRows)
		if !ok {
			return models.QueryResult{}, mismatch(id, shape, raw)
		}
		return n.named(named), nil
	default:
		records, ok := raw.(Records)
		if !ok {
			return models.QueryResult{}, mismatch(id, shape, raw)
		}
		return n.records(records), nil
	}
}

func mismatch(id Identity, shape Shape, raw RawResult) error {
	return fmt.Errorf("%w: driver %q expects %s rows, got %T", apperrors.ErrUnexpectedResult, id.Driver, shape, raw)
}

func (n *Normalizer) typed(raw TypedRows) models.QueryResult {
	if len(raw.Rows) == 0 {
		return models.NewSuccessResult(nil, nil)
	}
	fields := make([]models.Field, 0, len(raw.Columns))
	for _, col := range raw.Columns {
		fields = append(fields, models.Field{
			ColumnName: col.Name,
			ColumnType: n.NativeType(col.TypeName),
		})
	}
	return models.NewSuccessResult(raw.Rows, fields)
}

func (n *Normalizer) named(raw NamedRows) models.QueryResult {
	if len(raw.Rows) == 0 {
		return models.NewSuccessResult(nil, nil)
	}
	return models.NewSuccessResult(raw.Rows, n.inferFields(raw.Fields, raw.Rows))
}

func (n *Normalizer) records(raw Records) models.QueryResult {
	if len(raw.Records) == 0 {
		return models.NewSuccessResult(nil, nil)
	}
	rows := make([]map[string]any, 0, len(raw.Records))
	for _, rec := range raw.Records {
		rows = append(rows, rec.Values)
	}
	return models.NewSuccessResult(rows, n.inferFields(raw.Records[0].Keys, rows))
}

func (n *Normalizer) inferFields(names []string, rows []map[string]any) []models.Field {
	fields := make([]models.Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, models.Field{
			ColumnName: name,
			ColumnType: n.Infer(fieldtype.Sample(rows, name)),
		})
	}
	return fields
}

// ErrorMessage returns the most specific message err exposes: a registered
// driver extractor first, then the error text, then GenericErrorMessage.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, extract := range errorExtractors() {
		if msg, ok := extract(err); ok && msg != "" {
			return msg
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return GenericErrorMessage
}
