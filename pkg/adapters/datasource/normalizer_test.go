package datasource

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/advanced-rising/vanillameta/pkg/apperrors"
	"github.com/advanced-rising/vanillameta/pkg/models"
)

var (
	mysqlID     = Identity{Engine: models.EngineMySQL, Driver: "mysql"}
	pgID        = Identity{Engine: models.EnginePostgres, Driver: "pg"}
	cockroachID = Identity{Engine: models.EngineCockroachDB, Driver: "pg"}
	bigqueryID  = Identity{Engine: models.EngineBigQuery, Driver: "bigquery", Adapter: true}
	sqliteID    = Identity{Engine: models.EngineSQLite, Driver: "sqlite3"}
)

func TestShapeFor(t *testing.T) {
	assert.Equal(t, ShapeTyped, ShapeFor(mysqlID))
	assert.Equal(t, ShapeNamed, ShapeFor(pgID))
	assert.Equal(t, ShapeNamed, ShapeFor(cockroachID))
	assert.Equal(t, ShapeRecords, ShapeFor(bigqueryID))
	assert.Equal(t, ShapeRecords, ShapeFor(sqliteID))
	// An adapter named like a standard driver still takes the adapter branch.
	assert.Equal(t, ShapeRecords, ShapeFor(Identity{Driver: "pg", Adapter: true}))
}

func TestNormalizer_NativeTypesNeverInfer(t *testing.T) {
	n := NewNormalizer()
	n.Infer = func([]any) models.ColumnType {
		t.Fatal("inference must not run for natively typed results")
		return models.ColumnTypeUnknown
	}

	raw := TypedRows{
		Rows: []map[string]any{{"id": int64(1), "name": "a", "created": "2024-01-01"}},
		Columns: []NativeColumn{
			{Name: "id", TypeName: "BIGINT"},
			{Name: "name", TypeName: "VARCHAR"},
			{Name: "created", TypeName: "DATETIME"},
		},
	}

	got, err := n.Normalize(mysqlID, raw)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, got.Status)
	assert.Equal(t, []models.Field{
		{ColumnName: "id", ColumnType: models.ColumnTypeInteger},
		{ColumnName: "name", ColumnType: models.ColumnTypeString},
		{ColumnName: "created", ColumnType: models.ColumnTypeDatetime},
	}, got.Fields)
	assert.Len(t, got.Rows, 1)
}

func TestNormalizer_NamedRows(t *testing.T) {
	raw := NamedRows{
		Rows: []map[string]any{
			{"id": int64(1), "score": 1.5, "label": "x"},
			{"id": int64(2), "score": int64(3), "label": nil},
		},
		Fields: []string{"id", "score", "label"},
	}

	for _, id := range []Identity{pgID, cockroachID} {
		got, err := NewNormalizer().Normalize(id, raw)
		require.NoError(t, err)
		assert.Equal(t, []models.Field{
			{ColumnName: "id", ColumnType: models.ColumnTypeInteger},
			{ColumnName: "score", ColumnType: models.ColumnTypeFloat},
			{ColumnName: "label", ColumnType: models.ColumnTypeString},
		}, got.Fields)
	}
}

func TestNormalizer_RecordsUseFirstRecordKeys(t *testing.T) {
	keys := []string{"b", "a"}
	raw := Records{Records: []Record{
		{Keys: keys, Values: map[string]any{"b": "x", "a": nil}},
		{Keys: keys, Values: map[string]any{"b": "y", "a": nil}},
	}}

	for _, id := range []Identity{bigqueryID, sqliteID, {Engine: "clickhouse", Driver: "clickhouse"}} {
		got, err := NewNormalizer().Normalize(id, raw)
		require.NoError(t, err)
		assert.Equal(t, []models.Field{
			{ColumnName: "b", ColumnType: models.ColumnTypeString},
			{ColumnName: "a", ColumnType: models.ColumnTypeUnknown},
		}, got.Fields)
		assert.Equal(t, []map[string]any{
			{"b": "x", "a": nil},
			{"b": "y", "a": nil},
		}, got.Rows)
	}
}

func TestNormalizer_ZeroRowsEveryBranch(t *testing.T) {
	cases := []struct {
		id  Identity
		raw RawResult
	}{
		{mysqlID, TypedRows{Columns: []NativeColumn{{Name: "id", TypeName: "INT"}}}},
		{pgID, NamedRows{Fields: []string{"id"}}},
		{cockroachID, NamedRows{}},
		{bigqueryID, Records{}},
		{sqliteID, Records{}},
		{mysqlID, nil},
		{bigqueryID, nil},
	}

	for i, tc := range cases {
		t.Run(fmt.Sprintf("%s_%d", tc.id.Engine, i), func(t *testing.T) {
			got, err := NewNormalizer().Normalize(tc.id, tc.raw)
			require.NoError(t, err)
			assert.Equal(t, models.StatusSuccess, got.Status)
			assert.NotNil(t, got.Rows)
			assert.NotNil(t, got.Fields)
			assert.Empty(t, got.Rows)
			assert.Empty(t, got.Fields)
		})
	}
}

func TestNormalizer_ShapeMismatch(t *testing.T) {
	_, err := NewNormalizer().Normalize(mysqlID, Records{Records: []Record{{Keys: []string{"a"}}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnexpectedResult)

	_, err = NewNormalizer().Normalize(bigqueryID, NamedRows{})
	assert.ErrorIs(t, err, apperrors.ErrUnexpectedResult)
}

type detailedError struct {
	Code   int
	Detail string
}

func (e *detailedError) Error() string { return fmt.Sprintf("driver error %d", e.Code) }

type emptyError struct{}

func (emptyError) Error() string { return "" }

func TestErrorMessage(t *testing.T) {
	RegisterErrorMessage(func(err error) (string, bool) {
		var de *detailedError
		if errors.As(err, &de) {
			return de.Detail, true
		}
		return "", false
	})

	wrapped := fmt.Errorf("run query: %w", &detailedError{Code: 1146, Detail: "Table 'app.missing' doesn't exist"})
	assert.Equal(t, "Table 'app.missing' doesn't exist", ErrorMessage(wrapped))
	assert.Equal(t, "plain failure", ErrorMessage(errors.New("plain failure")))
	assert.Equal(t, GenericErrorMessage, ErrorMessage(emptyError{}))
	assert.Equal(t, "", ErrorMessage(nil))
}
