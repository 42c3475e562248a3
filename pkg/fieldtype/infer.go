// Package fieldtype classifies result columns into the ColumnType vocabulary.
//
// Two paths exist. Engines that report native column types (MySQL) go through
// an exact lookup table. Every other engine is classified from a bounded
// sample of the column's values.
package fieldtype

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/advanced-rising/vanillameta/pkg/models"
)

// MaxSampleSize is the number of leading rows inspected per column.
const MaxSampleSize = 100

// Sample returns the values of column from at most the first MaxSampleSize rows.
// Rows missing the column contribute a nil value.
func Sample(rows []map[string]any, column string) []any {
	n := len(rows)
	if n > MaxSampleSize {
		n = MaxSampleSize
	}
	sample := make([]any, 0, n)
	for i := 0; i < n; i++ {
		sample = append(sample, rows[i][column])
	}
	return sample
}

// Infer classifies a sample of column values. Nulls are ignored. An empty or
// all-null sample is unknown. When every non-null value agrees the shared type
// is returned, and a disagreement falls back to string.
//
// One exception to the string fallback: integers mixed with floats widen to
// float rather than string, so a numeric column whose leading rows happen to
// be whole numbers keeps a numeric type.
func Infer(sample []any) models.ColumnType {
	result := models.ColumnTypeUnknown
	for _, v := range sample {
		if v == nil {
			continue
		}
		t := classify(v)
		switch {
		case result == models.ColumnTypeUnknown:
			result = t
		case result == t:
		case isNumeric(result) && isNumeric(t):
			result = models.ColumnTypeFloat
		default:
			return models.ColumnTypeString
		}
	}
	return result
}

func isNumeric(t models.ColumnType) bool {
	return t == models.ColumnTypeInteger || t == models.ColumnTypeFloat
}

func classify(v any) models.ColumnType {
	switch val := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return models.ColumnTypeInteger
	case *big.Int:
		return models.ColumnTypeInteger
	case float32, float64, *big.Rat, *big.Float:
		return models.ColumnTypeFloat
	case bool:
		return models.ColumnTypeBoolean
	case time.Time, *time.Time:
		return models.ColumnTypeDatetime
	case string:
		return classifyString(val)
	case []byte:
		return classifyString(string(val))
	default:
		return models.ColumnTypeString
	}
}

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func classifyString(s string) models.ColumnType {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.ColumnTypeString
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return models.ColumnTypeInteger
	}
	if looksDecimal(s) {
		return models.ColumnTypeFloat
	}
	if s == "true" || s == "false" {
		return models.ColumnTypeBoolean
	}
	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return models.ColumnTypeDatetime
		}
	}
	return models.ColumnTypeString
}

// looksDecimal accepts plain decimal literals such as "3.14" or "-1e5" but
// rejects the special forms ParseFloat also accepts ("NaN", "Inf", hex floats).
func looksDecimal(s string) bool {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '+' || r == 'e' || r == 'E':
		default:
			return false
		}
	}
	return true
}
