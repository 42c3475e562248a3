package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/advanced-rising/vanillameta/pkg/models"
)

func renderQueryResult(w io.Writer, result models.QueryResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "table", "":
		return renderTable(w, result)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func renderTable(w io.Writer, result models.QueryResult) error {
	if len(result.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(result.Fields))
	for i, f := range result.Fields {
		header[i] = fmt.Sprintf("%s (%s)", f.ColumnName, f.ColumnType)
	}
	t.AppendHeader(header)

	for _, r := range result.Rows {
		row := make(table.Row, len(result.Fields))
		for i, f := range result.Fields {
			row[i] = formatValue(r[f.ColumnName])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(result.Rows))
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
