// Package bigquery registers the BigQuery warehouse adapter.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	bq "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
)

// Handle runs queries through a BigQuery client.
type Handle struct {
	client *bq.Client
	cfg    *Config
	id     datasource.Identity
}

func init() {
	datasource.RegisterAdapter(datasource.Registration{
		Name: "bigquery",
		Open: Open,
	})
	datasource.RegisterErrorMessage(errorMessage)
}

// Open creates a client for the configured project. Without explicit
// credentials the client falls back to application default credentials.
func Open(ctx context.Context, id datasource.Identity, config map[string]any) (datasource.Handle, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if len(cfg.CredentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	}
	client, err := bq.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	if cfg.Location != "" {
		client.Location = cfg.Location
	}

	return &Handle{client: client, cfg: cfg, id: id}, nil
}

// Identity reports the engine and adapter the handle was opened with.
func (h *Handle) Identity() datasource.Identity {
	return h.id
}

// Run executes sqlText as a standard SQL job and reads every row.
func (h *Handle) Run(ctx context.Context, sqlText string) (datasource.RawResult, error) {
	q := h.client.Query(sqlText)
	if h.cfg.Dataset != "" {
		q.DefaultProjectID = h.cfg.ProjectID
		q.DefaultDatasetID = h.cfg.Dataset
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	var rows [][]bq.Value
	for {
		var row []bq.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, row)
	}

	return buildRecords(it.Schema, rows), nil
}

// Close closes the client.
func (h *Handle) Close() error {
	return h.client.Close()
}

// buildRecords pairs each row with the schema's column names, made unique.
func buildRecords(schema bq.Schema, rows [][]bq.Value) datasource.Records {
	names := make([]string, len(schema))
	for i, f := range schema {
		names[i] = f.Name
	}
	keys := datasource.UniqueColumnNames(names)

	records := make([]datasource.Record, 0, len(rows))
	for _, row := range rows {
		values := make(map[string]any, len(keys))
		for i, key := range keys {
			if i < len(row) {
				values[key] = convertValue(row[i])
			} else {
				values[key] = nil
			}
		}
		records = append(records, datasource.Record{Keys: keys, Values: values})
	}
	return datasource.Records{Records: records}
}

// convertValue flattens BigQuery values into JSON-friendly scalars.
// NUMERIC arrives as *big.Rat; civil DATE/TIME/DATETIME use their string form.
func convertValue(v bq.Value) any {
	switch val := v.(type) {
	case *big.Rat:
		if val == nil {
			return nil
		}
		f, _ := val.Float64()
		return f
	case []byte:
		return string(val)
	case time.Time:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return v
	}
}

func errorMessage(err error) (string, bool) {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}

// Ensure Handle implements datasource.Handle at compile time.
var _ datasource.Handle = (*Handle)(nil)
