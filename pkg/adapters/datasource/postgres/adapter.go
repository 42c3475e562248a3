package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
)

// Handle runs queries over a pgx pool. It serves both PostgreSQL and
// CockroachDB, which share the wire protocol.
type Handle struct {
	pool *pgxpool.Pool
	id   datasource.Identity
}

// buildConnectionString builds a PostgreSQL URL with proper escaping.
// Credentials go through url.UserPassword so special characters in passwords
// (e.g., @, /, #, ?, spaces) survive URL parsing unchanged.
func buildConnectionString(cfg *Config) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode()
	}

	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// Open creates a pool for config and verifies it with a ping.
func Open(ctx context.Context, id datasource.Identity, config map[string]any) (datasource.Handle, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", id.Engine, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	return &Handle{pool: pool, id: id}, nil
}

// Identity reports the engine and driver the handle was opened with.
func (h *Handle) Identity() datasource.Identity {
	return h.id
}

// Run executes sqlText and returns rows plus ordered column names.
func (h *Handle) Run(ctx context.Context, sqlText string) (datasource.RawResult, error) {
	rows, err := h.pool.Query(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	names := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		names[i] = fd.Name
	}
	fields := datasource.UniqueColumnNames(names)

	var resultRows []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(fields))
		for i, name := range fields {
			rowMap[name] = convertValue(values[i])
		}
		resultRows = append(resultRows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return datasource.NamedRows{Rows: resultRows, Fields: fields}, nil
}

// Close closes the pool.
func (h *Handle) Close() error {
	h.pool.Close()
	return nil
}

// convertValue turns pgx values without a natural JSON form into plain
// scalars: numerics become float64, UUIDs their string form.
func convertValue(v any) any {
	switch val := v.(type) {
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(val).String()
	case []byte:
		return string(val)
	default:
		return v
	}
}

// Ensure Handle implements datasource.Handle at compile time.
var _ datasource.Handle = (*Handle)(nil)
