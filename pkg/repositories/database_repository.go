package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
	"github.com/advanced-rising/vanillameta/pkg/apperrors"
	"github.com/advanced-rising/vanillameta/pkg/models"
)

// DatabaseRepository persists connection configs. Configs are stored as
// serialized TEXT; sealing and unsealing happens in crypto.ConfigCodec.
type DatabaseRepository interface {
	datasource.ConfigStore

	// Create inserts a connection and fills in its ID and timestamps.
	Create(ctx context.Context, conn *models.StoredConnection) error

	// GetByID returns the connection including its serialized config.
	GetByID(ctx context.Context, id int64) (*models.StoredConnection, error)

	// List returns every connection ordered by ID, without configs.
	List(ctx context.Context) ([]*models.StoredConnection, error)

	// UpdateConfig replaces the serialized config of a connection.
	UpdateConfig(ctx context.Context, id int64, serializedConfig string) error

	// Delete removes a connection.
	Delete(ctx context.Context, id int64) error
}

type databaseRepository struct {
	db *sql.DB
}

// NewDatabaseRepository creates a repository over the application database.
func NewDatabaseRepository(db *sql.DB) DatabaseRepository {
	return &databaseRepository{db: db}
}

func (r *databaseRepository) Create(ctx context.Context, conn *models.StoredConnection) error {
	query := `
INSERT INTO databases (name, engine, connection_config)
VALUES ($1, $2, $3)
RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, conn.Name, string(conn.Engine), conn.SerializedConfig).
		Scan(&conn.ID, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		// Unique constraint violation on name (PostgreSQL error code 23505)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("create database: %w", err)
	}
	return nil
}

func (r *databaseRepository) GetByID(ctx context.Context, id int64) (*models.StoredConnection, error) {
	query := `
SELECT id, name, engine, connection_config, created_at, updated_at
FROM databases
WHERE id = $1`

	var conn models.StoredConnection
	var engine string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&conn.ID,
		&conn.Name,
		&engine,
		&conn.SerializedConfig,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("database %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get database: %w", err)
	}
	conn.Engine = models.ParseEngineKind(engine)
	return &conn, nil
}

func (r *databaseRepository) List(ctx context.Context) ([]*models.StoredConnection, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, engine, created_at, updated_at
FROM databases
ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.StoredConnection
	for rows.Next() {
		var conn models.StoredConnection
		var engine string
		if err := rows.Scan(&conn.ID, &conn.Name, &engine, &conn.CreatedAt, &conn.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan database: %w", err)
		}
		conn.Engine = models.ParseEngineKind(engine)
		result = append(result, &conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate databases: %w", err)
	}
	return result, nil
}

func (r *databaseRepository) UpdateConfig(ctx context.Context, id int64, serializedConfig string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE databases
SET connection_config = $2, updated_at = NOW()
WHERE id = $1`, id, serializedConfig)
	if err != nil {
		return fmt.Errorf("update database config: %w", err)
	}
	return requireAffected(res, id)
}

func (r *databaseRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM databases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete database: %w", err)
	}
	return requireAffected(res, id)
}

// LoadConfig returns the engine kind and serialized config for id.
func (r *databaseRepository) LoadConfig(ctx context.Context, id int64) (models.EngineKind, string, error) {
	var engine, config string
	err := r.db.QueryRowContext(ctx, `
SELECT engine, connection_config
FROM databases
WHERE id = $1`, id).Scan(&engine, &config)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", fmt.Errorf("database %d: %w", id, apperrors.ErrNotFound)
		}
		return "", "", fmt.Errorf("load database config: %w", err)
	}
	return models.ParseEngineKind(engine), config, nil
}

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("database %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
