package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	driver "github.com/go-sql-driver/mysql"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
)

func init() {
	datasource.RegisterDriver(datasource.Registration{
		Name: "mysql",
		Open: Open,
	})
	datasource.RegisterErrorMessage(errorMessage)
}

// Open creates a MySQL pool for config and verifies it with a ping.
// Results come back as native-typed rows.
func Open(ctx context.Context, id datasource.Identity, config map[string]any) (datasource.Handle, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}
	return datasource.NewSQLHandle(db, id), nil
}

func errorMessage(err error) (string, bool) {
	var myErr *driver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Message, true
	}
	return "", false
}
