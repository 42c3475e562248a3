package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
)

func init() {
	datasource.RegisterDriver(datasource.Registration{
		Name: "pg",
		Open: Open,
	})
	datasource.RegisterErrorMessage(errorMessage)
}

// errorMessage prefers the server's message over pgconn's decorated Error().
func errorMessage(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message, true
	}
	return "", false
}
