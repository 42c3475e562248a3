package mssql

import (
	"errors"

	mssqldb "github.com/microsoft/go-mssqldb"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
)

func init() {
	datasource.RegisterDriver(datasource.Registration{
		Name: "mssql",
		Open: Open,
	})
	datasource.RegisterErrorMessage(errorMessage)
}

func errorMessage(err error) (string, bool) {
	var msErr mssqldb.Error
	if errors.As(err, &msErr) {
		return msErr.Message, true
	}
	return "", false
}
