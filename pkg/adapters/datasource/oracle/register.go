package oracle

import (
	"errors"

	"github.com/sijms/go-ora/v2/network"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
)

func init() {
	datasource.RegisterDriver(datasource.Registration{
		Name: "oracledb",
		Open: Open,
	})
	datasource.RegisterErrorMessage(errorMessage)
}

func errorMessage(err error) (string, bool) {
	var oraErr *network.OracleError
	if errors.As(err, &oraErr) {
		return oraErr.ErrMsg, true
	}
	return "", false
}
