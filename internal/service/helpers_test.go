package service_test

import (
	"database/sql/driver"

	"github.com/DATA-DOG/go-sqlmock"
)

func sqlmockResult() driver.Result {
	return sqlmock.NewResult(0, 0)
}
