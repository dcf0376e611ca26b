package postgres

import (
	"github.com/jackc/pgx/v5/pgconn"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// uniqueViolationErrCode is the SQLSTATE the server reports when an insert
// hits the unique index on links.code. The index, not an application-side
// pre-check, is the source of truth for alias collisions.
const uniqueViolationErrCode = "23505"

func isUniqueViolationError(err error) bool {
	pgErr, ok := err.(*pgconn.PgError)
	return ok && pgErr.SQLState() == uniqueViolationErrCode
}
