// Package sqlxrepos implements the domain repositories on postgres via sqlx.
package sqlxrepos

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a postgres duplicate key error on
// the given constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation && strings.Contains(pqErr.Constraint, constraint)
	}
	return false
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
