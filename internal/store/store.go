// Package store holds the SQL for every table. Functions take a
// sqlx.ExtContext so they run unchanged against the pool or inside a
// transaction owned by the caller.
package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// rowsAffected reports whether a write touched at least one row.
func rowsAffected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting affected rows: %w", err)
	}
	return n > 0, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
