// internal/store/store.go
package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned by point lookups that match no row.
var ErrNotFound = errors.New("store: not found")

// SQLSTATE codes for schema-evolution detection. Features that depend on
// optional tables/columns degrade when these come back, instead of matching
// driver error text.
const (
	pqUndefinedTable  = "42P01"
	pqUndefinedColumn = "42703"
)

// isSchemaError reports whether err indicates a missing table or column,
// i.e. storage that has not been provisioned for an optional feature yet.
func isSchemaError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUndefinedTable || pqErr.Code == pqUndefinedColumn
	}
	return false
}
