// Package store implements the Postgres-backed persistence layer: the
// customer record store, field metadata store, analytical event sink,
// webhook staging store, and the account/integration stores.
//
// All stores share one *sql.DB constructed by the caller and injected;
// nothing in this package owns a connection lifecycle.
package store

import (
	"database/sql"
	"time"
)

// nullTime converts a nullable column to a *time.Time.
func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
