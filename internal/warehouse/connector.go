// Package warehouse implements the customer-warehouse sync: connectors
// that stream rows out of an external analytical database, and the job
// that merges those rows into platform customer records on a per-account
// schedule.
package warehouse

import (
	"context"

	"github.com/ignite/audience-sync/internal/domain"
	"github.com/ignite/audience-sync/internal/pkg/logger"
)

// streamChunkSize is how many rows a connector hands to the consumer at
// a time.
const streamChunkSize = 100

// Row is one warehouse row keyed by lowercased column name.
type Row map[string]domain.Value

// RowHandler consumes one chunk of streamed rows. Returning an error
// aborts the stream.
type RowHandler func(ctx context.Context, rows []Row) error

// Connector streams customer rows out of one kind of external database.
type Connector interface {
	// Stream runs the configured query and delivers rows in chunks.
	Stream(ctx context.Context, cfg domain.DatabaseConfig, handle RowHandler) error
}

// Registry maps a database type to its connector. Every type an
// integration can be configured with has an entry; types we do not pull
// from yet map to a shared no-op connector so a misconfigured task fails
// loudly in logs rather than with a nil deref.
type Registry struct {
	connectors map[domain.DBType]Connector
}

// NewRegistry builds the registry with the given Snowflake connector
// live and explicit no-op entries for the remaining supported types.
func NewRegistry(snowflake Connector) *Registry {
	noop := &NoopConnector{}
	return &Registry{connectors: map[domain.DBType]Connector{
		domain.DBSnowflake: snowflake,
		domain.DBMySQL:     noop,
		domain.DBPostgres:  noop,
		domain.DBBigQuery:  noop,
		domain.DBRedshift:  noop,
	}}
}

// Lookup returns the connector for the given type, or nil when the type
// is unknown.
func (r *Registry) Lookup(dbType domain.DBType) Connector {
	return r.connectors[dbType]
}

// NoopConnector is the placeholder for database types without a real
// connector. It streams nothing and succeeds.
type NoopConnector struct{}

// Stream logs and returns without delivering rows.
func (n *NoopConnector) Stream(ctx context.Context, cfg domain.DatabaseConfig, handle RowHandler) error {
	logger.Warn("no connector implemented for database type", "type", string(cfg.Type))
	return nil
}
