package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/snowflakedb/gosnowflake" // Snowflake driver

	"github.com/ignite/audience-sync/internal/config"
	"github.com/ignite/audience-sync/internal/domain"
	"github.com/ignite/audience-sync/internal/pkg/logger"
)

// SnowflakeConnector streams rows from a customer's Snowflake warehouse
// using their configured query. Connections are opened per stream: tasks
// for different integrations carry different credentials, so pooling
// across calls buys nothing.
type SnowflakeConnector struct {
	// MaxRows caps one stream; zero means no cap. The cap protects the
	// platform from an integration query selecting an unbounded table.
	MaxRows int

	// QueryTimeout bounds the whole stream; zero means no deadline.
	QueryTimeout time.Duration
}

// NewSnowflakeConnector creates a connector with the configured caps.
func NewSnowflakeConnector(cfg config.SnowflakeConfig) *SnowflakeConnector {
	return &SnowflakeConnector{MaxRows: cfg.MaxRows, QueryTimeout: cfg.QueryTimeout()}
}

// Stream opens a connection, runs cfg.Query and delivers rows in chunks.
func (s *SnowflakeConnector) Stream(ctx context.Context, cfg domain.DatabaseConfig, handle RowHandler) error {
	db, err := sql.Open("snowflake", snowflakeDSN(cfg))
	if err != nil {
		return fmt.Errorf("opening snowflake connection: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if s.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.QueryTimeout)
		defer cancel()
	}

	rows, err := db.QueryContext(ctx, cfg.Query)
	if err != nil {
		return fmt.Errorf("running warehouse query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("reading result columns: %w", err)
	}

	chunk := make([]Row, 0, streamChunkSize)
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	streamed := 0
	for rows.Next() {
		if s.MaxRows > 0 && streamed >= s.MaxRows {
			logger.Warn("warehouse stream truncated at row cap", "max_rows", s.MaxRows)
			break
		}
		streamed++

		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scanning warehouse row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			row[strings.ToLower(col)] = domain.FromNative(nativeValue(values[i]))
		}
		chunk = append(chunk, row)

		if len(chunk) == streamChunkSize {
			if err := handle(ctx, chunk); err != nil {
				return err
			}
			chunk = chunk[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating warehouse rows: %w", err)
	}
	if len(chunk) > 0 {
		return handle(ctx, chunk)
	}
	return nil
}

// snowflakeDSN builds user:password@account/database/schema?warehouse=x.
func snowflakeDSN(cfg domain.DatabaseConfig) string {
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s",
		cfg.User,
		cfg.Password,
		cfg.Account,
		cfg.Database,
		cfg.Schema,
	)
	if cfg.Warehouse != "" {
		dsn += "?warehouse=" + cfg.Warehouse
	}
	return dsn
}

// nativeValue unwraps driver byte slices so text columns infer as
// strings instead of opaque blobs.
func nativeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
