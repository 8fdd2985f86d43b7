package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/audience-sync/internal/domain"
)

// IntegrationStore reads warehouse integrations and advances their sync
// watermark. LastSync is the only column the engine mutates.
type IntegrationStore struct {
	db *sql.DB
}

// NewIntegrationStore creates an integration store on the given database.
func NewIntegrationStore(db *sql.DB) *IntegrationStore {
	return &IntegrationStore{db: db}
}

// List returns one page of integrations ordered by id. Integrations
// without a configured database come back with a nil Database; the sync
// job treats that as a malformed task.
func (s *IntegrationStore) List(ctx context.Context, offset, limit int) ([]domain.Integration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, frequency_number, frequency_unit, last_sync,
		       db_type, db_account, db_user, db_password, db_database, db_schema, db_warehouse, db_query
		FROM integrations
		ORDER BY id
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("querying integrations: %w", err)
	}
	defer rows.Close()

	var integrations []domain.Integration
	for rows.Next() {
		in, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, in)
	}
	return integrations, rows.Err()
}

// Find returns one integration by id, or nil when absent.
func (s *IntegrationStore) Find(ctx context.Context, id string) (*domain.Integration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, frequency_number, frequency_unit, last_sync,
		       db_type, db_account, db_user, db_password, db_database, db_schema, db_warehouse, db_query
		FROM integrations
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying integration %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	in, err := scanIntegration(rows)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// SaveLastSync advances the integration's watermark. GREATEST keeps the
// value monotonic even if a stale task finishes late.
func (s *IntegrationStore) SaveLastSync(ctx context.Context, id string, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE integrations
		SET last_sync = GREATEST(last_sync, $2)
		WHERE id = $1
	`, id, t.UTC())
	if err != nil {
		return fmt.Errorf("saving last_sync for %s: %w", id, err)
	}
	return nil
}

func scanIntegration(rows *sql.Rows) (domain.Integration, error) {
	var in domain.Integration
	var lastSync sql.NullTime
	var dbType, dbAccount, dbUser, dbPassword, dbDatabase, dbSchema, dbWarehouse, dbQuery sql.NullString

	err := rows.Scan(&in.ID, &in.AccountID, &in.FrequencyNumber, &in.FrequencyUnit, &lastSync,
		&dbType, &dbAccount, &dbUser, &dbPassword, &dbDatabase, &dbSchema, &dbWarehouse, &dbQuery)
	if err != nil {
		return in, fmt.Errorf("scanning integration row: %w", err)
	}

	if lastSync.Valid {
		in.LastSync = lastSync.Time.UTC()
	}
	if dbType.Valid && dbType.String != "" {
		in.Database = &domain.DatabaseConfig{
			Type:      domain.DBType(dbType.String),
			Account:   dbAccount.String,
			User:      dbUser.String,
			Password:  dbPassword.String,
			Database:  dbDatabase.String,
			Schema:    dbSchema.String,
			Warehouse: dbWarehouse.String,
			Query:     dbQuery.String,
		}
	}
	return in, nil
}
