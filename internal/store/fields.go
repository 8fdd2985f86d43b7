package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/audience-sync/internal/domain"
)

// FieldStore persists discovered field metadata, one row per field name.
type FieldStore struct {
	db *sql.DB
}

// NewFieldStore creates a field metadata store on the given database.
func NewFieldStore(db *sql.DB) *FieldStore {
	return &FieldStore{db: db}
}

// UpsertField writes the metadata for one field, keyed on name. Re-running
// discovery overwrites type and is_array idempotently.
func (s *FieldStore) UpsertField(ctx context.Context, md domain.FieldMetadata) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO field_metadata (name, type, is_array, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (name) DO UPDATE
		SET type = EXCLUDED.type, is_array = EXCLUDED.is_array, updated_at = NOW()
	`, md.Name, md.Type, md.IsArray)
	if err != nil {
		return fmt.Errorf("upserting field %s: %w", md.Name, err)
	}
	return nil
}

// ListFields returns all discovered field metadata ordered by name.
func (s *FieldStore) ListFields(ctx context.Context) ([]domain.FieldMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, type, is_array FROM field_metadata ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing fields: %w", err)
	}
	defer rows.Close()

	var fields []domain.FieldMetadata
	for rows.Next() {
		var md domain.FieldMetadata
		if err := rows.Scan(&md.Name, &md.Type, &md.IsArray); err != nil {
			return nil, fmt.Errorf("scanning field row: %w", err)
		}
		fields = append(fields, md)
	}
	return fields, rows.Err()
}
