package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/audience-sync/internal/domain"
)

// CustomerStore reads and writes customer records. Field merges run inside
// a transaction holding a row lock, so two sync sources racing on the same
// record cannot lose updates.
type CustomerStore struct {
	db *sql.DB
}

// NewCustomerStore creates a customer store on the given database.
func NewCustomerStore(db *sql.DB) *CustomerStore {
	return &CustomerStore{db: db}
}

// Count returns the total number of customer records.
func (s *CustomerStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customer_records`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting customer records: %w", err)
	}
	return count, nil
}

// FindBatch returns one page of records ordered by id, for batched scans.
func (s *CustomerStore) FindBatch(ctx context.Context, offset, limit int) ([]domain.CustomerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, COALESCE(external_id, ''), version, fields, created_at, updated_at
		FROM customer_records
		ORDER BY id
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("querying customer batch: %w", err)
	}
	defer rows.Close()

	var records []domain.CustomerRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FindByExternalID looks up the record correlated to a warehouse row.
// Returns nil when no record matches.
func (s *CustomerStore) FindByExternalID(ctx context.Context, accountID, externalID string) (*domain.CustomerRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, COALESCE(external_id, ''), version, fields, created_at, updated_at
		FROM customer_records
		WHERE account_id = $1 AND external_id = $2
	`, accountID, externalID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Insert writes a new customer record. A missing ID is generated.
func (s *CustomerStore) Insert(ctx context.Context, rec *domain.CustomerRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("marshaling fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO customer_records (id, account_id, external_id, version, fields, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), 1, $4, NOW(), NOW())
	`, rec.ID, rec.AccountID, rec.ExternalID, fields)
	if err != nil {
		return fmt.Errorf("inserting customer record: %w", err)
	}
	return nil
}

// MergeFields merges src into the record identified by (accountID,
// externalID), creating the record when none exists. The read-merge-save
// runs under SELECT ... FOR UPDATE so concurrent merges on the same record
// serialize instead of clobbering each other. Returns true when a new
// record was created.
func (s *CustomerStore) MergeFields(ctx context.Context, accountID, externalID string, src domain.FieldMap) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning merge tx: %w", err)
	}
	defer tx.Rollback()

	var id string
	var rawFields []byte
	err = tx.QueryRowContext(ctx, `
		SELECT id, fields FROM customer_records
		WHERE account_id = $1 AND external_id = $2
		FOR UPDATE
	`, accountID, externalID).Scan(&id, &rawFields)

	created := false
	switch {
	case err == sql.ErrNoRows:
		created = true
		fields, merr := json.Marshal(src)
		if merr != nil {
			return false, fmt.Errorf("marshaling fields: %w", merr)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO customer_records (id, account_id, external_id, version, fields, created_at, updated_at)
			VALUES ($1, $2, $3, 1, $4, NOW(), NOW())
		`, uuid.NewString(), accountID, externalID, fields)
		if err != nil {
			return false, fmt.Errorf("creating merged record: %w", err)
		}
	case err != nil:
		return false, fmt.Errorf("locking record for merge: %w", err)
	default:
		existing := domain.FieldMap{}
		if len(rawFields) > 0 {
			if uerr := json.Unmarshal(rawFields, &existing); uerr != nil {
				return false, fmt.Errorf("unmarshaling existing fields: %w", uerr)
			}
		}
		existing.Merge(src)
		fields, merr := json.Marshal(existing)
		if merr != nil {
			return false, fmt.Errorf("marshaling merged fields: %w", merr)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE customer_records
			SET fields = $2, version = version + 1, updated_at = NOW()
			WHERE id = $1
		`, id, fields)
		if err != nil {
			return false, fmt.Errorf("updating merged record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing merge: %w", err)
	}
	return created, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.CustomerRecord, error) {
	var rec domain.CustomerRecord
	var rawFields []byte
	var createdAt, updatedAt time.Time

	err := row.Scan(&rec.ID, &rec.AccountID, &rec.ExternalID, &rec.Version, &rawFields, &createdAt, &updatedAt)
	if err != nil {
		return rec, err
	}

	rec.Fields = domain.FieldMap{}
	if len(rawFields) > 0 {
		if err := json.Unmarshal(rawFields, &rec.Fields); err != nil {
			return rec, fmt.Errorf("unmarshaling record fields: %w", err)
		}
	}
	rec.CreatedAt = createdAt.UTC()
	rec.UpdatedAt = updatedAt.UTC()
	return rec, nil
}
