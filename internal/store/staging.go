package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/audience-sync/internal/domain"
)

// StagingStore holds raw push-provider events parked by the inbound webhook
// receiver until the daily drain moves them into the analytical sink.
type StagingStore struct {
	db *sql.DB
}

// NewStagingStore creates a staging store on the given database.
func NewStagingStore(db *sql.DB) *StagingStore {
	return &StagingStore{db: db}
}

// TakeBatch returns up to limit staged events in arrival order. Rows stay
// in the table until Delete; a crash between sink insert and delete means
// at most one redelivery, absorbed by the sink's dedup key.
func (s *StagingStore) TakeBatch(ctx context.Context, limit int) ([]domain.StagingEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, audience_id, customer_id, message_id, event_type, created_at
		FROM staging_events
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying staging batch: %w", err)
	}
	defer rows.Close()

	var events []domain.StagingEvent
	for rows.Next() {
		var ev domain.StagingEvent
		var createdAt time.Time
		if err := rows.Scan(&ev.ID, &ev.AudienceID, &ev.CustomerID, &ev.MessageID, &ev.EventType, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning staging row: %w", err)
		}
		ev.CreatedAt = createdAt.UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Delete removes one drained staging row.
func (s *StagingStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM staging_events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting staging row %d: %w", id, err)
	}
	return nil
}

// Insert parks one raw event; called by the webhook receiver.
func (s *StagingStore) Insert(ctx context.Context, ev domain.StagingEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staging_events (audience_id, customer_id, message_id, event_type, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ev.AudienceID, ev.CustomerID, ev.MessageID, ev.EventType, ev.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting staging event: %w", err)
	}
	return nil
}
