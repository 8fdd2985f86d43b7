package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/audience-sync/internal/domain"
)

// EventSink is the analytical store for message status events. It is
// append-only with last-write-wins dedup on (audience_id, customer_id,
// message_id, event_type), which makes repeated ingestion of the same event
// a no-op and lets overlapping job runs coexist without locking.
type EventSink struct {
	db *sql.DB
}

// NewEventSink creates an event sink on the given database.
func NewEventSink(db *sql.DB) *EventSink {
	return &EventSink{db: db}
}

// MaxTimestamp returns the newest event timestamp in the sink, or nil when
// the sink is empty. This is the ingestion watermark.
func (s *EventSink) MaxTimestamp(ctx context.Context) (*time.Time, error) {
	var max sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT MAX(created_at) FROM message_status_events`).Scan(&max)
	if err != nil {
		return nil, fmt.Errorf("querying max event timestamp: %w", err)
	}
	return nullTime(max), nil
}

// InsertBatch writes events in one multi-row statement. Conflicts on the
// dedup key update the row in place (last write wins).
func (s *EventSink) InsertBatch(ctx context.Context, events []domain.MessageStatusEvent) error {
	if len(events) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(events))
	args := make([]any, 0, len(events)*6)
	for i, e := range events {
		base := i * 6
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6))
		args = append(args, e.AudienceID, e.CustomerID, e.MessageID, e.EventType, e.Provider, e.CreatedAt.UTC())
	}

	query := fmt.Sprintf(`
		INSERT INTO message_status_events (audience_id, customer_id, message_id, event_type, provider, created_at)
		VALUES %s
		ON CONFLICT (audience_id, customer_id, message_id, event_type) DO UPDATE
		SET provider = EXCLUDED.provider, created_at = EXCLUDED.created_at
	`, strings.Join(placeholders, ", "))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting event batch of %d: %w", len(events), err)
	}
	return nil
}

// CountByKey returns how many logical rows exist for one dedup key. The
// unique constraint keeps this at zero or one; it exists for verification.
func (s *EventSink) CountByKey(ctx context.Context, audienceID, customerID, messageID, eventType string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM message_status_events
		WHERE audience_id = $1 AND customer_id = $2 AND message_id = $3 AND event_type = $4
	`, audienceID, customerID, messageID, eventType).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting events by key: %w", err)
	}
	return count, nil
}
