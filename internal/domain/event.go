package domain

import "time"

// MessageStatusEvent is one delivery-lifecycle event pulled from a provider
// or drained from webhook staging. Events are append-only; the sink
// collapses repeated writes on the dedup key with last-write-wins.
type MessageStatusEvent struct {
	AudienceID string    `json:"audience_id" db:"audience_id"`
	CustomerID string    `json:"customer_id" db:"customer_id"`
	MessageID  string    `json:"message_id" db:"message_id"`
	EventType  string    `json:"event_type" db:"event_type"`
	Provider   string    `json:"provider" db:"provider"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DedupKey returns the composite identity the analytical sink dedups on.
func (e MessageStatusEvent) DedupKey() [4]string {
	return [4]string{e.AudienceID, e.CustomerID, e.MessageID, e.EventType}
}

// StagingEvent is a raw provider event parked in the relational staging
// table by the inbound webhook receiver, awaiting the daily drain.
type StagingEvent struct {
	ID         int64     `json:"id" db:"id"`
	AudienceID string    `json:"audience_id" db:"audience_id"`
	CustomerID string    `json:"customer_id" db:"customer_id"`
	MessageID  string    `json:"message_id" db:"message_id"`
	EventType  string    `json:"event_type" db:"event_type"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
