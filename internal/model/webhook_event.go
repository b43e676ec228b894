package model

import "time"

// WebhookEvent records a billing provider event that has been fully processed.
// The unique event_id is the idempotency guard: redeliveries of an id that
// already has a row short-circuit without touching the account. Rows are
// insert-only and kept for audit.
type WebhookEvent struct {
	EventID     string    `db:"event_id" json:"event_id"`
	EventType   string    `db:"event_type" json:"event_type"`
	ProcessedAt time.Time `db:"processed_at" json:"processed_at"`
	Payload     []byte    `db:"payload" json:"payload"`
}
