package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WebhookEventRepository persists processed billing events. The unique
// event_id column is the idempotency guard for provider redeliveries.
type WebhookEventRepository interface {
	// IsProcessed reports whether an event id has already been recorded.
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	// Record durably marks the event processed. Inserting an id twice is a
	// no-op so a race between two deliveries of the same event cannot fail
	// the second one after the first already won.
	Record(ctx context.Context, eventID, eventType string, payload []byte) error
}

type webhookEventRepo struct {
	pool *pgxpool.Pool
}

// NewWebhookEventRepo creates a new WebhookEventRepository.
func NewWebhookEventRepo(pool *pgxpool.Pool) WebhookEventRepository {
	return &webhookEventRepo{pool: pool}
}

func (r *webhookEventRepo) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM webhook_events WHERE event_id = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, eventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check webhook event %s: %w", eventID, err)
	}
	return exists, nil
}

func (r *webhookEventRepo) Record(ctx context.Context, eventID, eventType string, payload []byte) error {
	const q = `
        INSERT INTO webhook_events (event_id, event_type, processed_at, payload)
        VALUES ($1, $2, NOW(), $3)
        ON CONFLICT (event_id) DO NOTHING
    `
	if _, err := r.pool.Exec(ctx, q, eventID, eventType, payload); err != nil {
		return fmt.Errorf("record webhook event %s: %w", eventID, err)
	}
	return nil
}
