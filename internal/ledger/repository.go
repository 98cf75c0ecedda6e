// Package ledger provides the idempotency ledger: a durable record of every
// externally-delivered event and its processing state. The uniqueness
// constraint on event_id is the only cross-invocation synchronization
// primitive in the system; a row's existence is the claim.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event types recorded in the ledger.
const (
	EventTypeCall          = "call"
	EventTypeMessage       = "message"
	EventTypeTranscription = "transcription"
	EventTypePayment       = "payment"
	EventTypePoll          = "poll"
)

// Terminal processing states. Rows are created as "processing" and move to
// exactly one terminal state.
const (
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

// ClaimOutcome is the result of attempting to claim an event.
type ClaimOutcome int

const (
	// Claimed means this invocation owns the event and must process it.
	Claimed ClaimOutcome = iota
	// Duplicate means another invocation already claimed this event id.
	Duplicate
)

const pgUniqueViolation = "23505"

// Repository provides data access for webhook event rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new ledger repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Claim atomically inserts the event row in the processing state. A second
// insert for the same event_id hits the uniqueness constraint; both the
// ON CONFLICT empty result and a raced unique-violation error are reported
// as Duplicate. Any other storage error aborts processing so the provider
// retries the delivery.
func (r *Repository) Claim(ctx context.Context, eventID, eventType string) (ClaimOutcome, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO webhook_events (event_id, event_type, status)
		VALUES ($1, $2, 'processing')
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id
	`, eventID, eventType).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Duplicate, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return Duplicate, nil
	}
	if err != nil {
		return Duplicate, err
	}
	return Claimed, nil
}

// Commit transitions the row to a terminal state. The status guard keeps a
// slow retry from clobbering a terminal state written by a concurrent one.
func (r *Repository) Commit(ctx context.Context, eventID, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE webhook_events
		SET status = $2, processed_at = now()
		WHERE event_id = $1 AND status = 'processing'
	`, eventID, status)
	return err
}

// AttachBusiness enriches the ledger row with the resolved business. This is
// best-effort audit data, not required for correctness.
func (r *Repository) AttachBusiness(ctx context.Context, eventID string, businessID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE webhook_events SET business_id = $2 WHERE event_id = $1
	`, eventID, businessID)
	return err
}

// SetEventTimestamp records the provider's event-creation timestamp, which
// for payment events is the authoritative ordering timestamp.
func (r *Repository) SetEventTimestamp(ctx context.Context, eventID string, createdAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE webhook_events SET event_created_at = $2 WHERE event_id = $1
	`, eventID, createdAt)
	return err
}

// HasNewerProcessed reports whether a payment event for the same business
// with a later provider timestamp has already been processed. Used by the
// ordering guard to discard stale redeliveries.
func (r *Repository) HasNewerProcessed(ctx context.Context, businessID uuid.UUID, after time.Time, excludeEventID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM webhook_events
			WHERE business_id = $1
			  AND event_type = 'payment'
			  AND status = 'processed'
			  AND event_created_at > $2
			  AND event_id <> $3
		)
	`, businessID, after, excludeEventID).Scan(&exists)
	return exists, err
}
