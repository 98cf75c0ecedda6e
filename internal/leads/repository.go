// Package leads provides the lead and message stores. Every mutation is an
// atomic conditioned statement (insert-if-absent or update-matching-current-
// state); callers never read-modify-write.
package leads

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres unique-index conflict
// on an index the statement's ON CONFLICT arbiter does not cover.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Lead sources.
const (
	SourcePhone     = "phone"
	SourceTicketing = "ticketing"
	SourceSMS       = "sms"
)

// Lead statuses. Processing is a transient claim state used by the
// grace-period resolver; failure paths revert to new so a later poll retries.
const (
	StatusNew        = "new"
	StatusProcessing = "processing"
	StatusContacted  = "contacted"
	StatusClosed     = "closed"
	StatusBooked     = "booked"
)

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// ErrLeadNotFound is returned when no lead matches the lookup.
var ErrLeadNotFound = errors.New("lead not found")

// Lead is a potential customer contact captured from a missed call, an
// inbound SMS, or the polled ticketing integration.
type Lead struct {
	ID           uuid.UUID
	BusinessID   uuid.UUID
	CallerPhone  string
	CallerName   string
	Source       string
	ExternalID   string
	Status       string
	SMSHoldUntil *time.Time
	Intent       string
	AISummary    string
	CreatedAt    time.Time
}

// Message is an immutable log row for one SMS.
type Message struct {
	ID            uuid.UUID
	LeadID        uuid.UUID
	Direction     string
	Body          string
	IsAIGenerated bool
	CreatedAt     time.Time
}

const leadColumns = `
	id, business_id, caller_phone, COALESCE(caller_name, ''), source,
	COALESCE(external_id, ''), status, sms_hold_until,
	COALESCE(intent, ''), COALESCE(ai_summary, ''), created_at`

// Repository provides data access for leads and messages.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new leads repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.BusinessID, &l.CallerPhone, &l.CallerName, &l.Source,
		&l.ExternalID, &l.Status, &l.SMSHoldUntil,
		&l.Intent, &l.AISummary, &l.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrLeadNotFound
	}
	return l, err
}

// UpsertByCaller creates a lead for (business, caller) unless an active one
// already exists, in which case the existing lead is returned. The partial
// unique index makes the insert race-safe; the conflict path re-reads.
func (r *Repository) UpsertByCaller(ctx context.Context, businessID uuid.UUID, callerPhone, callerName, source string) (Lead, bool, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (business_id, caller_phone, caller_name, source)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		ON CONFLICT (business_id, caller_phone) WHERE status NOT IN ('closed', 'booked')
		DO NOTHING
		RETURNING `+leadColumns,
		businessID, callerPhone, callerName, source))
	if err == nil {
		return lead, true, nil
	}
	if !errors.Is(err, ErrLeadNotFound) {
		return Lead{}, false, err
	}

	existing, err := r.GetActiveByCaller(ctx, businessID, callerPhone)
	return existing, false, err
}

// GetActiveByCaller returns the active lead for (business, caller).
func (r *Repository) GetActiveByCaller(ctx context.Context, businessID uuid.UUID, callerPhone string) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE business_id = $1 AND caller_phone = $2
		  AND status NOT IN ('closed', 'booked')
	`, businessID, callerPhone))
}

// GetByID returns a lead scoped to a business.
func (r *Repository) GetByID(ctx context.Context, id, businessID uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads WHERE id = $1 AND business_id = $2
	`, id, businessID))
}

// UpsertImported ingests a polled missed-call record with a grace-period
// hold. Dedup on (business, source, external_id) makes re-polling the same
// record a no-op; created reports whether this call inserted the row.
// The ON CONFLICT arbiter names only the external-id index, so a caller who
// already has an active phone or SMS lead trips the active-caller unique
// index instead. That caller is already being handled, so the violation is
// treated as not-created rather than aborting the ingest batch.
func (r *Repository) UpsertImported(ctx context.Context, businessID uuid.UUID, callerPhone, callerName, externalID string, holdUntil time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO leads (business_id, caller_phone, caller_name, source, external_id, sms_hold_until)
		VALUES ($1, $2, NULLIF($3, ''), 'ticketing', $4, $5)
		ON CONFLICT (business_id, source, external_id) WHERE external_id IS NOT NULL
		DO NOTHING
	`, businessID, callerPhone, callerName, externalID, holdUntil)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ClaimExpiredHolds atomically transitions every new lead of the business
// whose hold has expired into the transient processing state and returns
// the claimed rows. The single conditioned update (plus SKIP LOCKED) is
// what keeps two overlapping poll runs from both claiming a lead.
func (r *Repository) ClaimExpiredHolds(ctx context.Context, businessID uuid.UUID, now time.Time) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		WITH due AS (
			SELECT id FROM leads
			WHERE business_id = $1
			  AND status = 'new'
			  AND sms_hold_until IS NOT NULL
			  AND sms_hold_until <= $2
			ORDER BY sms_hold_until
			FOR UPDATE SKIP LOCKED
		)
		UPDATE leads l
		SET status = 'processing', updated_at = now()
		FROM due
		WHERE l.id = due.id AND l.status = 'new'
		RETURNING `+prefixedLeadColumns("l"),
		businessID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claimed []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, l)
	}
	return claimed, rows.Err()
}

// MarkContacted finishes a claimed lead and clears its hold. Conditioned on
// the processing state so a stray call cannot skip the claim.
func (r *Repository) MarkContacted(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = 'contacted', sms_hold_until = NULL, updated_at = now()
		WHERE id = $1 AND status = 'processing'
	`, id)
	return err
}

// RevertToNew releases a claimed lead so a later poll retries it.
func (r *Repository) RevertToNew(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = 'new', updated_at = now()
		WHERE id = $1 AND status = 'processing'
	`, id)
	return err
}

// SetIntent stores the analyzer's classification on the lead.
func (r *Repository) SetIntent(ctx context.Context, id uuid.UUID, intent, summary string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET intent = $2, ai_summary = $3, updated_at = now()
		WHERE id = $1
	`, id, intent, summary)
	return err
}

// InsertMessage appends a message row. Messages are never updated or deleted.
func (r *Repository) InsertMessage(ctx context.Context, leadID uuid.UUID, direction, body string, isAIGenerated bool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (lead_id, direction, body, is_ai_generated)
		VALUES ($1, $2, $3, $4)
	`, leadID, direction, body, isAIGenerated)
	return err
}

func prefixedLeadColumns(alias string) string {
	return alias + `.id, ` + alias + `.business_id, ` + alias + `.caller_phone,
	COALESCE(` + alias + `.caller_name, ''), ` + alias + `.source,
	COALESCE(` + alias + `.external_id, ''), ` + alias + `.status, ` + alias + `.sms_hold_until,
	COALESCE(` + alias + `.intent, ''), COALESCE(` + alias + `.ai_summary, ''), ` + alias + `.created_at`
}
