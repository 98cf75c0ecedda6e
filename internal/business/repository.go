// Package business provides the business entity: identity plus the
// configuration the orchestrators read (forwarding number, templates,
// operating hours, subscription state, ticketing credentials).
package business

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no business matches the lookup.
var ErrNotFound = errors.New("business not found")

// Subscription statuses stored on the business row.
const (
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
	SubscriptionUnpaid   = "unpaid"
)

// Business is a configured tenant of the missed-call service.
type Business struct {
	ID                     uuid.UUID
	Name                   string
	ForwardingNumber       string
	MessagingNumber        string
	OwnerPhone             string
	OwnerEmail             string
	OpenHoursTemplate      string
	ClosedHoursTemplate    string
	FollowupTemplate       string
	WeeklySchedule         WeeklySchedule
	Timezone               string
	SubscriptionStatus     string
	SubscriptionCustomerID string
	SubscriptionID         string
	SubscriptionPlan       string
	TicketingAPIToken      string
	VerificationToken      string
	VerifiedAt             *time.Time
	LastPolledAt           *time.Time
	CreatedAt              time.Time
}

const businessColumns = `
	id, name, forwarding_number, messaging_number, owner_phone,
	COALESCE(owner_email, ''), open_hours_template, closed_hours_template,
	followup_template, weekly_schedule, timezone, subscription_status,
	COALESCE(subscription_customer_id, ''), COALESCE(subscription_id, ''),
	COALESCE(subscription_plan, ''), COALESCE(ticketing_api_token, ''),
	COALESCE(verification_token, ''), verified_at, last_polled_at, created_at`

// Repository provides data access for businesses.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new business repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanBusiness(row pgx.Row) (Business, error) {
	var b Business
	var scheduleRaw []byte
	err := row.Scan(
		&b.ID, &b.Name, &b.ForwardingNumber, &b.MessagingNumber, &b.OwnerPhone,
		&b.OwnerEmail, &b.OpenHoursTemplate, &b.ClosedHoursTemplate,
		&b.FollowupTemplate, &scheduleRaw, &b.Timezone, &b.SubscriptionStatus,
		&b.SubscriptionCustomerID, &b.SubscriptionID,
		&b.SubscriptionPlan, &b.TicketingAPIToken,
		&b.VerificationToken, &b.VerifiedAt, &b.LastPolledAt, &b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Business{}, ErrNotFound
	}
	if err != nil {
		return Business{}, err
	}
	if len(scheduleRaw) > 0 {
		// A corrupt schedule must not make the business unreachable; the
		// hours check fails open on an empty schedule.
		_ = json.Unmarshal(scheduleRaw, &b.WeeklySchedule)
	}
	return b, nil
}

// GetByID retrieves a business by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Business, error) {
	return scanBusiness(r.pool.QueryRow(ctx,
		`SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id))
}

// GetByForwardingNumber resolves the business that owns a forwarding number.
func (r *Repository) GetByForwardingNumber(ctx context.Context, number string) (Business, error) {
	return scanBusiness(r.pool.QueryRow(ctx,
		`SELECT `+businessColumns+` FROM businesses WHERE forwarding_number = $1`, number))
}

// GetByMessagingNumber resolves the business that owns an SMS-capable number.
func (r *Repository) GetByMessagingNumber(ctx context.Context, number string) (Business, error) {
	return scanBusiness(r.pool.QueryRow(ctx, `
		SELECT `+businessColumns+` FROM businesses WHERE messaging_number = $1
	`, number))
}

// GetBySubscriptionCustomer resolves the business for a billing-provider customer id.
func (r *Repository) GetBySubscriptionCustomer(ctx context.Context, customerID string) (Business, error) {
	return scanBusiness(r.pool.QueryRow(ctx,
		`SELECT `+businessColumns+` FROM businesses WHERE subscription_customer_id = $1`, customerID))
}

// ConfirmVerification clears the one-shot verification token and stamps the
// business verified. Returns true only for the invocation that actually
// cleared the token.
func (r *Repository) ConfirmVerification(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE businesses
		SET verification_token = NULL, verified_at = now(), updated_at = now()
		WHERE id = $1 AND verification_token IS NOT NULL
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SubscriptionStatus returns the stored subscription status for a business.
func (r *Repository) SubscriptionStatus(ctx context.Context, id uuid.UUID) (string, error) {
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT subscription_status FROM businesses WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return status, err
}

// InitializeSubscription sets the subscription fields after checkout completes.
func (r *Repository) InitializeSubscription(ctx context.Context, id uuid.UUID, customerID, subscriptionID, plan, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE businesses
		SET subscription_customer_id = $2, subscription_id = $3,
		    subscription_plan = $4, subscription_status = $5, updated_at = now()
		WHERE id = $1
	`, id, customerID, subscriptionID, plan, status)
	return err
}

// UpdateSubscription applies plan and status from a subscription-updated event.
func (r *Repository) UpdateSubscription(ctx context.Context, id uuid.UUID, plan, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE businesses
		SET subscription_plan = $2, subscription_status = $3, updated_at = now()
		WHERE id = $1
	`, id, plan, status)
	return err
}

// SetSubscriptionStatus sets only the status (terminal/degraded transitions).
func (r *Repository) SetSubscriptionStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE businesses SET subscription_status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	return err
}

// ListWithTicketing returns every business with the polled integration configured.
func (r *Repository) ListWithTicketing(ctx context.Context) ([]Business, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+businessColumns+` FROM businesses
		 WHERE ticketing_api_token IS NOT NULL AND ticketing_api_token <> ''
		 ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateLastPolledAt advances the poll cursor after a successful ingest.
func (r *Repository) UpdateLastPolledAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE businesses SET last_polled_at = $2, updated_at = now() WHERE id = $1
	`, id, at)
	return err
}
