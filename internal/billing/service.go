package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"textback_backend/internal/business"
	"textback_backend/platform/logger"

	"github.com/google/uuid"
)

// Billing-provider event categories this service dispatches on.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventPaymentFailed       = "invoice.payment_failed"
)

// ProviderEvent is the decoded billing-provider webhook envelope.
type ProviderEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object ProviderObject `json:"object"`
	} `json:"data"`
}

// ProviderObject carries the fields this service reads from the event payload.
type ProviderObject struct {
	CustomerID        string `json:"customer"`
	SubscriptionID    string `json:"subscription"`
	Plan              string `json:"plan"`
	Status            string `json:"status"`
	ClientReferenceID string `json:"client_reference_id"`
}

// CreatedAt returns the provider's event-creation timestamp, the
// authoritative ordering timestamp for payment events.
func (e ProviderEvent) CreatedAt() time.Time {
	return time.Unix(e.Created, 0).UTC()
}

// ParseProviderEvent decodes and minimally validates a webhook payload.
func ParseProviderEvent(payload []byte) (ProviderEvent, error) {
	var evt ProviderEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return ProviderEvent{}, fmt.Errorf("decode billing event: %w", err)
	}
	if evt.ID == "" || evt.Type == "" {
		return ProviderEvent{}, fmt.Errorf("billing event missing id or type")
	}
	return evt, nil
}

// BusinessStore is the business mutation surface the service needs.
// Satisfied by *business.Repository.
type BusinessStore interface {
	GetBySubscriptionCustomer(ctx context.Context, customerID string) (business.Business, error)
	InitializeSubscription(ctx context.Context, id uuid.UUID, customerID, subscriptionID, plan, status string) error
	UpdateSubscription(ctx context.Context, id uuid.UUID, plan, status string) error
	SetSubscriptionStatus(ctx context.Context, id uuid.UUID, status string) error
}

// OrderingLedger is the ledger surface the ordering guard needs.
// Satisfied by *ledger.Repository.
type OrderingLedger interface {
	SetEventTimestamp(ctx context.Context, eventID string, createdAt time.Time) error
	AttachBusiness(ctx context.Context, eventID string, businessID uuid.UUID) error
	HasNewerProcessed(ctx context.Context, businessID uuid.UUID, after time.Time, excludeEventID string) (bool, error)
}

// Service applies billing-provider events to the stored subscription state.
type Service struct {
	businesses BusinessStore
	ledger     OrderingLedger
	log        *logger.Logger
}

// NewService creates a new billing webhook service.
func NewService(businesses BusinessStore, ledger OrderingLedger, log *logger.Logger) *Service {
	return &Service{businesses: businesses, ledger: ledger, log: log}
}

// HandleEvent dispatches a claimed billing event by category. It runs inside
// the ledger claim wrapper, so returning an error marks the event failed.
func (s *Service) HandleEvent(ctx context.Context, evt ProviderEvent) error {
	// Record the provider timestamp first; later events consult it through
	// HasNewerProcessed even if this handler fails midway.
	if err := s.ledger.SetEventTimestamp(ctx, evt.ID, evt.CreatedAt()); err != nil {
		s.log.DatabaseError("set billing event timestamp", err)
	}

	switch evt.Type {
	case EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, evt)
	case EventSubscriptionDeleted:
		return s.applyStatus(ctx, evt, business.SubscriptionCanceled)
	case EventPaymentFailed:
		return s.applyStatus(ctx, evt, business.SubscriptionPastDue)
	case EventSubscriptionUpdated:
		return s.handleSubscriptionUpdated(ctx, evt)
	default:
		s.log.Info("ignoring unhandled billing event type", "type", evt.Type, "event_id", evt.ID)
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, evt ProviderEvent) error {
	businessID, err := uuid.Parse(evt.Data.Object.ClientReferenceID)
	if err != nil {
		return fmt.Errorf("checkout event %s has no usable client reference: %w", evt.ID, err)
	}

	status := evt.Data.Object.Status
	if status == "" {
		status = business.SubscriptionActive
	}

	if err := s.businesses.InitializeSubscription(ctx, businessID,
		evt.Data.Object.CustomerID, evt.Data.Object.SubscriptionID,
		evt.Data.Object.Plan, status); err != nil {
		return fmt.Errorf("initialize subscription: %w", err)
	}

	s.attach(ctx, evt.ID, businessID)
	s.log.Info("subscription initialized", "business_id", businessID, "plan", evt.Data.Object.Plan)
	return nil
}

func (s *Service) applyStatus(ctx context.Context, evt ProviderEvent, status string) error {
	biz, err := s.businesses.GetBySubscriptionCustomer(ctx, evt.Data.Object.CustomerID)
	if err != nil {
		return fmt.Errorf("resolve business for customer %s: %w", evt.Data.Object.CustomerID, err)
	}

	if err := s.businesses.SetSubscriptionStatus(ctx, biz.ID, status); err != nil {
		return fmt.Errorf("set subscription status: %w", err)
	}

	s.attach(ctx, evt.ID, biz.ID)
	s.log.Info("subscription status applied", "business_id", biz.ID, "status", status)
	return nil
}

// handleSubscriptionUpdated applies an update only if no logically newer
// payment event was already processed for the same business. Webhook
// providers redeliver out of original order; applying in arrival order
// would let an old replay overwrite newer subscription state.
func (s *Service) handleSubscriptionUpdated(ctx context.Context, evt ProviderEvent) error {
	biz, err := s.businesses.GetBySubscriptionCustomer(ctx, evt.Data.Object.CustomerID)
	if err != nil {
		return fmt.Errorf("resolve business for customer %s: %w", evt.Data.Object.CustomerID, err)
	}
	s.attach(ctx, evt.ID, biz.ID)

	newer, err := s.ledger.HasNewerProcessed(ctx, biz.ID, evt.CreatedAt(), evt.ID)
	if err != nil {
		return fmt.Errorf("ordering guard lookup: %w", err)
	}
	if newer {
		s.log.Info("discarding stale subscription update",
			"business_id", biz.ID, "event_id", evt.ID, "event_created", evt.CreatedAt())
		return nil
	}

	if err := s.businesses.UpdateSubscription(ctx, biz.ID, evt.Data.Object.Plan, evt.Data.Object.Status); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	s.log.Info("subscription updated", "business_id", biz.ID,
		"plan", evt.Data.Object.Plan, "status", evt.Data.Object.Status)
	return nil
}

func (s *Service) attach(ctx context.Context, eventID string, businessID uuid.UUID) {
	if err := s.ledger.AttachBusiness(ctx, eventID, businessID); err != nil {
		s.log.DatabaseError("attach business to ledger row", err)
	}
}
