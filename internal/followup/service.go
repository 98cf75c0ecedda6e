// Package followup runs the grace-period poll: missed calls pulled from the
// ticketing integration become leads with a hold, and leads whose hold has
// expired without a callback get a templated follow-up text.
package followup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"textback_backend/internal/billing"
	"textback_backend/internal/business"
	"textback_backend/internal/compliance"
	"textback_backend/internal/leads"
	"textback_backend/internal/sms"
	"textback_backend/internal/ticketing"
	"textback_backend/platform/logger"
	"textback_backend/platform/phone"
)

// Businesses without a poll history look back this far on their first run.
const initialLookback = 24 * time.Hour

// BusinessStore is the business store surface the poll needs.
type BusinessStore interface {
	ListWithTicketing(ctx context.Context) ([]business.Business, error)
	UpdateLastPolledAt(ctx context.Context, id uuid.UUID, at time.Time) error
}

// LeadStore is the lead store surface the poll needs.
type LeadStore interface {
	UpsertImported(ctx context.Context, businessID uuid.UUID, callerPhone, callerName, externalID string, holdUntil time.Time) (bool, error)
	ClaimExpiredHolds(ctx context.Context, businessID uuid.UUID, now time.Time) ([]leads.Lead, error)
	MarkContacted(ctx context.Context, id uuid.UUID) error
	RevertToNew(ctx context.Context, id uuid.UUID) error
	InsertMessage(ctx context.Context, leadID uuid.UUID, direction, body string, isAIGenerated bool) error
}

// ComplianceGate reports whether a lead may be texted.
type ComplianceGate interface {
	IsOptedOut(ctx context.Context, businessID uuid.UUID, phoneNumber string) compliance.Decision
}

// BillingGate reports whether the business's subscription permits sends.
type BillingGate interface {
	IsSendAllowed(ctx context.Context, businessID uuid.UUID) billing.Decision
}

// Service orchestrates one poll run across all ticketing-integrated
// businesses.
type Service struct {
	businesses  BusinessStore
	leads       LeadStore
	callLog     ticketing.CallLog
	comp        ComplianceGate
	bill        BillingGate
	sender      sms.Sender
	graceWindow time.Duration
	concurrency int
	now         func() time.Time
	log         *logger.Logger
}

func NewService(
	businesses BusinessStore,
	leadStore LeadStore,
	callLog ticketing.CallLog,
	comp ComplianceGate,
	bill BillingGate,
	sender sms.Sender,
	graceWindow time.Duration,
	concurrency int,
	log *logger.Logger,
) *Service {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Service{
		businesses:  businesses,
		leads:       leadStore,
		callLog:     callLog,
		comp:        comp,
		bill:        bill,
		sender:      sender,
		graceWindow: graceWindow,
		concurrency: concurrency,
		now:         time.Now,
		log:         log,
	}
}

// PollAll fans one poll run out across businesses. A failing business is
// logged and skipped; it never aborts the other businesses' runs.
func (s *Service) PollAll(ctx context.Context) error {
	all, err := s.businesses.ListWithTicketing(ctx)
	if err != nil {
		return fmt.Errorf("list businesses: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, b := range all {
		g.Go(func() error {
			if err := s.PollBusiness(ctx, b); err != nil {
				s.log.Error("poll business failed", "business_id", b.ID.String(), "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// PollBusiness runs ingest then resolve for one business. Resolve still
// runs when ingest fails: earlier imports with expired holds should not
// wait on the ticketing API being healthy.
func (s *Service) PollBusiness(ctx context.Context, b business.Business) error {
	ingestErr := s.ingest(ctx, b)
	if ingestErr != nil {
		s.log.Error("ingest failed", "business_id", b.ID.String(), "error", ingestErr)
	}
	if err := s.resolve(ctx, b); err != nil {
		return err
	}
	return ingestErr
}

// ingest pulls missed calls logged since the previous run and stores each
// as a held lead. Re-polling an already-imported record is a no-op via the
// external-id dedup.
func (s *Service) ingest(ctx context.Context, b business.Business) error {
	now := s.now()
	since := now.Add(-initialLookback)
	if b.LastPolledAt != nil {
		since = *b.LastPolledAt
	}

	records, err := s.callLog.MissedCallsSince(ctx, b.TicketingAPIToken, since)
	if err != nil {
		return fmt.Errorf("fetch missed calls: %w", err)
	}

	holdUntil := now.Add(s.graceWindow)
	for _, rec := range records {
		normalized, err := phone.Normalize(rec.CallerPhone)
		if err != nil {
			// Unparseable numbers cannot be texted; the record stays in the
			// ticketing system for the owner to handle manually.
			s.log.Warn("skipping unparseable caller number",
				"business_id", b.ID.String(), "external_id", rec.ID, "error", err)
			continue
		}

		created, err := s.leads.UpsertImported(ctx, b.ID, normalized, rec.CallerName, rec.ID, holdUntil)
		if err != nil {
			return fmt.Errorf("import lead %s: %w", rec.ID, err)
		}
		if created {
			s.log.Info("missed call imported",
				"business_id", b.ID.String(), "external_id", rec.ID)
		}
	}

	if err := s.businesses.UpdateLastPolledAt(ctx, b.ID, now); err != nil {
		return fmt.Errorf("advance poll cursor: %w", err)
	}
	return nil
}

// resolve claims every lead whose hold expired and decides its outcome.
// The claim is a single conditioned update, so a lead reaches exactly one
// resolver even when poll runs overlap.
func (s *Service) resolve(ctx context.Context, b business.Business) error {
	claimed, err := s.leads.ClaimExpiredHolds(ctx, b.ID, s.now())
	if err != nil {
		return fmt.Errorf("claim expired holds: %w", err)
	}

	for _, lead := range claimed {
		s.resolveLead(ctx, b, lead)
	}
	return nil
}

func (s *Service) resolveLead(ctx context.Context, b business.Business, lead leads.Lead) {
	// The callback window starts at lead creation, not at hold expiry:
	// an owner who called back two minutes after the missed call must be
	// detected even though the poll only looks now.
	calledBack, err := s.callLog.HasOutboundCallTo(ctx, b.TicketingAPIToken, lead.CallerPhone, lead.CreatedAt)
	if err != nil {
		s.log.Error("callback lookup failed",
			"business_id", b.ID.String(), "lead_id", lead.ID.String(), "error", err)
		s.revert(ctx, lead)
		return
	}
	if calledBack {
		if err := s.leads.MarkContacted(ctx, lead.ID); err != nil {
			s.log.DatabaseError("mark contacted", err)
		}
		s.log.Info("callback detected, follow-up suppressed",
			"business_id", b.ID.String(), "lead_id", lead.ID.String())
		return
	}

	if !s.bill.IsSendAllowed(ctx, b.ID).Allowed {
		s.revert(ctx, lead)
		return
	}
	if !s.comp.IsOptedOut(ctx, b.ID, lead.CallerPhone).Allowed() {
		s.revert(ctx, lead)
		return
	}

	body := business.RenderTemplate(b.FollowupTemplate, b.Name)
	if err := s.sender.Send(ctx, b.MessagingNumber, lead.CallerPhone, body); err != nil {
		s.log.SendFailure(b.ID.String(), lead.CallerPhone, err)
		s.revert(ctx, lead)
		return
	}

	if err := s.leads.InsertMessage(ctx, lead.ID, leads.DirectionOutbound, body, false); err != nil {
		s.log.DatabaseError("insert follow-up message", err)
	}
	if err := s.leads.MarkContacted(ctx, lead.ID); err != nil {
		s.log.DatabaseError("mark contacted", err)
	}
}

func (s *Service) revert(ctx context.Context, lead leads.Lead) {
	if err := s.leads.RevertToNew(ctx, lead.ID); err != nil {
		s.log.DatabaseError("revert lead", err)
	}
}
