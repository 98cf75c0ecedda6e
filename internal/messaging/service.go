// Package messaging routes inbound SMS: opt-out keyword handling first,
// then lead capture and the owner relay.
package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"textback_backend/internal/billing"
	"textback_backend/internal/business"
	"textback_backend/internal/compliance"
	domainevents "textback_backend/internal/events"
	"textback_backend/internal/intent"
	"textback_backend/internal/leads"
	"textback_backend/internal/ledger"
	"textback_backend/internal/sms"
	"textback_backend/platform/logger"
	"textback_backend/platform/phone"
)

const (
	stopConfirmation  = "You have been unsubscribed from {{business_name}} and will receive no further messages. Reply START to resubscribe."
	startConfirmation = "You are resubscribed to messages from {{business_name}}. Reply STOP to unsubscribe."
)

// errUnknownNumber marks a text to a number no business owns. The provider
// still gets a success-shaped ack, but the ledger row records the failure.
var errUnknownNumber = errors.New("no business owns the receiving number")

// BusinessResolver is the business store surface the SMS webhook needs.
type BusinessResolver interface {
	GetByMessagingNumber(ctx context.Context, number string) (business.Business, error)
}

// OptOutStore mutates and reads the opt-out list.
type OptOutStore interface {
	Upsert(ctx context.Context, businessID uuid.UUID, phoneNumber string) error
	Delete(ctx context.Context, businessID uuid.UUID, phoneNumber string) error
}

// LeadStore is the lead store surface the SMS webhook needs.
type LeadStore interface {
	UpsertByCaller(ctx context.Context, businessID uuid.UUID, callerPhone, callerName, source string) (leads.Lead, bool, error)
	SetIntent(ctx context.Context, id uuid.UUID, intentLabel, summary string) error
	InsertMessage(ctx context.Context, leadID uuid.UUID, direction, body string, isAIGenerated bool) error
}

// ComplianceGate reports whether a sender may be texted.
type ComplianceGate interface {
	IsOptedOut(ctx context.Context, businessID uuid.UUID, phoneNumber string) compliance.Decision
}

// BillingGate reports whether the business's subscription permits the relay.
type BillingGate interface {
	IsSendAllowed(ctx context.Context, businessID uuid.UUID) billing.Decision
}

// Service routes one inbound SMS to the right outcome.
type Service struct {
	ledger     *ledger.Service
	businesses BusinessResolver
	optOuts    OptOutStore
	leads      LeadStore
	comp       ComplianceGate
	bill       BillingGate
	sender     sms.Sender
	classifier intent.Classifier
	bus        domainevents.Bus
	log        *logger.Logger
}

func NewService(
	ledgerSvc *ledger.Service,
	businesses BusinessResolver,
	optOuts OptOutStore,
	leadStore LeadStore,
	comp ComplianceGate,
	bill BillingGate,
	sender sms.Sender,
	classifier intent.Classifier,
	bus domainevents.Bus,
	log *logger.Logger,
) *Service {
	return &Service{
		ledger:     ledgerSvc,
		businesses: businesses,
		optOuts:    optOuts,
		leads:      leadStore,
		comp:       comp,
		bill:       bill,
		sender:     sender,
		classifier: classifier,
		bus:        bus,
		log:        log,
	}
}

// InboundSMS carries the provider's inbound message callback fields.
type InboundSMS struct {
	MessageID string `validate:"required"`
	From      string `validate:"required,e164strict"`
	To        string `validate:"required,e164strict"`
	Body      string
}

// HandleInbound processes one inbound SMS callback.
func (s *Service) HandleInbound(ctx context.Context, in InboundSMS) (ledger.Result, error) {
	sender := phone.NormalizeE164(in.From)
	receiver := phone.NormalizeE164(in.To)

	return s.ledger.WithClaim(ctx, in.MessageID, ledger.EventTypeMessage, func(ctx context.Context) error {
		return s.route(ctx, sender, receiver, in.Body)
	})
}

func (s *Service) route(ctx context.Context, sender, receiver, body string) error {
	b, err := s.businesses.GetByMessagingNumber(ctx, receiver)
	if err != nil {
		if errors.Is(err, business.ErrNotFound) {
			s.log.Warn("inbound sms for unknown number", "to", receiver)
			return errUnknownNumber
		}
		return fmt.Errorf("resolve business: %w", err)
	}

	switch {
	case IsStopKeyword(body):
		return s.handleStop(ctx, b, sender)
	case IsStartKeyword(body):
		return s.handleStart(ctx, b, sender)
	}

	// Opted-out senders get a silent ack: no reply, no relay, and the
	// lookup failing counts as opted out.
	if !s.comp.IsOptedOut(ctx, b.ID, sender).Allowed() {
		return nil
	}

	lead, created, err := s.leads.UpsertByCaller(ctx, b.ID, sender, "", leads.SourceSMS)
	if err != nil {
		return fmt.Errorf("upsert lead: %w", err)
	}
	if err := s.leads.InsertMessage(ctx, lead.ID, leads.DirectionInbound, body, false); err != nil {
		return fmt.Errorf("insert inbound message: %w", err)
	}
	if created {
		s.bus.Publish(ctx, domainevents.LeadCreated{
			BaseEvent:       domainevents.NewBaseEvent(),
			LeadID:          lead.ID,
			BusinessID:      b.ID,
			CallerPhone:     sender,
			Source:          leads.SourceSMS,
			BusinessName:    b.Name,
			MessagingNumber: b.MessagingNumber,
			OwnerPhone:      b.OwnerPhone,
			OwnerEmail:      b.OwnerEmail,
		})
	}

	var class intent.Classification
	if s.classifier != nil {
		class, err = s.classifier.Classify(ctx, b.Name, intent.ChannelSMS, body)
		if err != nil {
			s.log.Error("classify inbound sms", "business_id", b.ID.String(), "error", err)
			class = intent.Classification{}
		} else if class.Intent != "" {
			if err := s.leads.SetIntent(ctx, lead.ID, class.Intent, class.Summary); err != nil {
				s.log.DatabaseError("set lead intent", err)
			}
		}
	}

	// The owner relay is gated by billing only; the sender just texted us,
	// so caller-side compliance was already settled above.
	if !s.bill.IsSendAllowed(ctx, b.ID).Allowed {
		return nil
	}
	s.bus.Publish(ctx, domainevents.OwnerRelayDue{
		BaseEvent:       domainevents.NewBaseEvent(),
		LeadID:          lead.ID,
		BusinessID:      b.ID,
		CallerPhone:     sender,
		OwnerPhone:      b.OwnerPhone,
		OwnerEmail:      b.OwnerEmail,
		BusinessName:    b.Name,
		MessagingNumber: b.MessagingNumber,
		Body:            body,
		Intent:          class.Intent,
		Summary:         class.Summary,
	})
	return nil
}

// handleStop records the opt-out and sends the carrier-mandated
// confirmation. The confirmation bypasses the compliance gate: it is the
// one message an opted-out number must still receive.
func (s *Service) handleStop(ctx context.Context, b business.Business, sender string) error {
	if err := s.optOuts.Upsert(ctx, b.ID, sender); err != nil {
		return fmt.Errorf("record opt-out: %w", err)
	}
	s.log.Info("opt-out recorded", "business_id", b.ID.String(), "phone", sender)

	body := business.RenderTemplate(stopConfirmation, b.Name)
	if err := s.sender.Send(ctx, b.MessagingNumber, sender, body); err != nil {
		return fmt.Errorf("send stop confirmation: %w", err)
	}
	return nil
}

func (s *Service) handleStart(ctx context.Context, b business.Business, sender string) error {
	if err := s.optOuts.Delete(ctx, b.ID, sender); err != nil {
		return fmt.Errorf("clear opt-out: %w", err)
	}
	s.log.Info("opt-in restored", "business_id", b.ID.String(), "phone", sender)

	body := business.RenderTemplate(startConfirmation, b.Name)
	if err := s.sender.Send(ctx, b.MessagingNumber, sender, body); err != nil {
		return fmt.Errorf("send start confirmation: %w", err)
	}
	return nil
}
