// Package calls handles voice webhooks: the missed-call intake that texts
// the caller back, and the voicemail transcription analyzer.
package calls

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

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

const voicemailGreeting = "Sorry we missed your call. Please leave a message after the tone and we will text you right back."

// errUnknownNumber marks a call to a number no business owns. The provider
// still gets a success-shaped response, but the ledger row records the
// failure so the event is visible as unresolved.
var errUnknownNumber = errors.New("no business owns the receiving number")

// BusinessResolver is the business store surface the voice webhooks need.
type BusinessResolver interface {
	GetByForwardingNumber(ctx context.Context, number string) (business.Business, error)
	GetByID(ctx context.Context, id uuid.UUID) (business.Business, error)
	ConfirmVerification(ctx context.Context, id uuid.UUID) (bool, error)
}

// LeadStore is the lead store surface the voice webhooks need.
type LeadStore interface {
	UpsertByCaller(ctx context.Context, businessID uuid.UUID, callerPhone, callerName, source string) (leads.Lead, bool, error)
	SetIntent(ctx context.Context, id uuid.UUID, intentLabel, summary string) error
	InsertMessage(ctx context.Context, leadID uuid.UUID, direction, body string, isAIGenerated bool) error
}

// ComplianceGate reports whether a caller may be texted.
type ComplianceGate interface {
	IsOptedOut(ctx context.Context, businessID uuid.UUID, phoneNumber string) compliance.Decision
}

// BillingGate reports whether the business's subscription permits sends.
type BillingGate interface {
	IsSendAllowed(ctx context.Context, businessID uuid.UUID) billing.Decision
}

// Service orchestrates the missed-call and transcription webhooks.
type Service struct {
	ledger     *ledger.Service
	businesses BusinessResolver
	leads      LeadStore
	comp       ComplianceGate
	bill       BillingGate
	sender     sms.Sender
	classifier intent.Classifier
	bus        domainevents.Bus
	baseURL    string
	now        func() time.Time
	log        *logger.Logger
}

func NewService(
	ledgerSvc *ledger.Service,
	businesses BusinessResolver,
	leadStore LeadStore,
	comp ComplianceGate,
	bill BillingGate,
	sender sms.Sender,
	classifier intent.Classifier,
	bus domainevents.Bus,
	publicBaseURL string,
	log *logger.Logger,
) *Service {
	return &Service{
		ledger:     ledgerSvc,
		businesses: businesses,
		leads:      leadStore,
		comp:       comp,
		bill:       bill,
		sender:     sender,
		classifier: classifier,
		bus:        bus,
		baseURL:    strings.TrimRight(publicBaseURL, "/"),
		now:        time.Now,
		log:        log,
	}
}

// MissedCallInput carries the provider's call-status callback fields.
type MissedCallInput struct {
	CallID string `validate:"required"`
	From   string `validate:"required"`
	To     string `validate:"required"`
	Status string
}

// TranscriptionInput carries the provider's transcription callback fields
// plus the identifiers we embedded in the callback URL.
type TranscriptionInput struct {
	TranscriptionID string `validate:"required"`
	BusinessID      string `validate:"required"`
	Caller          string `validate:"required"`
	Called          string `validate:"required"`
	Status          string
	Text            string
}

// HandleMissedCall processes one call-status callback and returns the TwiML
// body for the provider. The TwiML is always success-shaped: a processing
// failure is recorded in the ledger, not surfaced to the caller.
func (s *Service) HandleMissedCall(ctx context.Context, in MissedCallInput) (string, error) {
	caller := phone.NormalizeE164(in.From)
	called := phone.NormalizeE164(in.To)

	var twiml string
	result, err := s.ledger.WithClaim(ctx, in.CallID, ledger.EventTypeCall, func(ctx context.Context) error {
		body, err := s.processMissedCall(ctx, caller, called)
		twiml = body
		return err
	})
	if result == ledger.ClaimFailed {
		return "", err
	}
	if result != ledger.Processed || twiml == "" {
		// Duplicate delivery or handler failure: side-effect-free response.
		return emptyTwiML(), nil
	}
	return twiml, nil
}

func (s *Service) processMissedCall(ctx context.Context, caller, called string) (string, error) {
	b, err := s.businesses.GetByForwardingNumber(ctx, called)
	if err != nil {
		if errors.Is(err, business.ErrNotFound) {
			s.log.Warn("missed call for unknown number", "called", called)
			return "", errUnknownNumber
		}
		return "", fmt.Errorf("resolve business: %w", err)
	}

	// The first call that reaches us proves the owner's forwarding setup
	// works. ConfirmVerification is one-shot; a lost race just means the
	// other request confirmed it.
	if b.VerifiedAt == nil && b.VerificationToken != "" {
		confirmed, err := s.businesses.ConfirmVerification(ctx, b.ID)
		if err != nil {
			s.log.Error("confirm verification", "business_id", b.ID.String(), "error", err)
		} else if confirmed {
			s.log.Info("forwarding number verified", "business_id", b.ID.String())
		}
	}

	ackBody := business.PickTemplate(b, s.now())

	billDecision := s.bill.IsSendAllowed(ctx, b.ID)
	compDecision := s.comp.IsOptedOut(ctx, b.ID, caller)

	ackSent := false
	if billDecision.Allowed && compDecision.Allowed() && ackBody != "" {
		if err := s.sender.Send(ctx, b.MessagingNumber, caller, ackBody); err != nil {
			s.log.SendFailure(b.ID.String(), caller, err)
		} else {
			ackSent = true
		}
	}

	// A storage failure here must not hang up on the caller: the recording
	// flow continues and the transcription callback retries the upsert.
	lead, created, err := s.leads.UpsertByCaller(ctx, b.ID, caller, "", leads.SourcePhone)
	if err != nil {
		s.log.DatabaseError("upsert lead", err)
	} else {
		if ackSent {
			if err := s.leads.InsertMessage(ctx, lead.ID, leads.DirectionOutbound, ackBody, false); err != nil {
				s.log.DatabaseError("insert ack message", err)
			}
		}
		if created {
			s.bus.Publish(ctx, domainevents.LeadCreated{
				BaseEvent:       domainevents.NewBaseEvent(),
				LeadID:          lead.ID,
				BusinessID:      b.ID,
				CallerPhone:     caller,
				Source:          leads.SourcePhone,
				BusinessName:    b.Name,
				MessagingNumber: b.MessagingNumber,
				OwnerPhone:      b.OwnerPhone,
				OwnerEmail:      b.OwnerEmail,
			})
		}
	}

	return recordTwiML(voicemailGreeting, s.transcriptionCallbackURL(b.ID, caller, called)), nil
}

func (s *Service) transcriptionCallbackURL(businessID uuid.UUID, caller, called string) string {
	q := url.Values{}
	q.Set("businessId", businessID.String())
	q.Set("caller", caller)
	q.Set("called", called)
	return s.baseURL + "/api/v1/webhooks/voice/transcription?" + q.Encode()
}

// HandleTranscription processes one transcription callback. Malformed
// identifiers fail validation before any claim is made.
func (s *Service) HandleTranscription(ctx context.Context, in TranscriptionInput) (ledger.Result, error) {
	businessID, caller, err := parseCallbackParams(in.BusinessID, in.Caller, in.Called)
	if err != nil {
		return ledger.ClaimFailed, err
	}

	return s.ledger.WithClaim(ctx, in.TranscriptionID, ledger.EventTypeTranscription, func(ctx context.Context) error {
		return s.processTranscription(ctx, businessID, caller, in.Status, in.Text)
	})
}

func (s *Service) processTranscription(ctx context.Context, businessID uuid.UUID, caller, status, text string) error {
	text = strings.TrimSpace(text)
	if status != "completed" || text == "" {
		s.log.Info("transcription skipped", "business_id", businessID.String(), "status", status)
		return nil
	}

	b, err := s.businesses.GetByID(ctx, businessID)
	if err != nil {
		return fmt.Errorf("load business: %w", err)
	}

	var class intent.Classification
	if s.classifier != nil {
		class, err = s.classifier.Classify(ctx, b.Name, intent.ChannelVoicemail, text)
		if err != nil {
			// The transcript and the owner ping still have full value
			// without a classification.
			s.log.Error("classify voicemail", "business_id", b.ID.String(), "error", err)
			class = intent.Classification{}
		}
	}

	lead, _, err := s.leads.UpsertByCaller(ctx, b.ID, caller, "", leads.SourcePhone)
	if err != nil {
		return fmt.Errorf("upsert lead: %w", err)
	}
	if class.Intent != "" {
		if err := s.leads.SetIntent(ctx, lead.ID, class.Intent, class.Summary); err != nil {
			s.log.DatabaseError("set lead intent", err)
		}
	}
	if err := s.leads.InsertMessage(ctx, lead.ID, leads.DirectionInbound, text, false); err != nil {
		return fmt.Errorf("insert voicemail message: %w", err)
	}

	s.sendSuggestedReply(ctx, b, lead.ID, caller, class.SuggestedReply)

	// The owner hears about the voicemail no matter what the caller-facing
	// gates decided.
	s.bus.Publish(ctx, domainevents.VoicemailAnalyzed{
		BaseEvent:       domainevents.NewBaseEvent(),
		LeadID:          lead.ID,
		BusinessID:      b.ID,
		CallerPhone:     caller,
		OwnerPhone:      b.OwnerPhone,
		OwnerEmail:      b.OwnerEmail,
		BusinessName:    b.Name,
		MessagingNumber: b.MessagingNumber,
		Intent:          class.Intent,
		Summary:         class.Summary,
		Priority:        class.Priority,
	})
	return nil
}

func (s *Service) sendSuggestedReply(ctx context.Context, b business.Business, leadID uuid.UUID, caller, reply string) {
	if reply == "" {
		return
	}
	if !s.bill.IsSendAllowed(ctx, b.ID).Allowed {
		return
	}
	if !s.comp.IsOptedOut(ctx, b.ID, caller).Allowed() {
		return
	}
	if err := s.sender.Send(ctx, b.MessagingNumber, caller, reply); err != nil {
		s.log.SendFailure(b.ID.String(), caller, err)
		return
	}
	if err := s.leads.InsertMessage(ctx, leadID, leads.DirectionOutbound, reply, true); err != nil {
		s.log.DatabaseError("insert reply message", err)
	}
}
