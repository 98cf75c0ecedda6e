package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	domainevents "textback_backend/internal/events"
	"textback_backend/internal/leads"
	"textback_backend/platform/logger"
)

type sentSMS struct {
	from, to, body string
}

type fakeSender struct {
	sent    []sentSMS
	sendErr error
}

func (f *fakeSender) Send(_ context.Context, from, to, body string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentSMS{from, to, body})
	return nil
}

type sentEmail struct {
	to, subject, body string
}

type fakeEmail struct {
	sent []sentEmail
}

func (f *fakeEmail) SendOwnerAlert(_ context.Context, to, subject, body string) error {
	f.sent = append(f.sent, sentEmail{to, subject, body})
	return nil
}

func newNotifierFixture() (*Notifier, *fakeSender, *fakeEmail, domainevents.Bus) {
	log := logger.New("test")
	smsSender := &fakeSender{}
	emailSender := &fakeEmail{}
	n := NewNotifier(smsSender, emailSender, log)
	bus := domainevents.NewInMemoryBus(log)
	n.Register(bus)
	return n, smsSender, emailSender, bus
}

func TestMissedCallLeadAlertsOwner(t *testing.T) {
	_, smsSender, emailSender, bus := newNotifierFixture()

	err := bus.PublishSync(context.Background(), domainevents.LeadCreated{
		BaseEvent:       domainevents.NewBaseEvent(),
		LeadID:          uuid.New(),
		BusinessID:      uuid.New(),
		CallerPhone:     "+15551234567",
		Source:          leads.SourcePhone,
		BusinessName:    "Reliable Plumbing",
		MessagingNumber: "+15550002222",
		OwnerPhone:      "+15550009999",
		OwnerEmail:      "owner@example.com",
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	if len(smsSender.sent) != 1 {
		t.Fatalf("expected owner SMS, got %d", len(smsSender.sent))
	}
	if smsSender.sent[0].to != "+15550009999" {
		t.Fatalf("alert sent to %s", smsSender.sent[0].to)
	}
	if len(emailSender.sent) != 1 || emailSender.sent[0].to != "owner@example.com" {
		t.Fatalf("expected owner email, got %+v", emailSender.sent)
	}
}

func TestSMSLeadDoesNotDoubleAlert(t *testing.T) {
	_, smsSender, _, bus := newNotifierFixture()

	err := bus.PublishSync(context.Background(), domainevents.LeadCreated{
		BaseEvent:   domainevents.NewBaseEvent(),
		CallerPhone: "+15551234567",
		Source:      leads.SourceSMS,
		OwnerPhone:  "+15550009999",
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if len(smsSender.sent) != 0 {
		t.Fatalf("sms-sourced lead alerted; relay event covers it")
	}
}

func TestVoicemailAlertMarksUrgent(t *testing.T) {
	_, smsSender, _, bus := newNotifierFixture()

	err := bus.PublishSync(context.Background(), domainevents.VoicemailAnalyzed{
		BaseEvent:       domainevents.NewBaseEvent(),
		CallerPhone:     "+15551234567",
		MessagingNumber: "+15550002222",
		OwnerPhone:      "+15550009999",
		Summary:         "Burst pipe in the kitchen",
		Priority:        "high",
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	if len(smsSender.sent) != 1 {
		t.Fatalf("expected owner SMS")
	}
	body := smsSender.sent[0].body
	if !strings.HasPrefix(body, "URGENT") || !strings.Contains(body, "Burst pipe") {
		t.Fatalf("alert body wrong: %q", body)
	}
}

func TestRelayAlertCarriesMessageBody(t *testing.T) {
	_, smsSender, _, bus := newNotifierFixture()

	err := bus.PublishSync(context.Background(), domainevents.OwnerRelayDue{
		BaseEvent:       domainevents.NewBaseEvent(),
		CallerPhone:     "+15551234567",
		MessagingNumber: "+15550002222",
		OwnerPhone:      "+15550009999",
		Body:            "Can you come by Friday?",
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if len(smsSender.sent) != 1 || !strings.Contains(smsSender.sent[0].body, "Can you come by Friday?") {
		t.Fatalf("relay body missing: %+v", smsSender.sent)
	}
}

func TestEmailStillSentWhenSMSFails(t *testing.T) {
	_, smsSender, emailSender, bus := newNotifierFixture()
	smsSender.sendErr = errors.New("provider 503")

	err := bus.PublishSync(context.Background(), domainevents.VoicemailAnalyzed{
		BaseEvent:   domainevents.NewBaseEvent(),
		CallerPhone: "+15551234567",
		OwnerPhone:  "+15550009999",
		OwnerEmail:  "owner@example.com",
		Summary:     "Needs a quote",
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if len(emailSender.sent) != 1 {
		t.Fatalf("email skipped after sms failure")
	}
}
