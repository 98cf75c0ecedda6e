package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"textback_backend/internal/billing"
	"textback_backend/internal/business"
	"textback_backend/internal/compliance"
	domainevents "textback_backend/internal/events"
	"textback_backend/internal/intent"
	"textback_backend/internal/leads"
	"textback_backend/internal/ledger"
	"textback_backend/platform/logger"
)

type fakeLedgerStore struct {
	claimOutcome ledger.ClaimOutcome
	claimErr     error
	commits      []string
}

func (f *fakeLedgerStore) Claim(_ context.Context, _, _ string) (ledger.ClaimOutcome, error) {
	return f.claimOutcome, f.claimErr
}

func (f *fakeLedgerStore) Commit(_ context.Context, _, status string) error {
	f.commits = append(f.commits, status)
	return nil
}

type fakeBusinesses struct {
	byNumber map[string]business.Business
}

func (f *fakeBusinesses) GetByMessagingNumber(_ context.Context, number string) (business.Business, error) {
	b, ok := f.byNumber[number]
	if !ok {
		return business.Business{}, business.ErrNotFound
	}
	return b, nil
}

type fakeOptOuts struct {
	entries   map[string]bool
	upsertErr error
}

func optOutKey(businessID uuid.UUID, phone string) string {
	return businessID.String() + "|" + phone
}

func (f *fakeOptOuts) Upsert(_ context.Context, businessID uuid.UUID, phone string) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if f.entries == nil {
		f.entries = map[string]bool{}
	}
	f.entries[optOutKey(businessID, phone)] = true
	return nil
}

func (f *fakeOptOuts) Delete(_ context.Context, businessID uuid.UUID, phone string) error {
	delete(f.entries, optOutKey(businessID, phone))
	return nil
}

type insertedMessage struct {
	leadID    uuid.UUID
	direction string
	body      string
}

type fakeLeads struct {
	lead     leads.Lead
	created  bool
	intents  map[uuid.UUID]string
	messages []insertedMessage
}

func (f *fakeLeads) UpsertByCaller(_ context.Context, businessID uuid.UUID, caller, _, source string) (leads.Lead, bool, error) {
	f.lead.BusinessID = businessID
	f.lead.CallerPhone = caller
	f.lead.Source = source
	return f.lead, f.created, nil
}

func (f *fakeLeads) SetIntent(_ context.Context, id uuid.UUID, intentLabel, _ string) error {
	if f.intents == nil {
		f.intents = map[uuid.UUID]string{}
	}
	f.intents[id] = intentLabel
	return nil
}

func (f *fakeLeads) InsertMessage(_ context.Context, leadID uuid.UUID, direction, body string, _ bool) error {
	f.messages = append(f.messages, insertedMessage{leadID, direction, body})
	return nil
}

type fakeCompliance struct {
	decision compliance.Decision
}

func (f *fakeCompliance) IsOptedOut(context.Context, uuid.UUID, string) compliance.Decision {
	return f.decision
}

type fakeBilling struct {
	decision billing.Decision
}

func (f *fakeBilling) IsSendAllowed(context.Context, uuid.UUID) billing.Decision {
	return f.decision
}

type sentSMS struct {
	from, to, body string
}

type fakeSender struct {
	sent []sentSMS
}

func (f *fakeSender) Send(_ context.Context, from, to, body string) error {
	f.sent = append(f.sent, sentSMS{from, to, body})
	return nil
}

type fakeClassifier struct {
	result      intent.Classification
	classifyErr error
	channel     string
}

func (f *fakeClassifier) Classify(_ context.Context, _, channel, _ string) (intent.Classification, error) {
	f.channel = channel
	return f.result, f.classifyErr
}

type fakeBus struct {
	published []domainevents.Event
}

func (f *fakeBus) Publish(_ context.Context, event domainevents.Event) {
	f.published = append(f.published, event)
}

func (f *fakeBus) PublishSync(_ context.Context, event domainevents.Event) error {
	f.published = append(f.published, event)
	return nil
}

func (f *fakeBus) Subscribe(string, domainevents.Handler) {}

type smsFixture struct {
	store   *fakeLedgerStore
	optOuts *fakeOptOuts
	leads   *fakeLeads
	comp    *fakeCompliance
	bill    *fakeBilling
	sender  *fakeSender
	bus     *fakeBus
	service *Service
}

func newSMSFixture(b business.Business) *smsFixture {
	f := &smsFixture{
		store:   &fakeLedgerStore{claimOutcome: ledger.Claimed},
		optOuts: &fakeOptOuts{},
		leads:   &fakeLeads{lead: leads.Lead{ID: uuid.New()}, created: true},
		comp:    &fakeCompliance{},
		bill:    &fakeBilling{decision: billing.Decision{Allowed: true}},
		sender:  &fakeSender{},
		bus:     &fakeBus{},
	}
	log := logger.New("test")
	f.service = NewService(
		ledger.NewService(f.store, log),
		&fakeBusinesses{byNumber: map[string]business.Business{b.MessagingNumber: b}},
		f.optOuts, f.leads, f.comp, f.bill, f.sender,
		&fakeClassifier{}, f.bus, log,
	)
	return f
}

func testBusiness() business.Business {
	return business.Business{
		ID:              uuid.New(),
		Name:            "Reliable Plumbing",
		MessagingNumber: "+15550002222",
		OwnerPhone:      "+15550009999",
	}
}

func inbound(b business.Business, id, body string) InboundSMS {
	return InboundSMS{MessageID: id, From: "+15551234567", To: b.MessagingNumber, Body: body}
}

func TestStopRecordsOptOutAndConfirms(t *testing.T) {
	b := testBusiness()
	f := newSMSFixture(b)

	result, err := f.service.HandleInbound(context.Background(), inbound(b, "SM1", "STOP"))
	if err != nil || result != ledger.Processed {
		t.Fatalf("HandleInbound: result=%v err=%v", result, err)
	}

	if !f.optOuts.entries[optOutKey(b.ID, "+15551234567")] {
		t.Fatalf("opt-out not recorded")
	}
	if len(f.sender.sent) != 1 || !strings.Contains(f.sender.sent[0].body, "unsubscribed") {
		t.Fatalf("stop confirmation missing: %+v", f.sender.sent)
	}
	if len(f.bus.published) != 0 {
		t.Fatalf("opt-out should not relay to owner")
	}
}

func TestStopStartRoundTrip(t *testing.T) {
	b := testBusiness()
	f := newSMSFixture(b)

	if _, err := f.service.HandleInbound(context.Background(), inbound(b, "SM1", "STOP")); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := f.service.HandleInbound(context.Background(), inbound(b, "SM2", "START")); err != nil {
		t.Fatalf("start: %v", err)
	}

	if f.optOuts.entries[optOutKey(b.ID, "+15551234567")] {
		t.Fatalf("opt-out still present after START")
	}
	if len(f.sender.sent) != 2 {
		t.Fatalf("expected stop + start confirmations, got %d", len(f.sender.sent))
	}
	if !strings.Contains(f.sender.sent[1].body, "resubscribed") {
		t.Fatalf("start confirmation wrong: %q", f.sender.sent[1].body)
	}
}

func TestStopPersistFailureIsRetriable(t *testing.T) {
	b := testBusiness()
	f := newSMSFixture(b)
	f.optOuts.upsertErr = errors.New("connection refused")

	result, err := f.service.HandleInbound(context.Background(), inbound(b, "SM1", "STOP"))
	if result != ledger.Errored || err == nil {
		t.Fatalf("expected errored result, got result=%v err=%v", result, err)
	}
	if len(f.sender.sent) != 0 {
		t.Fatalf("confirmation sent despite persist failure")
	}
	if len(f.store.commits) != 1 || f.store.commits[0] != ledger.StatusFailed {
		t.Fatalf("expected failed commit, got %v", f.store.commits)
	}
}

func TestOptedOutSenderGetsSilentAck(t *testing.T) {
	b := testBusiness()
	f := newSMSFixture(b)
	f.comp.decision = compliance.Decision{OptedOut: true}

	result, err := f.service.HandleInbound(context.Background(), inbound(b, "SM1", "do you have time tomorrow?"))
	if err != nil || result != ledger.Processed {
		t.Fatalf("HandleInbound: result=%v err=%v", result, err)
	}
	if len(f.leads.messages) != 0 || len(f.bus.published) != 0 || len(f.sender.sent) != 0 {
		t.Fatalf("opted-out sender produced side effects")
	}
}

func TestRegularMessageCreatesLeadAndRelaysToOwner(t *testing.T) {
	b := testBusiness()
	f := newSMSFixture(b)
	classifier := &fakeClassifier{result: intent.Classification{
		Intent:  intent.IntentBooking,
		Summary: "Wants to book a drain cleaning",
	}}
	f.service.classifier = classifier

	result, err := f.service.HandleInbound(context.Background(), inbound(b, "SM1", "Can you clean my drain Friday?"))
	if err != nil || result != ledger.Processed {
		t.Fatalf("HandleInbound: result=%v err=%v", result, err)
	}

	if len(f.leads.messages) != 1 || f.leads.messages[0].direction != leads.DirectionInbound {
		t.Fatalf("inbound message row missing: %+v", f.leads.messages)
	}
	if got := f.leads.intents[f.leads.lead.ID]; got != intent.IntentBooking {
		t.Fatalf("intent not stored: %q", got)
	}
	if classifier.channel != intent.ChannelSMS {
		t.Fatalf("classifier channel = %q, want %q", classifier.channel, intent.ChannelSMS)
	}

	if len(f.bus.published) != 2 {
		t.Fatalf("expected LeadCreated + OwnerRelayDue, got %d", len(f.bus.published))
	}
	relay, ok := f.bus.published[1].(domainevents.OwnerRelayDue)
	if !ok {
		t.Fatalf("expected OwnerRelayDue, got %T", f.bus.published[1])
	}
	if relay.Body != "Can you clean my drain Friday?" || relay.OwnerPhone != b.OwnerPhone {
		t.Fatalf("relay fields wrong: %+v", relay)
	}
}

func TestBillingBlockedSkipsOwnerRelayButKeepsMessage(t *testing.T) {
	b := testBusiness()
	f := newSMSFixture(b)
	f.bill.decision = billing.Decision{Allowed: false, Reason: "subscription absent"}

	result, err := f.service.HandleInbound(context.Background(), inbound(b, "SM1", "hello"))
	if err != nil || result != ledger.Processed {
		t.Fatalf("HandleInbound: result=%v err=%v", result, err)
	}
	if len(f.leads.messages) != 1 {
		t.Fatalf("inbound message should be stored regardless of billing")
	}
	for _, evt := range f.bus.published {
		if _, ok := evt.(domainevents.OwnerRelayDue); ok {
			t.Fatalf("owner relay published despite billing block")
		}
	}
}

func TestClassifierFailureDoesNotBlockRelay(t *testing.T) {
	b := testBusiness()
	f := newSMSFixture(b)
	f.service.classifier = &fakeClassifier{classifyErr: errors.New("model unavailable")}

	result, err := f.service.HandleInbound(context.Background(), inbound(b, "SM1", "hello"))
	if err != nil || result != ledger.Processed {
		t.Fatalf("HandleInbound: result=%v err=%v", result, err)
	}
	var relayed bool
	for _, evt := range f.bus.published {
		if _, ok := evt.(domainevents.OwnerRelayDue); ok {
			relayed = true
		}
	}
	if !relayed {
		t.Fatalf("relay suppressed by classifier failure")
	}
}

func TestDuplicateDeliveryIsSkipped(t *testing.T) {
	b := testBusiness()
	f := newSMSFixture(b)
	f.store.claimOutcome = ledger.Duplicate

	result, err := f.service.HandleInbound(context.Background(), inbound(b, "SM1", "STOP"))
	if err != nil || result != ledger.Skipped {
		t.Fatalf("HandleInbound: result=%v err=%v", result, err)
	}
	if len(f.optOuts.entries) != 0 || len(f.sender.sent) != 0 {
		t.Fatalf("duplicate delivery produced side effects")
	}
}

func TestUnknownReceivingNumberIsAckedButCommitsFailed(t *testing.T) {
	b := testBusiness()
	f := newSMSFixture(b)

	result, err := f.service.HandleInbound(context.Background(), InboundSMS{
		MessageID: "SM1", From: "+15551234567", To: "+15550000000", Body: "hello",
	})
	if result != ledger.Errored || err == nil {
		t.Fatalf("HandleInbound: result=%v err=%v", result, err)
	}
	if len(f.bus.published) != 0 {
		t.Fatalf("unknown number produced side effects")
	}
	// Acknowledged to the provider, but the ledger row records the failure.
	if len(f.store.commits) != 1 || f.store.commits[0] != ledger.StatusFailed {
		t.Fatalf("expected failed commit for unknown number, got %v", f.store.commits)
	}
}
