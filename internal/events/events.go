package events

import (
	"github.com/google/uuid"
)

// LeadCreated is published when a new lead is captured from any source.
type LeadCreated struct {
	BaseEvent
	LeadID          uuid.UUID
	BusinessID      uuid.UUID
	CallerPhone     string
	Source          string
	BusinessName    string
	MessagingNumber string
	OwnerPhone      string
	OwnerEmail      string
}

// EventName returns the unique identifier for this event type.
func (LeadCreated) EventName() string { return "lead.created" }

// VoicemailAnalyzed is published after a voicemail transcription has been
// classified. The owner notification it triggers is independent of the
// caller-facing compliance outcome.
type VoicemailAnalyzed struct {
	BaseEvent
	LeadID          uuid.UUID
	BusinessID      uuid.UUID
	CallerPhone     string
	OwnerPhone      string
	OwnerEmail      string
	BusinessName    string
	MessagingNumber string
	Intent          string
	Summary         string
	Priority        string
}

// EventName returns the unique identifier for this event type.
func (VoicemailAnalyzed) EventName() string { return "voicemail.analyzed" }

// OwnerRelayDue is published when an inbound SMS should be relayed to the
// business owner. Publishers apply the billing gate before publishing.
type OwnerRelayDue struct {
	BaseEvent
	LeadID          uuid.UUID
	BusinessID      uuid.UUID
	CallerPhone     string
	OwnerPhone      string
	OwnerEmail      string
	BusinessName    string
	MessagingNumber string
	Body            string
	Intent          string
	Summary         string
}

// EventName returns the unique identifier for this event type.
func (OwnerRelayDue) EventName() string { return "owner.relay.due" }
