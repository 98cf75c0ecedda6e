// Package notification turns domain events into owner alerts. Owners get an
// SMS for every alert and an email when the business has one configured.
package notification

import (
	"context"
	"fmt"

	"textback_backend/internal/email"
	domainevents "textback_backend/internal/events"
	"textback_backend/internal/leads"
	"textback_backend/internal/sms"
	"textback_backend/platform/logger"
)

// Notifier subscribes to lead, voicemail, and relay events.
type Notifier struct {
	sender sms.Sender
	email  email.Sender
	log    *logger.Logger
}

func NewNotifier(sender sms.Sender, emailSender email.Sender, log *logger.Logger) *Notifier {
	return &Notifier{sender: sender, email: emailSender, log: log}
}

// Register attaches the notifier to the bus.
func (n *Notifier) Register(bus domainevents.Bus) {
	bus.Subscribe(domainevents.LeadCreated{}.EventName(), domainevents.HandlerFunc(n.handleLeadCreated))
	bus.Subscribe(domainevents.VoicemailAnalyzed{}.EventName(), domainevents.HandlerFunc(n.handleVoicemailAnalyzed))
	bus.Subscribe(domainevents.OwnerRelayDue{}.EventName(), domainevents.HandlerFunc(n.handleOwnerRelayDue))
}

// handleLeadCreated alerts the owner about missed-call leads only. Leads
// created from an inbound text are covered by the relay event, which also
// carries the message content.
func (n *Notifier) handleLeadCreated(ctx context.Context, event domainevents.Event) error {
	evt, ok := event.(domainevents.LeadCreated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	if evt.Source != leads.SourcePhone {
		return nil
	}

	body := fmt.Sprintf("Missed call from %s. We texted them back for you.", evt.CallerPhone)
	n.alert(ctx, ownerAlert{
		from:       evt.MessagingNumber,
		ownerPhone: evt.OwnerPhone,
		ownerEmail: evt.OwnerEmail,
		subject:    fmt.Sprintf("Missed call from %s", evt.CallerPhone),
		body:       body,
	})
	return nil
}

func (n *Notifier) handleVoicemailAnalyzed(ctx context.Context, event domainevents.Event) error {
	evt, ok := event.(domainevents.VoicemailAnalyzed)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	body := fmt.Sprintf("Voicemail from %s", evt.CallerPhone)
	if evt.Summary != "" {
		body += ": " + evt.Summary
	}
	if evt.Priority == "high" {
		body = "URGENT - " + body
	}
	n.alert(ctx, ownerAlert{
		from:       evt.MessagingNumber,
		ownerPhone: evt.OwnerPhone,
		ownerEmail: evt.OwnerEmail,
		subject:    fmt.Sprintf("Voicemail from %s", evt.CallerPhone),
		body:       body,
	})
	return nil
}

func (n *Notifier) handleOwnerRelayDue(ctx context.Context, event domainevents.Event) error {
	evt, ok := event.(domainevents.OwnerRelayDue)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	body := fmt.Sprintf("Text from %s: %s", evt.CallerPhone, evt.Body)
	if evt.Summary != "" {
		body += "\n(" + evt.Summary + ")"
	}
	n.alert(ctx, ownerAlert{
		from:       evt.MessagingNumber,
		ownerPhone: evt.OwnerPhone,
		ownerEmail: evt.OwnerEmail,
		subject:    fmt.Sprintf("New text from %s", evt.CallerPhone),
		body:       body,
	})
	return nil
}

type ownerAlert struct {
	from       string
	ownerPhone string
	ownerEmail string
	subject    string
	body       string
}

// alert delivers on a best-effort basis: a failed channel is logged and the
// other channel still gets tried. Owner alerts are operator-facing and are
// deliberately outside the compliance and billing gates.
func (n *Notifier) alert(ctx context.Context, a ownerAlert) {
	if a.ownerPhone != "" {
		if err := n.sender.Send(ctx, a.from, a.ownerPhone, a.body); err != nil {
			n.log.Error("owner sms alert failed", "to", a.ownerPhone, "error", err)
		}
	}
	if a.ownerEmail != "" {
		if err := n.email.SendOwnerAlert(ctx, a.ownerEmail, a.subject, a.body); err != nil {
			n.log.Error("owner email alert failed", "to", a.ownerEmail, "error", err)
		}
	}
}
