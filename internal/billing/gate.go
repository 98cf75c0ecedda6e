// Package billing provides the subscription gate and the billing-provider
// webhook bounded context, including the ordering guard that protects
// subscription state from out-of-order redeliveries.
package billing

import (
	"context"
	"errors"

	"textback_backend/internal/business"
	"textback_backend/platform/logger"

	"github.com/google/uuid"
)

// SubscriptionReader is the lookup surface the gate needs.
// Satisfied by *business.Repository.
type SubscriptionReader interface {
	SubscriptionStatus(ctx context.Context, id uuid.UUID) (string, error)
}

// Decision is the result of a billing check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Gate answers "may this business send messages" with fail-open semantics.
// The asymmetry with the compliance gate is deliberate: a transient storage
// failure should not break service for customers in good standing, while a
// compliance ambiguity must always suppress the send.
type Gate struct {
	store SubscriptionReader
	log   *logger.Logger
}

// NewGate creates a new billing gate.
func NewGate(store SubscriptionReader, log *logger.Logger) *Gate {
	return &Gate{store: store, log: log}
}

// IsSendAllowed allows sends for active and trialing subscriptions and
// blocks past_due, canceled, unpaid and absent ones. A lookup error allows
// the send (fail open) and is logged.
func (g *Gate) IsSendAllowed(ctx context.Context, businessID uuid.UUID) Decision {
	status, err := g.store.SubscriptionStatus(ctx, businessID)
	if errors.Is(err, business.ErrNotFound) {
		return Decision{Allowed: false, Reason: "no subscription on record"}
	}
	if err != nil {
		g.log.DatabaseError("subscription lookup", err)
		return Decision{Allowed: true, Reason: "lookup failed, failing open"}
	}

	switch status {
	case business.SubscriptionActive, business.SubscriptionTrialing:
		return Decision{Allowed: true}
	default:
		return Decision{Allowed: false, Reason: "subscription " + status}
	}
}
