package compliance

import (
	"context"

	"textback_backend/platform/logger"

	"github.com/google/uuid"
)

// OptOutChecker is the lookup surface the gate needs. Satisfied by *Repository.
type OptOutChecker interface {
	Exists(ctx context.Context, businessID uuid.UUID, phone string) (bool, error)
}

// Decision is the result of a compliance lookup.
type Decision struct {
	OptedOut     bool
	LookupFailed bool
}

// Allowed reports whether an outbound send to this contact may proceed.
// A failed lookup never allows a send: texting someone who opted out is a
// legal violation, so ambiguity resolves toward not sending.
func (d Decision) Allowed() bool {
	return !d.OptedOut && !d.LookupFailed
}

// Gate answers "may we text this contact" with fail-closed semantics.
type Gate struct {
	store OptOutChecker
	log   *logger.Logger
}

// NewGate creates a new compliance gate.
func NewGate(store OptOutChecker, log *logger.Logger) *Gate {
	return &Gate{store: store, log: log}
}

// IsOptedOut checks the opt-out store. On a lookup error the contact is
// treated as opted-out-or-unknown and the failure is logged for operator
// visibility; the caller must suppress the send.
func (g *Gate) IsOptedOut(ctx context.Context, businessID uuid.UUID, phone string) Decision {
	optedOut, err := g.store.Exists(ctx, businessID, phone)
	if err != nil {
		g.log.DatabaseError("opt-out lookup", err)
		g.log.ComplianceBlock(businessID.String(), phone, "lookup failed")
		return Decision{LookupFailed: true}
	}
	return Decision{OptedOut: optedOut}
}
