package ledger

import (
	"context"
	"fmt"

	"textback_backend/platform/logger"
)

// Store is the ledger surface the claim wrapper needs. Satisfied by *Repository.
type Store interface {
	Claim(ctx context.Context, eventID, eventType string) (ClaimOutcome, error)
	Commit(ctx context.Context, eventID, status string) error
}

// Result describes how WithClaim disposed of an event.
type Result int

const (
	// Processed means the handler ran and the row was committed processed.
	Processed Result = iota
	// Skipped means the event was a duplicate and nothing ran.
	Skipped
	// Errored means the handler failed and the row was committed failed.
	Errored
	// ClaimFailed means the claim insert itself hit a storage error; nothing
	// ran and the provider should redeliver.
	ClaimFailed
)

// Service wraps the ledger store with the claim-run-commit lifecycle every
// webhook handler shares.
type Service struct {
	store Store
	log   *logger.Logger
}

// NewService creates a new ledger service.
func NewService(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// WithClaim claims the event, runs fn, and always drives the ledger row to a
// terminal state. A claim storage error aborts before fn runs (the provider
// will redeliver). A commit error after fn succeeded is logged rather than
// returned: the side effects already happened and failing the request would
// trigger a duplicate delivery the ledger would then have to absorb.
func (s *Service) WithClaim(ctx context.Context, eventID, eventType string, fn func(ctx context.Context) error) (Result, error) {
	outcome, err := s.store.Claim(ctx, eventID, eventType)
	if err != nil {
		return ClaimFailed, fmt.Errorf("claim event %s: %w", eventID, err)
	}
	if outcome == Duplicate {
		s.log.WebhookEvent(eventType, eventID, "duplicate")
		return Skipped, nil
	}

	committed := false
	defer func() {
		// Safety net: if fn panicked, the row must not stay processing.
		if !committed {
			if commitErr := s.store.Commit(ctx, eventID, StatusFailed); commitErr != nil {
				s.log.DatabaseError("ledger commit failed (panic path)", commitErr)
			}
		}
	}()

	if fnErr := fn(ctx); fnErr != nil {
		committed = true
		if commitErr := s.store.Commit(ctx, eventID, StatusFailed); commitErr != nil {
			s.log.DatabaseError("ledger commit failed", commitErr)
		}
		s.log.WebhookEvent(eventType, eventID, "failed")
		return Errored, fnErr
	}

	committed = true
	if commitErr := s.store.Commit(ctx, eventID, StatusProcessed); commitErr != nil {
		s.log.DatabaseError("ledger commit processed", commitErr)
	}
	s.log.WebhookEvent(eventType, eventID, "processed")
	return Processed, nil
}
