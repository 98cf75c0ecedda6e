package billing

import (
	"context"
	"errors"
	"testing"

	"textback_backend/internal/business"
	"textback_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeSubscriptions struct {
	status string
	err    error
}

func (f *fakeSubscriptions) SubscriptionStatus(context.Context, uuid.UUID) (string, error) {
	return f.status, f.err
}

func TestGateAllowsActiveAndTrialing(t *testing.T) {
	for _, status := range []string{business.SubscriptionActive, business.SubscriptionTrialing} {
		gate := NewGate(&fakeSubscriptions{status: status}, logger.New("test"))
		d := gate.IsSendAllowed(context.Background(), uuid.New())
		if !d.Allowed {
			t.Fatalf("expected %s subscription to be allowed", status)
		}
	}
}

func TestGateBlocksDelinquentStatuses(t *testing.T) {
	for _, status := range []string{business.SubscriptionPastDue, business.SubscriptionCanceled, business.SubscriptionUnpaid} {
		gate := NewGate(&fakeSubscriptions{status: status}, logger.New("test"))
		d := gate.IsSendAllowed(context.Background(), uuid.New())
		if d.Allowed {
			t.Fatalf("expected %s subscription to be blocked", status)
		}
	}
}

func TestGateBlocksAbsentSubscription(t *testing.T) {
	gate := NewGate(&fakeSubscriptions{err: business.ErrNotFound}, logger.New("test"))
	d := gate.IsSendAllowed(context.Background(), uuid.New())
	if d.Allowed {
		t.Fatal("expected absent subscription to be blocked")
	}
}

func TestGateFailsOpenOnLookupError(t *testing.T) {
	gate := NewGate(&fakeSubscriptions{err: errors.New("timeout")}, logger.New("test"))
	d := gate.IsSendAllowed(context.Background(), uuid.New())
	if !d.Allowed {
		t.Fatal("a billing lookup failure must allow the send")
	}
}
