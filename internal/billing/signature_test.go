package billing

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "whsec_test"

func TestVerifySignatureRoundTrip(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"customer.subscription.updated"}`)
	now := time.Now()
	header := SignPayload(testSecret, payload, now)

	if err := VerifySignature(testSecret, header, payload, now, 5*time.Minute); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifySignatureRejectsTamperedPayload(t *testing.T) {
	now := time.Now()
	header := SignPayload(testSecret, []byte(`{"id":"evt_1"}`), now)

	err := VerifySignature(testSecret, header, []byte(`{"id":"evt_2"}`), now, 5*time.Minute)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Now()
	header := SignPayload("whsec_other", payload, now)

	if err := VerifySignature(testSecret, header, payload, now, 5*time.Minute); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifySignatureRejectsStaleTimestamp(t *testing.T) {
	payload := []byte(`{}`)
	signedAt := time.Now().Add(-10 * time.Minute)
	header := SignPayload(testSecret, payload, signedAt)

	err := VerifySignature(testSecret, header, payload, time.Now(), 5*time.Minute)
	if !errors.Is(err, ErrSignatureExpired) {
		t.Fatalf("expected ErrSignatureExpired, got %v", err)
	}
}

func TestVerifySignatureRejectsMissingAndMalformedHeaders(t *testing.T) {
	if err := VerifySignature(testSecret, "", []byte(`{}`), time.Now(), time.Minute); !errors.Is(err, ErrSignatureMissing) {
		t.Fatalf("expected ErrSignatureMissing, got %v", err)
	}
	if err := VerifySignature(testSecret, "v1=abc", []byte(`{}`), time.Now(), time.Minute); !errors.Is(err, ErrSignatureFormat) {
		t.Fatalf("expected ErrSignatureFormat, got %v", err)
	}
}
