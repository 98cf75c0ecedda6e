package calls

import (
	"github.com/google/uuid"

	"textback_backend/platform/apperr"
	"textback_backend/platform/phone"
)

// parseCallbackParams validates the identifiers the transcription callback
// echoes back. They originated from us, but the callback URL is guessable,
// so malformed values are rejected before any storage work.
func parseCallbackParams(businessID, caller, called string) (uuid.UUID, string, error) {
	id, err := uuid.Parse(businessID)
	if err != nil {
		return uuid.UUID{}, "", apperr.Validation("businessId must be a UUID")
	}
	if !phone.IsE164(caller) {
		return uuid.UUID{}, "", apperr.Validation("caller must be E.164")
	}
	if !phone.IsE164(called) {
		return uuid.UUID{}, "", apperr.Validation("called must be E.164")
	}
	return id, caller, nil
}
