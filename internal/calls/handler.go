package calls

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"textback_backend/internal/ledger"
	"textback_backend/platform/apperr"
	"textback_backend/platform/httpkit"
	"textback_backend/platform/logger"
	"textback_backend/platform/validator"
)

// Handler exposes the provider-facing voice webhook endpoints.
type Handler struct {
	service *Service
	val     *validator.Validator
	log     *logger.Logger
}

func NewHandler(service *Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{service: service, val: val, log: log}
}

// HandleVoice answers the call-status callback with TwiML.
func (h *Handler) HandleVoice(c *gin.Context) {
	in := MissedCallInput{
		CallID: c.PostForm("CallSid"),
		From:   c.PostForm("From"),
		To:     c.PostForm("To"),
		Status: c.PostForm("CallStatus"),
	}
	if err := h.val.Struct(in); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "CallSid, From and To are required")
		return
	}

	twiml, err := h.service.HandleMissedCall(c.Request.Context(), in)
	if err != nil {
		// Claim never happened; let the provider redeliver.
		h.log.Error("missed call claim failed", "call_id", in.CallID, "error", err)
		c.String(http.StatusInternalServerError, "")
		return
	}

	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(twiml))
}

// HandleTranscription ingests the voicemail transcription callback.
func (h *Handler) HandleTranscription(c *gin.Context) {
	in := TranscriptionInput{
		TranscriptionID: c.PostForm("TranscriptionSid"),
		BusinessID:      c.Query("businessId"),
		Caller:          c.Query("caller"),
		Called:          c.Query("called"),
		Status:          c.PostForm("TranscriptionStatus"),
		Text:            c.PostForm("TranscriptionText"),
	}
	if err := h.val.Struct(in); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "TranscriptionSid, businessId, caller and called are required")
		return
	}

	result, err := h.service.HandleTranscription(c.Request.Context(), in)
	if result == ledger.ClaimFailed {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			httpkit.Error(c, appErr.HTTPStatus(), appErr.Message)
			return
		}
		// Claim never happened; a 500 makes the provider redeliver.
		h.log.Error("transcription claim failed", "transcription_id", in.TranscriptionID, "error", err)
		c.String(http.StatusInternalServerError, "")
		return
	}
	if err != nil {
		h.log.Error("transcription processing failed", "transcription_id", in.TranscriptionID, "error", err)
	}

	// Success-shaped ack: the ledger row already records the outcome and
	// retries from the provider would be duplicates anyway.
	httpkit.OK(c, gin.H{"received": true})
}
