package messaging

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"textback_backend/internal/ledger"
	"textback_backend/platform/httpkit"
	"textback_backend/platform/logger"
	"textback_backend/platform/validator"
)

// Handler exposes the inbound SMS webhook endpoint.
type Handler struct {
	service *Service
	val     *validator.Validator
	log     *logger.Logger
}

func NewHandler(service *Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{service: service, val: val, log: log}
}

// HandleInbound ingests the provider's inbound message callback.
func (h *Handler) HandleInbound(c *gin.Context) {
	in := InboundSMS{
		MessageID: c.PostForm("MessageSid"),
		From:      c.PostForm("From"),
		To:        c.PostForm("To"),
		Body:      c.PostForm("Body"),
	}
	if err := h.val.Struct(in); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "MessageSid, From and To are required")
		return
	}

	result, err := h.service.HandleInbound(c.Request.Context(), in)
	if result == ledger.ClaimFailed {
		h.log.Error("inbound sms claim failed", "message_id", in.MessageID, "error", err)
		c.String(http.StatusInternalServerError, "")
		return
	}
	if err != nil {
		h.log.Error("inbound sms processing failed", "message_id", in.MessageID, "error", err)
	}

	httpkit.OK(c, gin.H{"received": true})
}
