package billing

import (
	"context"
	"io"
	"net/http"
	"time"

	"textback_backend/internal/ledger"
	"textback_backend/platform/config"
	"textback_backend/platform/httpkit"
	"textback_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Handler handles billing-provider webhook HTTP requests.
type Handler struct {
	service   *Service
	ledgerSvc *ledger.Service
	cfg       config.BillingConfig
	log       *logger.Logger
}

// NewHandler creates a new billing webhook handler.
func NewHandler(service *Service, ledgerSvc *ledger.Service, cfg config.BillingConfig, log *logger.Logger) *Handler {
	return &Handler{service: service, ledgerSvc: ledgerSvc, cfg: cfg, log: log}
}

// HandleWebhook processes a billing-provider event delivery.
// POST /api/v1/webhooks/billing
//
// Bad signatures and malformed payloads get genuine error statuses; once
// the event is claimed, processing failures are acknowledged with 200 so
// the provider does not retry an event the ledger already owns.
func (h *Handler) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "unreadable payload")
		return
	}

	if err := VerifySignature(
		h.cfg.GetBillingWebhookSecret(),
		c.GetHeader("Billing-Signature"),
		payload,
		time.Now(),
		h.cfg.GetBillingSignatureTolerance(),
	); err != nil {
		h.log.Warn("billing webhook signature rejected", "error", err, "client_ip", c.ClientIP())
		httpkit.Error(c, http.StatusUnauthorized, "invalid signature")
		return
	}

	evt, err := ParseProviderEvent(payload)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "malformed event payload")
		return
	}

	result, err := h.ledgerSvc.WithClaim(c.Request.Context(), evt.ID, ledger.EventTypePayment, func(ctx context.Context) error {
		return h.service.HandleEvent(ctx, evt)
	})
	if result == ledger.ClaimFailed {
		// Claim storage error: ask the provider to redeliver.
		httpkit.Error(c, http.StatusInternalServerError, "event claim failed")
		return
	}
	if err != nil {
		// Side effects are the ledger's problem now; acknowledging stops a
		// retry storm for an event that will fail the same way again.
		h.log.Error("billing event processing failed", "event_id", evt.ID, "error", err)
	}

	httpkit.OK(c, gin.H{"received": true})
}
